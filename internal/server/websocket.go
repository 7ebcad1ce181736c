package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/devicechat/internal/logging"
	"github.com/muurk/devicechat/internal/wizard"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Error envelopes queued beyond this are dropped
	outboxSize = 16
)

// Action names accepted from the browser
const (
	ActionBeginSetup = "begin_setup"
	ActionRescan     = "rescan"
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
	ActionToggle     = "toggle"
	ActionFinalize   = "finalize"
	ActionConfirm    = "confirm"
	ActionSend       = "send"
	ActionExit       = "exit"
)

// Envelope types pushed to the browser
const (
	TypeState = "state"
	TypeError = "error"
)

var errMissingDeviceID = errors.New("device_id is required")

// ClientMessage is one action sent by the browser
type ClientMessage struct {
	Action   string `json:"action"`
	DeviceID string `json:"device_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

// ServerMessage is one envelope pushed to the browser
type ServerMessage struct {
	Type      string           `json:"type"`
	State     *wizard.Snapshot `json:"state,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// session binds one websocket connection to its own wizard controller
type session struct {
	conn       *websocket.Conn
	ctrl       *wizard.Controller
	remoteAddr string

	ctx    context.Context
	cancel context.CancelFunc

	changed chan struct{} // coalesced controller changes
	outbox  chan ServerMessage
	sends   sync.WaitGroup

	closeOnce sync.Once
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		conn:       conn,
		ctrl:       s.newController(),
		remoteAddr: r.RemoteAddr,
		ctx:        ctx,
		cancel:     cancel,
		changed:    make(chan struct{}, 1),
		outbox:     make(chan ServerMessage, outboxSize),
	}

	s.track(sess)
	defer s.untrack(sess)

	logging.LogConnection(sess.remoteAddr, "websocket_upgraded")
	sess.run()
	logging.LogConnection(sess.remoteAddr, "websocket_closed")
}

// run pumps messages until either side hangs up
func (sess *session) run() {
	unsubscribe := sess.ctrl.Subscribe(sess.markChanged)
	// the browser renders from the first state push
	sess.markChanged()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.writePump()
	}()

	sess.readPump()

	sess.close()
	<-done
	unsubscribe()
	sess.sends.Wait()
	sess.ctrl.Close()
}

func (sess *session) markChanged() {
	select {
	case sess.changed <- struct{}{}:
	default:
	}
}

// close stops both pumps; safe to call from either
func (sess *session) close() {
	sess.closeOnce.Do(func() {
		sess.cancel()
		_ = sess.conn.Close()
	})
}

func (sess *session) readPump() {
	sess.conn.SetReadLimit(maxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Connection closed unexpectedly",
					zap.String("remote_addr", sess.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogWebSocketMessage(sess.remoteAddr, "received", messageType, data)

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.pushError(fmt.Errorf("invalid message: %w", err))
			continue
		}
		if err := sess.dispatch(msg); err != nil {
			sess.pushError(err)
		}
	}
}

// dispatch applies one browser action to the controller. Guard rejections
// are not errors; the browser simply sees no state change.
func (sess *session) dispatch(msg ClientMessage) error {
	switch msg.Action {
	case ActionBeginSetup:
		sess.ctrl.BeginSetup()
	case ActionRescan:
		sess.ctrl.Rescan()
	case ActionConnect, ActionDisconnect, ActionToggle:
		if msg.DeviceID == "" {
			return fmt.Errorf("%s: %w", msg.Action, errMissingDeviceID)
		}
		switch msg.Action {
		case ActionConnect:
			sess.ctrl.Connect(msg.DeviceID)
		case ActionDisconnect:
			sess.ctrl.Disconnect(msg.DeviceID)
		default:
			sess.ctrl.Toggle(msg.DeviceID)
		}
	case ActionFinalize:
		sess.ctrl.Finalize()
	case ActionConfirm:
		sess.ctrl.Confirm(sess.ctx)
	case ActionSend:
		// Send blocks until the reply lands; progress arrives as state pushes
		sess.sends.Add(1)
		go func() {
			defer sess.sends.Done()
			sess.ctrl.Send(sess.ctx, msg.Text)
		}()
	case ActionExit:
		sess.ctrl.Exit()
	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}
	return nil
}

func (sess *session) pushError(err error) {
	logging.Debug("Rejected client message",
		zap.String("remote_addr", sess.remoteAddr),
		zap.Error(err),
	)
	select {
	case sess.outbox <- ServerMessage{Type: TypeError, Error: err.Error(), Timestamp: time.Now()}:
	default:
		logging.Warn("Outbox full, dropping error envelope", zap.String("remote_addr", sess.remoteAddr))
	}
}

func (sess *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.close()
	}()

	for {
		select {
		case <-sess.changed:
			snap := sess.ctrl.Snapshot()
			if err := sess.write(ServerMessage{Type: TypeState, State: &snap, Timestamp: time.Now()}); err != nil {
				return
			}

		case msg := <-sess.outbox:
			if err := sess.write(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-sess.ctx.Done():
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = sess.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (sess *session) write(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("Failed to marshal envelope", zap.Error(err))
		return nil
	}

	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Debug("Failed to write envelope",
			zap.String("remote_addr", sess.remoteAddr),
			zap.Error(err),
		)
		return err
	}
	logging.LogWebSocketMessage(sess.remoteAddr, "sent", websocket.TextMessage, data)
	return nil
}
