package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muurk/devicechat/internal/chat"
	"github.com/muurk/devicechat/internal/chat/chattest"
	"github.com/muurk/devicechat/internal/config"
	"github.com/muurk/devicechat/internal/discovery"
	"github.com/muurk/devicechat/internal/setup"
	"github.com/muurk/devicechat/internal/wizard"
)

func testFactory() *wizard.Controller {
	proxy := chat.NewProxy(&chattest.Client{}, chat.ProxyOptions{}, zap.NewNop())
	return wizard.NewController(proxy,
		wizard.WithScanner(&discovery.Simulator{Delay: time.Millisecond}),
		wizard.WithSetup(setup.NewSimulator(
			setup.WithInterval(time.Millisecond),
			setup.WithRand(func() float64 { return 0.99 }),
		)),
	)
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(config.Default().Server, testFactory, opts...)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendAction(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil reads envelopes until one satisfies cond
func readUntil(t *testing.T, conn *websocket.Conn, cond func(ServerMessage) bool) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg ServerMessage
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &msg))
		if cond(msg) {
			return msg
		}
	}
}

func stateWhere(cond func(wizard.Snapshot) bool) func(ServerMessage) bool {
	return func(m ServerMessage) bool {
		return m.Type == TypeState && m.State != nil && cond(*m.State)
	}
}

func TestWebSocket_FullScenario(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	first := readUntil(t, conn, func(m ServerMessage) bool { return m.Type == TypeState })
	assert.Equal(t, wizard.ScreenWelcome, first.State.Screen)
	assert.False(t, first.Timestamp.IsZero())

	sendAction(t, conn, ClientMessage{Action: ActionBeginSetup})
	scanned := readUntil(t, conn, stateWhere(func(s wizard.Snapshot) bool {
		return s.Screen == wizard.ScreenDeviceScanner && !s.Scanning && len(s.Discovered) > 0
	}))
	id := scanned.State.Discovered[0].ID

	sendAction(t, conn, ClientMessage{Action: ActionToggle, DeviceID: id})
	readUntil(t, conn, stateWhere(func(s wizard.Snapshot) bool { return s.IsConnected(id) && s.CanFinalize }))

	sendAction(t, conn, ClientMessage{Action: ActionFinalize})
	readUntil(t, conn, stateWhere(func(s wizard.Snapshot) bool {
		return s.Screen == wizard.ScreenConfirmation && s.CanConfirm
	}))

	sendAction(t, conn, ClientMessage{Action: ActionConfirm})
	chatState := readUntil(t, conn, stateWhere(func(s wizard.Snapshot) bool { return s.Screen == wizard.ScreenChatRoom }))
	require.NotEmpty(t, chatState.State.Messages, "chat opens with a greeting")

	sendAction(t, conn, ClientMessage{Action: ActionSend, Text: "hello"})
	replied := readUntil(t, conn, stateWhere(func(s wizard.Snapshot) bool {
		return !s.Loading && len(s.Messages) > 0 && s.Messages[len(s.Messages)-1].Text == "echo: hello"
	}))
	assert.True(t, replied.State.CanSend)

	sendAction(t, conn, ClientMessage{Action: ActionExit})
	exited := readUntil(t, conn, stateWhere(func(s wizard.Snapshot) bool { return s.Screen == wizard.ScreenWelcome }))
	assert.Empty(t, exited.State.Connected)
	assert.Empty(t, exited.State.Messages)
}

func TestWebSocket_RejectsBadMessages(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"unknown action", `{"action":"fly"}`, `unknown action "fly"`},
		{"toggle without device", `{"action":"toggle"}`, "device_id is required"},
		{"not json", `hello`, "invalid message"},
	}

	_, ts := newTestServer(t)
	conn := dial(t, ts)
	readUntil(t, conn, func(m ServerMessage) bool { return m.Type == TypeState })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)))
			msg := readUntil(t, conn, func(m ServerMessage) bool { return m.Type == TypeError })
			assert.Contains(t, msg.Error, tt.want)
		})
	}
}

func TestWebSocket_GuardRejectionIsSilent(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)
	readUntil(t, conn, func(m ServerMessage) bool { return m.Type == TypeState })

	// finalize does nothing on the welcome screen; the next push must come
	// from begin_setup
	sendAction(t, conn, ClientMessage{Action: ActionFinalize})
	sendAction(t, conn, ClientMessage{Action: ActionBeginSetup})

	msg := readUntil(t, conn, func(ServerMessage) bool { return true })
	assert.Equal(t, TypeState, msg.Type)
	assert.Equal(t, wizard.ScreenDeviceScanner, msg.State.Screen)
}

func TestWebSocket_EachConnectionHasItsOwnWizard(t *testing.T) {
	s, ts := newTestServer(t)
	a := dial(t, ts)
	b := dial(t, ts)
	readUntil(t, a, func(m ServerMessage) bool { return m.Type == TypeState })
	readUntil(t, b, func(m ServerMessage) bool { return m.Type == TypeState })

	require.Eventually(t, func() bool { return s.GetActiveConnections() == 2 }, 2*time.Second, 5*time.Millisecond)

	sendAction(t, a, ClientMessage{Action: ActionBeginSetup})
	readUntil(t, a, stateWhere(func(s wizard.Snapshot) bool { return s.Screen == wizard.ScreenDeviceScanner }))

	// b is still on welcome: an action valid only there still fires
	sendAction(t, b, ClientMessage{Action: ActionBeginSetup})
	readUntil(t, b, stateWhere(func(s wizard.Snapshot) bool { return s.Screen == wizard.ScreenDeviceScanner }))

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return s.GetActiveConnections() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Version.Version)
	assert.Nil(t, body.Checks)
}

func TestHealthz_Checks(t *testing.T) {
	state := "closed"
	_, ts := newTestServer(t, WithHealthCheck("chat_breaker", func() string { return state }))

	get := func() HealthResponse {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var body HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	assert.Equal(t, map[string]string{"chat_breaker": "closed"}, get().Checks)

	state = "open"
	assert.Equal(t, "open", get().Checks["chat_breaker"])
}

func TestIndex(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "DEVICE CHAT ROOM"},
		{"/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.wantBody)
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New(config.Default().Server, nil)
	assert.Error(t, err, "factory is required")

	cfg := config.Default().Server
	cfg.CertFile = "/nonexistent/cert.pem"
	cfg.KeyFile = "/nonexistent/key.pem"
	_, err = New(cfg, testFactory)
	assert.ErrorContains(t, err, "TLS")
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	cfg := config.Default().Server
	cfg.Host = "127.0.0.1"
	cfg.Port = 0

	s, err := New(cfg, testFactory)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestGetTLSInfo(t *testing.T) {
	assert.Equal(t, false, GetTLSInfo(nil)["enabled"])

	info := GetTLSInfo(buildTLSConfig(tls.Certificate{}))
	assert.Equal(t, true, info["enabled"])
	assert.Equal(t, "TLS 1.2", info["min_version"])
}
