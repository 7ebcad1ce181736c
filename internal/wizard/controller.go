package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/muurk/devicechat/internal/chat"
	"github.com/muurk/devicechat/internal/device"
	"github.com/muurk/devicechat/internal/discovery"
	"github.com/muurk/devicechat/internal/logging"
	"github.com/muurk/devicechat/internal/setup"
	"go.uber.org/zap"
)

// Scanner discovers candidate devices
type Scanner interface {
	Scan(ctx context.Context) ([]device.Device, error)
}

// Setup runs the configuration progress shown on the confirmation screen
type Setup interface {
	Start(ctx context.Context, onTick func(setup.Progress))
	Stop()
}

// ChatProxy relays chat room messages to the model
type ChatProxy interface {
	StartSession(ctx context.Context, devices []device.Device)
	EndSession()
	Send(ctx context.Context, text string) (string, error)
	SendStream(ctx context.Context, text string, onDelta func(string)) (string, error)
}

// Option configures a Controller
type Option func(*Controller)

// WithScanner replaces the default 2.5s simulated scanner
func WithScanner(s Scanner) Option {
	return func(c *Controller) { c.scanner = s }
}

// WithSetup replaces the default progress simulator
func WithSetup(s Setup) Option {
	return func(c *Controller) { c.setup = s }
}

// WithStreaming makes Send stream the reply into Snapshot.Pending
func WithStreaming(enabled bool) Option {
	return func(c *Controller) { c.stream = enabled }
}

// Controller drives the wizard: Welcome, DeviceScanner, Confirmation and
// ChatRoom. Actions return true when they fire and are inert otherwise.
//
// All state changes are serialised by one mutex. Scans, progress ticks and
// chat replies run on goroutines and re-enter through generation checks, so a
// result that arrives after its screen was left is dropped.
type Controller struct {
	scanner Scanner
	setup   Setup
	proxy   ChatProxy
	stream  bool

	ctx    context.Context // parent of every background task
	cancel context.CancelFunc

	// setupMu orders setup Start and Stop calls. It is taken before mu,
	// never while holding it.
	setupMu sync.Mutex

	mu       sync.Mutex
	screen   screen
	registry *device.Registry
	log      *chat.Log
	closed   bool

	// Generations. A task remembers the value current when it started and
	// only applies its result if the value is unchanged.
	scanGen     uint64
	progressGen uint64
	chatGen     uint64

	subMu       sync.Mutex
	subscribers map[int]func()
	nextSub     int
}

// NewController creates a controller on the Welcome screen
func NewController(proxy ChatProxy, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		scanner:     discovery.NewSimulator(),
		setup:       setup.NewSimulator(),
		proxy:       proxy,
		ctx:         ctx,
		cancel:      cancel,
		screen:      welcomeScreen{},
		registry:    device.NewRegistry(),
		log:         chat.NewLog(),
		subscribers: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn to be called after every state change. fn runs
// outside the controller lock and may call Snapshot, but it should not block.
// Returns a function that removes the subscription.
func (c *Controller) Subscribe(fn func()) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) notify() {
	c.subMu.Lock()
	fns := make([]func(), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// transition must be called with the lock held
func (c *Controller) transition(next screen, trigger string) {
	logging.LogTransition(c.screen.name().String(), next.name().String(), trigger)
	c.screen = next
}

// BeginSetup moves from Welcome to DeviceScanner and starts the first scan.
func (c *Controller) BeginSetup() bool {
	c.mu.Lock()
	if _, ok := c.screen.(welcomeScreen); !ok || c.closed {
		c.mu.Unlock()
		return false
	}
	ss := &scannerScreen{}
	c.transition(ss, "begin_setup")
	c.startScan(ss)
	c.mu.Unlock()

	c.notify()
	return true
}

// Rescan restarts discovery. Only fires on DeviceScanner when no scan is
// outstanding. Connected devices are kept.
func (c *Controller) Rescan() bool {
	c.mu.Lock()
	ss, ok := c.screen.(*scannerScreen)
	if !ok || ss.scanning || c.closed {
		c.mu.Unlock()
		return false
	}
	c.startScan(ss)
	c.mu.Unlock()

	c.notify()
	return true
}

// startScan must be called with the lock held. Any previous scan is
// superseded: its result will be discarded.
func (c *Controller) startScan(ss *scannerScreen) {
	if ss.cancel != nil {
		ss.cancel()
	}

	c.scanGen++
	gen := c.scanGen
	ctx, cancel := context.WithCancel(c.ctx)

	ss.scanning = true
	ss.discovered = nil
	ss.cancel = cancel

	logging.Debug("Scan started", zap.Uint64("generation", gen))

	go func() {
		defer cancel()
		devices, err := c.scanner.Scan(ctx)

		c.mu.Lock()
		cur, ok := c.screen.(*scannerScreen)
		if !ok || c.scanGen != gen {
			c.mu.Unlock()
			logging.Debug("Discarded stale scan result", zap.Uint64("generation", gen))
			return
		}
		cur.scanning = false
		cur.cancel = nil
		if err == nil {
			cur.discovered = devices
		} else {
			logging.Warn("Scan failed", zap.Error(err))
		}
		c.mu.Unlock()

		c.notify()
	}()
}

// Connect adds a discovered device to the connected set. Only fires on
// DeviceScanner, for a device from the latest scan that is not yet connected.
func (c *Controller) Connect(id string) bool {
	c.mu.Lock()
	added := c.connectLocked(id)
	c.mu.Unlock()

	if added {
		logging.Info("Device connected", zap.String("device_id", id))
		c.notify()
	}
	return added
}

// Disconnect removes a device from the connected set. Only fires on
// DeviceScanner for a connected device.
func (c *Controller) Disconnect(id string) bool {
	c.mu.Lock()
	removed := c.disconnectLocked(id)
	c.mu.Unlock()

	if removed {
		logging.Info("Device disconnected", zap.String("device_id", id))
		c.notify()
	}
	return removed
}

// Toggle connects the device if it is disconnected and vice versa
func (c *Controller) Toggle(id string) bool {
	c.mu.Lock()
	event := "Device connected"
	var fired bool
	if c.registry.IsConnected(id) {
		event = "Device disconnected"
		fired = c.disconnectLocked(id)
	} else {
		fired = c.connectLocked(id)
	}
	c.mu.Unlock()

	if fired {
		logging.Info(event, zap.String("device_id", id))
		c.notify()
	}
	return fired
}

func (c *Controller) connectLocked(id string) bool {
	ss, ok := c.screen.(*scannerScreen)
	if !ok || c.closed {
		return false
	}
	d, found := ss.isDiscovered(id)
	if !found {
		return false
	}
	return c.registry.Connect(d)
}

func (c *Controller) disconnectLocked(id string) bool {
	if _, ok := c.screen.(*scannerScreen); !ok || c.closed {
		return false
	}
	return c.registry.Disconnect(id)
}

// Finalize moves from DeviceScanner to Confirmation if at least one device
// is connected. An outstanding scan is cancelled and setup progress starts.
func (c *Controller) Finalize() bool {
	c.mu.Lock()
	ss, ok := c.screen.(*scannerScreen)
	if !ok || c.registry.Len() == 0 || c.closed {
		c.mu.Unlock()
		return false
	}
	if ss.cancel != nil {
		ss.cancel()
	}
	c.scanGen++

	c.transition(&confirmationScreen{}, "finalize")
	c.progressGen++
	gen := c.progressGen
	names := c.registry.Names()
	c.mu.Unlock()

	logging.Info("Device setup started", zap.Strings("devices", names))
	c.startSetup(gen)
	c.notify()
	return true
}

// startSetup starts the progress run for generation gen unless the wizard
// has already moved on. Start may block on a previous run, so it is never
// called under mu.
func (c *Controller) startSetup(gen uint64) {
	c.setupMu.Lock()
	defer c.setupMu.Unlock()
	if !c.progressCurrent(gen) {
		return
	}
	c.setup.Start(c.ctx, func(p setup.Progress) {
		c.mu.Lock()
		cs, ok := c.screen.(*confirmationScreen)
		if !ok || c.progressGen != gen {
			c.mu.Unlock()
			return
		}
		cs.progress = p
		c.mu.Unlock()

		c.notify()
	})
}

// Confirm moves from Confirmation to ChatRoom once setup is complete. A chat
// session is opened for the connected devices and the log is seeded with the
// greeting.
func (c *Controller) Confirm(ctx context.Context) bool {
	c.mu.Lock()
	cs, ok := c.screen.(*confirmationScreen)
	if !ok || !cs.progress.Complete || c.closed {
		c.mu.Unlock()
		return false
	}

	devices := c.registry.List()
	c.progressGen++
	gen := c.progressGen
	c.chatGen++

	c.proxy.StartSession(ctx, devices)
	c.log.Reset()
	c.log.Append(chat.NewGreeting(device.JoinNames(devices)))
	c.transition(&chatScreen{}, "confirm")
	c.mu.Unlock()

	c.stopSetup(gen)
	c.notify()
	return true
}

// Exit leaves the ChatRoom for Welcome. The connected set and the chat log
// are cleared and the session ends; a reply still in flight is dropped.
func (c *Controller) Exit() bool {
	c.mu.Lock()
	cs, ok := c.screen.(*chatScreen)
	if !ok || c.closed {
		c.mu.Unlock()
		return false
	}
	if cs.cancel != nil {
		cs.cancel()
	}
	c.chatGen++
	c.registry.Clear()
	c.log.Reset()
	c.proxy.EndSession()
	c.transition(welcomeScreen{}, "exit")
	c.mu.Unlock()

	c.notify()
	return true
}

// Send posts text to the chat. Only fires in ChatRoom, for non-blank text,
// while no other send is outstanding. The user message is appended at once;
// Send then blocks until the reply (or the fallback) has been appended.
func (c *Controller) Send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	cs, ok := c.screen.(*chatScreen)
	if !ok || text == "" || cs.loading || c.closed {
		c.mu.Unlock()
		return false
	}
	c.log.Append(chat.NewUserMessage(text))
	cs.loading = true
	cs.pending = ""

	ctx, cancel := context.WithCancel(ctx)
	cs.cancel = cancel
	gen := c.chatGen
	c.mu.Unlock()

	c.notify()

	var reply chat.Message
	defer func() {
		cancel()

		c.mu.Lock()
		cur, live := c.activeChat(gen)
		if live {
			if reply.ID != "" {
				c.log.Append(reply)
			}
			cur.loading = false
			cur.pending = ""
			cur.cancel = nil
		}
		c.mu.Unlock()

		if live {
			c.notify()
		}
	}()

	var (
		answer string
		err    error
	)
	if c.stream {
		answer, err = c.proxy.SendStream(ctx, text, func(delta string) {
			c.mu.Lock()
			cur, live := c.activeChat(gen)
			if live {
				cur.pending += delta
			}
			c.mu.Unlock()

			if live {
				c.notify()
			}
		})
	} else {
		answer, err = c.proxy.Send(ctx, text)
	}

	if err != nil {
		if errors.Is(err, chat.ErrNoSession) {
			logging.Error("Chat send without a session", zap.Error(err))
		} else {
			logging.Warn("Chat send failed", zap.Error(err))
		}
		reply = chat.NewErrorMessage(chat.FallbackMessage)
		return true
	}

	reply = chat.NewBotMessage(answer)
	return true
}

// activeChat returns the chat screen if it belongs to generation gen.
// Must be called with the lock held.
func (c *Controller) activeChat(gen uint64) (*chatScreen, bool) {
	cs, ok := c.screen.(*chatScreen)
	if !ok || c.chatGen != gen {
		return nil, false
	}
	return cs, true
}

// progressCurrent reports whether gen is still the latest progress generation
func (c *Controller) progressCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressGen == gen
}

// stopSetup stops the setup run unless a later Finalize has already started
// a new one. gen is the progress generation the caller moved to.
func (c *Controller) stopSetup(gen uint64) {
	c.setupMu.Lock()
	defer c.setupMu.Unlock()
	if !c.progressCurrent(gen) {
		return
	}
	c.setup.Stop()
}

// Screen returns the active screen
func (c *Controller) Screen() ScreenName {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen.name()
}

// Snapshot returns the current state for rendering
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Screen:    c.screen.name(),
		Connected: c.registry.List(),
	}

	switch s := c.screen.(type) {
	case *scannerScreen:
		snap.Scanning = s.scanning
		snap.Discovered = append([]device.Device(nil), s.discovered...)
		snap.CanRescan = !s.scanning
		snap.CanFinalize = len(snap.Connected) > 0
	case *confirmationScreen:
		snap.Progress = s.progress
		snap.CanConfirm = s.progress.Complete
	case *chatScreen:
		snap.Messages = c.log.Messages()
		snap.Loading = s.loading
		snap.Pending = s.pending
		snap.CanSend = !s.loading
	}

	if c.closed {
		snap.CanRescan, snap.CanFinalize, snap.CanConfirm, snap.CanSend = false, false, false, false
	}

	return snap
}

// Close cancels all background work. Every action is inert afterwards.
// Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.scanGen++
	c.progressGen++
	c.chatGen++
	if cs, ok := c.screen.(*chatScreen); ok && cs.cancel != nil {
		cs.cancel()
	}
	gen := c.progressGen
	c.mu.Unlock()

	c.cancel()
	c.stopSetup(gen)

	c.subMu.Lock()
	c.subscribers = make(map[int]func())
	c.subMu.Unlock()
}

// WaitFor blocks until cond holds for a snapshot or ctx ends
func (c *Controller) WaitFor(ctx context.Context, cond func(Snapshot) bool) (Snapshot, error) {
	changed := make(chan struct{}, 1)
	unsubscribe := c.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		snap := c.Snapshot()
		if cond(snap) {
			return snap, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}
