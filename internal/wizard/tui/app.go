package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/devicechat/internal/wizard"
)

// stateChangedMsg is delivered after the controller reports a change
type stateChangedMsg struct{}

// sendDoneMsg is delivered when a chat send has settled
type sendDoneMsg struct{}

// AppModel is the root bubbletea model. All wizard state lives in the
// controller; the model keeps the last snapshot plus widget state.
type AppModel struct {
	ctrl        *wizard.Controller
	ctx         context.Context
	cancel      context.CancelFunc
	activity    chan struct{}
	unsubscribe func()

	// Last snapshot taken from the controller
	Snap wizard.Snapshot

	// Highlighted row in the scanner list
	Cursor int

	// UI state
	Width    int
	Height   int
	Spinner  spinner.Model
	Progress progress.Model
	Input    textinput.Model
	Viewport viewport.Model
	Help     help.Model

	WelcomeKeys      welcomeKeyMap
	ScannerKeys      scannerKeyMap
	ConfirmationKeys confirmationKeyMap
	ChatKeys         chatKeyMap
}

// NewAppModel creates the root model and subscribes it to ctrl.
// The model closes ctrl when the user quits.
func NewAppModel(ctx context.Context, ctrl *wizard.Controller) AppModel {
	ctx, cancel := context.WithCancel(ctx)

	// Notifications coalesce: one pending signal is enough to trigger a
	// fresh snapshot, and the controller never blocks on the UI.
	activity := make(chan struct{}, 1)
	unsubscribe := ctrl.Subscribe(func() {
		select {
		case activity <- struct{}{}:
		default:
		}
	})

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	input := textinput.New()
	input.Placeholder = "Message your devices..."
	input.CharLimit = 2000
	input.Width = 50
	input.Prompt = "› "

	vp := viewport.New(MinTerminalWidth-6, 12)

	m := AppModel{
		ctrl:             ctrl,
		ctx:              ctx,
		cancel:           cancel,
		activity:         activity,
		unsubscribe:      unsubscribe,
		Spinner:          s,
		Progress:         bar,
		Input:            input,
		Viewport:         vp,
		Help:             help.New(),
		WelcomeKeys:      newWelcomeKeys(),
		ScannerKeys:      newScannerKeys(),
		ConfirmationKeys: newConfirmationKeys(),
		ChatKeys:         newChatKeys(),
	}
	m.sync()
	return m
}

// Init starts the spinner and the controller subscription
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.Spinner.Tick,
		waitForActivity(m.ctx, m.activity),
	)
}

// waitForActivity blocks until the controller signals a change
func waitForActivity(ctx context.Context, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ch:
			return stateChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Update handles messages and updates the model
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		// Global quit works on every screen
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		return m.updateCurrentScreen(msg)

	case stateChangedMsg:
		cmd := m.sync()
		return m, tea.Batch(cmd, waitForActivity(m.ctx, m.activity))

	case sendDoneMsg:
		return m, m.sync()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		if m.Snap.Screen == wizard.ScreenChatRoom && m.Snap.Loading {
			m.refreshTranscript()
		}
		return m, cmd
	}

	if m.Snap.Screen == wizard.ScreenChatRoom {
		var cmd tea.Cmd
		m.Input, cmd = m.Input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// updateCurrentScreen routes key presses to the active screen
func (m AppModel) updateCurrentScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Snap.Screen {
	case wizard.ScreenWelcome:
		return m.updateWelcome(msg)
	case wizard.ScreenDeviceScanner:
		return m.updateScanner(msg)
	case wizard.ScreenConfirmation:
		return m.updateConfirmation(msg)
	case wizard.ScreenChatRoom:
		return m.updateChat(msg)
	default:
		return m, nil
	}
}

func (m AppModel) updateWelcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.WelcomeKeys.Start):
		m.ctrl.BeginSetup()
		return m, m.sync()
	case key.Matches(msg, m.WelcomeKeys.Quit):
		return m.quit()
	}
	return m, nil
}

func (m AppModel) updateScanner(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ScannerKeys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(msg, m.ScannerKeys.Down):
		if m.Cursor < len(m.Snap.Discovered)-1 {
			m.Cursor++
		}
	case key.Matches(msg, m.ScannerKeys.Toggle):
		if m.Cursor < len(m.Snap.Discovered) {
			m.ctrl.Toggle(m.Snap.Discovered[m.Cursor].ID)
		}
	case key.Matches(msg, m.ScannerKeys.Rescan):
		m.ctrl.Rescan()
	case key.Matches(msg, m.ScannerKeys.Finalize):
		m.ctrl.Finalize()
	case key.Matches(msg, m.ScannerKeys.Quit):
		return m.quit()
	default:
		return m, nil
	}
	return m, m.sync()
}

func (m AppModel) updateConfirmation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ConfirmationKeys.Confirm):
		m.ctrl.Confirm(m.ctx)
		return m, m.sync()
	case key.Matches(msg, m.ConfirmationKeys.Quit):
		return m.quit()
	}
	return m, nil
}

func (m AppModel) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ChatKeys.Exit):
		m.ctrl.Exit()
		return m, m.sync()

	case key.Matches(msg, m.ChatKeys.Send):
		text := strings.TrimSpace(m.Input.Value())
		if text == "" || !m.Snap.CanSend {
			return m, nil
		}
		m.Input.Reset()
		return m, m.sendCmd(text)

	case key.Matches(msg, m.ChatKeys.ScrollUp, m.ChatKeys.ScrollDn):
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// sendCmd runs a chat send off the update loop. Progress reaches the model
// through the subscription.
func (m AppModel) sendCmd(text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ctrl.Send(ctx, text)
		return sendDoneMsg{}
	}
}

// sync pulls a fresh snapshot and adjusts widget state to the active screen
func (m *AppModel) sync() tea.Cmd {
	prev := m.Snap.Screen
	m.Snap = m.ctrl.Snapshot()

	if m.Cursor >= len(m.Snap.Discovered) {
		m.Cursor = max(len(m.Snap.Discovered)-1, 0)
	}

	var cmd tea.Cmd
	if m.Snap.Screen != prev {
		m.Cursor = 0
		if m.Snap.Screen == wizard.ScreenChatRoom {
			m.Input.Reset()
			cmd = m.Input.Focus()
		} else {
			m.Input.Blur()
		}
	}

	if m.Snap.Screen == wizard.ScreenChatRoom {
		m.refreshTranscript()
	}
	return cmd
}

// resize lays widgets out for the new terminal size
func (m *AppModel) resize(width, height int) {
	m.Width = width
	m.Height = height
	m.Help.Width = width

	inner := min(CalculateBoxWidth(width), MaxContentWidth) - 8
	m.Progress.Width = min(inner, 60)
	m.Input.Width = inner - 4
	m.Viewport.Width = inner
	// header, chat title, input and footer take roughly ten rows
	m.Viewport.Height = max(height-12, 4)

	if m.Snap.Screen == wizard.ScreenChatRoom {
		m.refreshTranscript()
	}
}

// quit tears down the subscription and the controller before exiting
func (m AppModel) quit() (tea.Model, tea.Cmd) {
	m.unsubscribe()
	m.cancel()
	m.ctrl.Close()
	return m, tea.Quit
}

// View renders the current screen
func (m AppModel) View() string {
	var content, helpText string

	switch m.Snap.Screen {
	case wizard.ScreenWelcome:
		content = m.renderWelcome()
		helpText = m.Help.View(m.WelcomeKeys)
	case wizard.ScreenDeviceScanner:
		content = m.renderScanner()
		helpText = m.Help.View(m.ScannerKeys)
	case wizard.ScreenConfirmation:
		content = m.renderConfirmation()
		helpText = m.Help.View(m.ConfirmationKeys)
	case wizard.ScreenChatRoom:
		content = m.renderChat()
		helpText = m.Help.View(m.ChatKeys)
	default:
		return "Unknown screen"
	}

	return RenderApplicationContainer(m.Snap.Screen.Title(), content, helpText, m.Width, m.Height)
}
