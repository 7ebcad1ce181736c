package tui

import "github.com/charmbracelet/bubbles/key"

// welcomeKeyMap defines key bindings for the welcome screen
type welcomeKeyMap struct {
	Start key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k welcomeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k welcomeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Start, k.Quit}}
}

// scannerKeyMap defines key bindings for the device scanner
type scannerKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Rescan   key.Binding
	Finalize key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k scannerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Rescan, k.Finalize, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k scannerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.Rescan, k.Finalize, k.Quit},
	}
}

// confirmationKeyMap defines key bindings for the confirmation screen
type confirmationKeyMap struct {
	Confirm key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k confirmationKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k confirmationKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Quit}}
}

// chatKeyMap defines key bindings for the chat room. Printable keys go to the
// input, so quitting needs ctrl+c.
type chatKeyMap struct {
	Send     key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
	Exit     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.ScrollUp, k.ScrollDn, k.Exit, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.ScrollUp, k.ScrollDn},
		{k.Exit, k.Quit},
	}
}

func newWelcomeKeys() welcomeKeyMap {
	return welcomeKeyMap{
		Start: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "begin setup"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func newScannerKeys() scannerKeyMap {
	return scannerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "connect/disconnect"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "scan again"),
		),
		Finalize: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "finalize"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func newConfirmationKeys() confirmationKeyMap {
	return confirmationKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "enter chat room"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func newChatKeys() chatKeyMap {
	return chatKeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDn: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Exit: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "leave chat"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}
