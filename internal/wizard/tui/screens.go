package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/devicechat/internal/chat"
	"github.com/muurk/devicechat/internal/device"
	"github.com/muurk/devicechat/internal/setup"
)

const (
	searchingText  = "Searching for devices in your area..."
	noDevicesText  = "No devices found. Try scanning again."
	typingText     = "devices are typing"
	chatHeaderText = "Device Chat"
)

// renderWelcome renders the welcome screen
func (m AppModel) renderWelcome() string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		"",
		RenderTitle("ᛒ  Device Chat Room Setup"),
		"Welcome! This wizard will guide you through connecting your",
		"(simulated) Bluetooth devices to create a unified chat experience.",
		"",
		RenderButton("Begin Setup", true),
		"",
	)
	return lipgloss.Place(CalculateBoxWidth(m.Width)-4, 0, lipgloss.Center, lipgloss.Top, body)
}

// renderScanner renders the device list with connect state and finalize button
func (m AppModel) renderScanner() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Step 1: Connect Devices"))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle("Scan for nearby devices to add to the chat room."))
	b.WriteString("\n\n")

	if m.Snap.Scanning {
		b.WriteString("  ")
		b.WriteString(m.Spinner.View())
		b.WriteString(" ")
		b.WriteString(searchingText)
		b.WriteString("\n")
	} else if len(m.Snap.Discovered) == 0 {
		b.WriteString("  ")
		b.WriteString(WarningStyle.Render(noDevicesText))
		b.WriteString("\n")
	} else {
		b.WriteString("  Available Devices\n\n")
		for i, d := range m.Snap.Discovered {
			b.WriteString(m.renderDeviceRow(d, i == m.Cursor))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	label := fmt.Sprintf("Finalize Setup (%d Connected)", len(m.Snap.Connected))
	b.WriteString("  ")
	b.WriteString(RenderButton(label, m.Snap.CanFinalize))
	b.WriteString("\n")

	return b.String()
}

// renderDeviceRow renders one discovered device with its connect state
func (m AppModel) renderDeviceRow(d device.Device, selected bool) string {
	status := "[ ] Connect"
	if m.Snap.IsConnected(d.ID) {
		status = ConnectedStyle.Render("[✓] Disconnect")
	}
	row := fmt.Sprintf("%-26s %s", d.Label(), status)
	return RenderMenuItem(row, selected)
}

// renderConfirmation renders the device summary and setup progress
func (m AppModel) renderConfirmation() string {
	var devices strings.Builder
	devices.WriteString("Connected Devices:\n")
	for _, d := range m.Snap.Connected {
		devices.WriteString("\n  ")
		devices.WriteString(d.Label())
	}

	status := "Configuring..."
	button := "Installing..."
	if m.Snap.Progress.Complete {
		status = "Complete"
		button = "Launch Chat Room"
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		RenderTitle("Finalizing Setup"),
		RenderSubtitle("Preparing the chat room for your devices..."),
		InfoBoxStyle.Render(devices.String()),
		fmt.Sprintf("%s  %d%%", status, m.Snap.Progress.Percent()),
		m.Progress.ViewAs(m.Snap.Progress.Value/setup.Max),
		"",
		RenderButton(button, m.Snap.CanConfirm),
	)
	return lipgloss.NewStyle().PaddingLeft(2).Render(body)
}

// renderChat renders the chat header, transcript and input line
func (m AppModel) renderChat() string {
	icons := make([]string, 0, len(m.Snap.Connected))
	for _, d := range m.Snap.Connected {
		icons = append(icons, d.Category.Icon())
	}
	header := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Padding(0).MarginBottom(0).Render(chatHeaderText),
		SubtitleStyle.Render(fmt.Sprintf("%s  %d devices online", strings.Join(icons, " "), len(m.Snap.Connected))),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		m.Viewport.View(),
		"",
		m.Input.View(),
	)
}

// refreshTranscript re-renders the chat log into the viewport and follows
// the newest message
func (m *AppModel) refreshTranscript() {
	width := max(m.Viewport.Width-4, 20)

	var b strings.Builder
	for _, msg := range m.Snap.Messages {
		b.WriteString(renderMessage(msg, width))
		b.WriteString("\n")
	}

	if m.Snap.Loading {
		if m.Snap.Pending != "" {
			b.WriteString(BotBubbleStyle.Width(width).Render(m.Snap.Pending + " ▍"))
		} else {
			b.WriteString(SubtitleStyle.Render(m.Spinner.View() + " " + typingText))
		}
		b.WriteString("\n")
	}

	m.Viewport.SetContent(b.String())
	m.Viewport.GotoBottom()
}

// renderMessage renders one chat bubble; user messages sit on the right
func renderMessage(msg chat.Message, width int) string {
	stamp := TimestampStyle.Render(msg.Timestamp.Local().Format("15:04"))
	bubbleWidth := min(lipgloss.Width(msg.Text)+2, width*3/4)

	var bubble string
	switch {
	case msg.IsUser():
		bubble = UserBubbleStyle.Width(bubbleWidth).Render(msg.Text)
		block := lipgloss.JoinVertical(lipgloss.Right, bubble, stamp)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	case msg.IsError():
		bubble = ErrorBubbleStyle.Width(bubbleWidth).Render(msg.Text)
	default:
		bubble = BotBubbleStyle.Width(bubbleWidth).Render(msg.Text)
	}
	return lipgloss.JoinVertical(lipgloss.Left, bubble, stamp)
}
