package wizard

import (
	"context"

	"github.com/muurk/devicechat/internal/device"
	"github.com/muurk/devicechat/internal/setup"
)

// ScreenName identifies one of the four wizard screens
type ScreenName string

const (
	ScreenWelcome       ScreenName = "welcome"
	ScreenDeviceScanner ScreenName = "device_scanner"
	ScreenConfirmation  ScreenName = "confirmation"
	ScreenChatRoom      ScreenName = "chat_room"
)

// String implements fmt.Stringer
func (s ScreenName) String() string {
	return string(s)
}

// Title returns a human-readable screen title
func (s ScreenName) Title() string {
	switch s {
	case ScreenWelcome:
		return "Welcome"
	case ScreenDeviceScanner:
		return "Device Scanner"
	case ScreenConfirmation:
		return "Confirmation"
	case ScreenChatRoom:
		return "Chat Room"
	default:
		return string(s)
	}
}

// screen is the state of the active screen. Each variant holds only the data
// that exists while that screen is shown.
type screen interface {
	name() ScreenName
}

type welcomeScreen struct{}

type scannerScreen struct {
	scanning   bool
	discovered []device.Device
	cancel     context.CancelFunc // cancels the outstanding scan
}

type confirmationScreen struct {
	progress setup.Progress
}

type chatScreen struct {
	loading bool
	pending string             // partial streamed reply
	cancel  context.CancelFunc // cancels the outstanding send
}

func (welcomeScreen) name() ScreenName       { return ScreenWelcome }
func (*scannerScreen) name() ScreenName      { return ScreenDeviceScanner }
func (*confirmationScreen) name() ScreenName { return ScreenConfirmation }
func (*chatScreen) name() ScreenName         { return ScreenChatRoom }

// isDiscovered reports whether id is in the scan results
func (s *scannerScreen) isDiscovered(id string) (device.Device, bool) {
	return device.Find(s.discovered, id)
}
