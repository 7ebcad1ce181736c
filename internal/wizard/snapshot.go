package wizard

import (
	"github.com/muurk/devicechat/internal/chat"
	"github.com/muurk/devicechat/internal/device"
	"github.com/muurk/devicechat/internal/setup"
)

// Snapshot is an immutable view of the wizard for rendering. Fields that do
// not apply to the current screen hold zero values.
type Snapshot struct {
	Screen ScreenName `json:"screen"`

	// Device scanner
	Scanning   bool            `json:"scanning"`
	Discovered []device.Device `json:"discovered"`

	// Connected devices; kept through confirmation and chat
	Connected []device.Device `json:"connected"`

	// Confirmation
	Progress setup.Progress `json:"progress"`

	// Chat room
	Messages []chat.Message `json:"messages"`
	Loading  bool           `json:"loading"`
	Pending  string         `json:"pending,omitempty"`

	// Guards: whether the matching action would currently fire
	CanRescan   bool `json:"can_rescan"`
	CanFinalize bool `json:"can_finalize"`
	CanConfirm  bool `json:"can_confirm"`
	CanSend     bool `json:"can_send"`
}

// IsConnected reports whether a device with the given ID is connected
func (s Snapshot) IsConnected(id string) bool {
	_, ok := device.Find(s.Connected, id)
	return ok
}

// ConnectedNames returns the connected device names joined with ", "
func (s Snapshot) ConnectedNames() string {
	return device.JoinNames(s.Connected)
}
