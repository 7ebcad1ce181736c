package discovery

import (
	"context"
	"time"

	"github.com/muurk/devicechat/internal/device"
	"github.com/muurk/devicechat/internal/logging"
	"go.uber.org/zap"
)

// DefaultScanDelay is how long a simulated scan takes before revealing devices
const DefaultScanDelay = 2500 * time.Millisecond

// Simulator models an asynchronous Bluetooth scan.
// Every scan reveals the fixed device catalog after Delay.
type Simulator struct {
	// Delay is the artificial scan duration
	Delay time.Duration
}

// NewSimulator creates a simulator with the default scan delay
func NewSimulator() *Simulator {
	return &Simulator{
		Delay: DefaultScanDelay,
	}
}

// Scan waits for Delay and returns a fresh copy of the device catalog.
// Returns ctx.Err() if the context is cancelled before the delay elapses.
func (s *Simulator) Scan(ctx context.Context) ([]device.Device, error) {
	logging.Debug("Simulated scan started", zap.Duration("delay", s.Delay))

	timer := time.NewTimer(s.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		devices := device.Catalog()
		logging.Debug("Simulated scan completed", zap.Int("devices", len(devices)))
		return devices, nil
	case <-ctx.Done():
		logging.Debug("Simulated scan cancelled", zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

// ScanForDevices is a convenience function to run one scan with a custom delay
func ScanForDevices(ctx context.Context, delay time.Duration) ([]device.Device, error) {
	sim := NewSimulator()
	sim.Delay = delay
	return sim.Scan(ctx)
}
