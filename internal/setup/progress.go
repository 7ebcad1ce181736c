package setup

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/muurk/devicechat/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is the time between progress ticks
	DefaultInterval = 300 * time.Millisecond

	// DefaultMaxStep bounds each random increment, exclusive
	DefaultMaxStep = 20.0

	// Max is the value at which setup is complete
	Max = 100.0
)

// Progress is a point-in-time view of the setup simulation
type Progress struct {
	Value    float64 `json:"value"`
	Complete bool    `json:"complete"`
}

// Percent returns Value rounded to the nearest whole percent
func (p Progress) Percent() int {
	return int(p.Value + 0.5)
}

// Simulator advances a progress value by random increments on a fixed
// interval until it reaches Max.
type Simulator struct {
	// Interval is the time between ticks
	Interval time.Duration

	// MaxStep bounds each increment: step = rand() * MaxStep
	MaxStep float64

	rand func() float64

	mu       sync.Mutex
	progress Progress
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures a Simulator
type Option func(*Simulator)

// WithInterval overrides the tick interval
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.Interval = d
		}
	}
}

// WithMaxStep overrides the increment bound
func WithMaxStep(step float64) Option {
	return func(s *Simulator) {
		if step > 0 {
			s.MaxStep = step
		}
	}
}

// WithRand injects the random source. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(s *Simulator) {
		if fn != nil {
			s.rand = fn
		}
	}
}

// NewSimulator creates a simulator with default timing
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		Interval: DefaultInterval,
		MaxStep:  DefaultMaxStep,
		rand:     rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resets progress to zero and begins ticking. onTick receives every new
// value, the last one with Complete set. Any previous run is stopped first.
// The run also ends when ctx is cancelled.
//
// onTick must not call Stop or Start.
func (s *Simulator) Start(ctx context.Context, onTick func(Progress)) {
	s.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.progress = Progress{}
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	logging.Debug("Setup simulation started",
		zap.Duration("interval", s.Interval),
		zap.Float64("max_step", s.MaxStep),
	)

	go s.run(runCtx, done, onTick)
}

// Stop cancels the current run and waits for it to exit.
// No onTick call happens after Stop returns. Safe to call when idle.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Snapshot returns the current progress
func (s *Simulator) Snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Simulator) run(ctx context.Context, done chan struct{}, onTick func(Progress)) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := s.advance()

			// Stop may have raced with the tick
			if ctx.Err() != nil {
				return
			}
			if onTick != nil {
				onTick(p)
			}
			if p.Complete {
				logging.Debug("Setup simulation complete")
				return
			}
		}
	}
}

// advance applies one random increment, clamping at Max
func (s *Simulator) advance() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.progress.Value + s.rand()*s.MaxStep
	if next >= Max {
		next = Max
		s.progress.Complete = true
	}
	s.progress.Value = next
	return s.progress
}
