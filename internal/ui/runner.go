package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig describes a multi-step command
type RunnerConfig struct {
	Title           string    // e.g., "Ask Your Devices"
	Command         string    // e.g., "devicechat ask"
	Params          []Param   // Shown in the header
	StepNames       []string  // One entry per step
	Troubleshooting []string  // Shown when the operation fails
	Output          io.Writer // Default: os.Stdout
}

// Runner prints header, live step lines and a final result box around an
// operation.
type Runner struct {
	config    RunnerConfig
	header    *Header
	progress  *Progress
	output    io.Writer
	width     int
	startTime time.Time
}

// NewRunner creates a runner for the given command
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params...).SetWidth(width),
		progress: NewProgress(config.StepNames...).SetWidth(width),
		output:   config.Output,
		width:    width,
	}
}

// Operation does the work of a command. It reports progress through onStep
// and returns details for the success box.
type Operation func(ctx context.Context, onStep StepCallback) ([]Param, error)

// Run executes op, printing each step as it settles and the final result.
// The operation's error is returned unchanged.
func (r *Runner) Run(ctx context.Context, op Operation) error {
	r.startTime = time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := op(ctx, r.onStep)
	duration := time.Since(r.startTime).Round(time.Millisecond)

	_, _ = fmt.Fprintln(r.output)
	if err != nil {
		result := NewFailureResult(r.config.Title+" failed", err, r.config.Troubleshooting)
		_, _ = fmt.Fprintln(r.output, result.SetWidth(r.width).Render())
		return err
	}

	result := NewSuccessResult(r.config.Title+" complete", details...)
	result.AddDetail("Duration", duration.String())
	_, _ = fmt.Fprintln(r.output, result.SetWidth(r.width).Render())
	return nil
}

// Progress returns the step tracker, for inspection after Run
func (r *Runner) Progress() *Progress {
	return r.progress
}

func (r *Runner) onStep(stepNumber int, status StepStatus, message string) {
	r.progress.UpdateStep(stepNumber, status, message)
	if stepNumber < 1 || stepNumber > len(r.progress.Steps) {
		return
	}

	line := r.progress.renderStepLine(r.progress.Steps[stepNumber-1])
	if status.Done() {
		_, _ = fmt.Fprintln(r.output, line)
		return
	}
	// running lines are overwritten when the step settles
	_, _ = fmt.Fprint(r.output, line+"\r")
}
