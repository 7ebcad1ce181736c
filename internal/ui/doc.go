// Package ui renders the styled, non-interactive output of the devicechat
// commands (scan, ask, peers, config).
//
// Unlike the wizard TUI, these components print and move on: a command
// header, a live step list, and a result box.
//
//   - Header: command banner with ordered parameters
//   - Progress: step list with an overall progress bar
//   - Result: success, failure or warning box
//   - Transcript: chat log box printed after `devicechat ask`
//
// Runner ties them together for multi-step commands:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Ask Your Devices",
//	    Command:   "devicechat ask",
//	    StepNames: []string{"Scan", "Connect", "Configure", "Chat"},
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, ui.StepComplete, "5 devices")
//	    return nil, nil
//	})
//
// # Logging Integration
//
// Logging is controlled by DEVICECHAT_LOG_LEVEL (or --log-level). When unset,
// zap is silent so the curated output stays clean.
package ui
