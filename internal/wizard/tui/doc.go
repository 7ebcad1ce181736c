// Package tui implements the terminal front end of the device chat wizard.
//
// The TUI is a thin Bubble Tea view over a wizard.Controller. It never holds
// wizard state of its own: every key press is turned into a controller action
// and the screen is redrawn from the controller's Snapshot.
//
// # Screens
//
//   - Welcome: intro text and a Begin Setup button
//   - Device Scanner: scan spinner, discovered devices with connect toggles,
//     and a "Finalize Setup (N Connected)" button
//   - Confirmation: connected devices and the setup progress bar
//   - Chat Room: scrolling transcript, typing indicator and message input
//
// All screens share RenderApplicationContainer for the header and help footer.
//
// # Controller Updates
//
// Background work (scans, progress ticks, chat replies) changes controller
// state outside the Bubble Tea loop. The model subscribes to the controller
// with a one-slot channel, and waitForActivity turns each signal into a
// stateChangedMsg, so bursts of changes collapse into a single redraw and the
// controller never waits on the UI.
//
// Chat sends run as a tea.Cmd because Controller.Send blocks until the reply
// arrives.
//
// # Usage
//
//	ctrl := wizard.NewController(proxy)
//	program := tea.NewProgram(tui.NewAppModel(ctx, ctrl), tea.WithAltScreen())
//	if _, err := program.Run(); err != nil {
//	    return err
//	}
//
// # Key Bindings
//
//   - Welcome: enter begin setup, q quit
//   - Device Scanner: ↑/↓ move, space connect/disconnect, r scan again, f finalize
//   - Confirmation: enter launch the chat room once setup is complete
//   - Chat Room: enter send, pgup/pgdn scroll, esc leave chat, ctrl+c quit
package tui
