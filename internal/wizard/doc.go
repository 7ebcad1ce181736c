// Package wizard implements the device chat room wizard independently of any
// user interface.
//
// # Screens
//
// The wizard moves through four screens:
//
//	Welcome --BeginSetup--> DeviceScanner --Finalize--> Confirmation --Confirm--> ChatRoom
//	   ^                                                                             |
//	   +------------------------------------Exit-------------------------------------+
//
// Finalize requires at least one connected device. Confirm requires the setup
// progress to be complete. Exit is always allowed from the chat room and
// clears the connected devices and the chat log. Any other action on the wrong
// screen is ignored and reports false.
//
// # Front Ends
//
// A front end renders Controller.Snapshot and calls the action methods in
// response to input. Subscribe notifies it when a background task (scan,
// progress tick, chat reply) changed the state:
//
//	c := wizard.NewController(proxy)
//	defer c.Close()
//	c.Subscribe(func() { redraw(c.Snapshot()) })
//	c.BeginSetup()
//
// The guard fields of Snapshot (CanRescan, CanFinalize, CanConfirm, CanSend)
// tell the front end which controls to enable.
//
// # Concurrency
//
// Controller is safe for concurrent use. Send blocks until the reply has been
// appended and is usually called from its own goroutine.
package wizard
