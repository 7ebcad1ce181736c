// Package setup simulates the device configuration step that runs between
// selecting devices and entering the chat room.
//
// A Simulator ticks every Interval (300ms by default), adding rand() * MaxStep
// to a value that starts at 0. Once the value reaches 100 it is clamped, the
// run is flagged complete and ticking stops. Values never decrease and never
// exceed 100.
//
//	sim := setup.NewSimulator()
//	sim.Start(ctx, func(p setup.Progress) {
//	    fmt.Printf("%d%%\n", p.Percent())
//	})
//	defer sim.Stop()
//
// Stop blocks until the ticking goroutine has exited, so callers can rely on
// no further callbacks once it returns.
package setup
