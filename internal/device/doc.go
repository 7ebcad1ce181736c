// Package device defines the simulated Bluetooth devices used by the chat room
// wizard and the registry of devices the user has connected.
//
// # Devices
//
// A Device is an immutable value with an identifier, a display name and a
// Category drawn from a closed set (headset, phone, watch, lightbulb, speaker).
// The mock catalog returned by Catalog is the only source of devices; there is
// no real radio access.
//
//	for _, d := range device.Catalog() {
//	    fmt.Println(d.Label()) // "📱 Pixel 8 Pro"
//	}
//
// # Registry
//
// Registry holds the connected devices in insertion order. Connect is
// idempotent and Disconnect of an unknown ID is a no-op, so for any sequence
// of calls the registry equals the fold of add-if-absent / remove-if-present
// over that sequence and never holds two devices with the same ID.
//
//	reg := device.NewRegistry()
//	reg.Connect(pixel)
//	reg.Connect(pixel) // no-op
//	reg.Disconnect("unknown") // no-op
//
// # Thread Safety
//
// Registry is safe for concurrent use.
package device
