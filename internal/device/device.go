package device

import (
	"fmt"
	"strings"
)

// Category is the kind of gadget a device presents itself as
type Category string

const (
	CategoryHeadset   Category = "headset"
	CategoryPhone     Category = "phone"
	CategoryWatch     Category = "watch"
	CategoryLightbulb Category = "lightbulb"
	CategorySpeaker   Category = "speaker"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryHeadset,
	CategoryPhone,
	CategoryWatch,
	CategoryLightbulb,
	CategorySpeaker,
}

// ParseCategory converts a string into a Category, rejecting unknown values
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown device category %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Icon returns a short glyph used next to device names in every front end
func (c Category) Icon() string {
	switch c {
	case CategoryHeadset:
		return "🎧"
	case CategoryPhone:
		return "📱"
	case CategoryWatch:
		return "⌚"
	case CategoryLightbulb:
		return "💡"
	case CategorySpeaker:
		return "🔊"
	default:
		return "?"
	}
}

// Device represents a simulated Bluetooth device.
// Devices are values and are never mutated after discovery.
type Device struct {
	// ID is the unique device identifier (e.g., "pixel-8-pro")
	ID string `json:"id"`

	// Name is the human-readable display name (e.g., "Pixel 8 Pro")
	Name string `json:"name"`

	// Category is the device type (phone, headset, ...)
	Category Category `json:"type"`
}

// String returns a human-readable string representation of the device
func (d Device) String() string {
	return fmt.Sprintf("%s (%s, %s)", d.Name, d.ID, d.Category)
}

// Label returns the device name prefixed with its category glyph
func (d Device) Label() string {
	return d.Category.Icon() + " " + d.Name
}

// catalog is the fixed set of devices every scan reveals
var catalog = []Device{
	{ID: "pixel-8-pro", Name: "Pixel 8 Pro", Category: CategoryPhone},
	{ID: "sony-wh-1000xm5", Name: "Sony WH-1000XM5", Category: CategoryHeadset},
	{ID: "galaxy-watch-6", Name: "Galaxy Watch 6", Category: CategoryWatch},
	{ID: "philips-hue-bulb", Name: "Philips Hue Bulb", Category: CategoryLightbulb},
	{ID: "jbl-charge-5", Name: "JBL Charge 5", Category: CategorySpeaker},
}

// Catalog returns a fresh copy of the mock device catalog in display order
func Catalog() []Device {
	out := make([]Device, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog device by ID
func Lookup(id string) (Device, bool) {
	for _, d := range catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// Find returns the device with the given ID from devices
func Find(devices []Device, id string) (Device, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// JoinNames joins the display names of devices with ", "
func JoinNames(devices []Device) string {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}
