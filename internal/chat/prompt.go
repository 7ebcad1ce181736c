package chat

import "fmt"

const (
	// DefaultModel is the Gemini model used when none is configured
	DefaultModel = "gemini-2.5-flash"

	// FallbackMessage replaces the reply whenever the remote call fails
	FallbackMessage = "Sorry, I'm having trouble connecting. Please try again later."
)

// SystemInstruction returns the persona given to the model for a chat with
// the named devices. deviceNames is already joined with ", ".
func SystemInstruction(deviceNames string) string {
	return fmt.Sprintf("You are a helpful AI assistant representing a group of connected Bluetooth devices. "+
		"The currently connected devices are: %s. "+
		"Respond to the user's queries from the perspective of these devices, being concise, helpful, "+
		"and with a slightly technical, gadget-like personality. Do not use markdown.", deviceNames)
}

// Greeting returns the text of the opening bot message
func Greeting(deviceNames string) string {
	return fmt.Sprintf("Hello! I am the collective consciousness of your connected devices: %s. How can I assist you today?", deviceNames)
}
