package chat

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewMessages(t *testing.T) {
	tests := []struct {
		name       string
		msg        Message
		wantPrefix string
		wantSender Sender
	}{
		{"user", NewUserMessage("hi"), "user-", SenderUser},
		{"bot", NewBotMessage("hello"), "bot-", SenderBot},
		{"error", NewErrorMessage(FallbackMessage), "error-", SenderBot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.msg.ID, tt.wantPrefix) {
				t.Errorf("ID = %v, want prefix %v", tt.msg.ID, tt.wantPrefix)
			}
			if tt.msg.Sender != tt.wantSender {
				t.Errorf("Sender = %v, want %v", tt.msg.Sender, tt.wantSender)
			}
			if tt.msg.Timestamp.IsZero() {
				t.Error("Timestamp should be set")
			}
		})
	}
}

func TestMessageIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewUserMessage("x").ID
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestNewGreeting(t *testing.T) {
	g := NewGreeting("Pixel 8 Pro, JBL Charge 5")

	if g.ID != GreetingID {
		t.Errorf("ID = %v, want %v", g.ID, GreetingID)
	}
	want := "Hello! I am the collective consciousness of your connected devices: Pixel 8 Pro, JBL Charge 5. How can I assist you today?"
	if g.Text != want {
		t.Errorf("Text = %q, want %q", g.Text, want)
	}
	if g.IsUser() {
		t.Error("greeting should come from the bot")
	}
}

func TestMessage_JSON(t *testing.T) {
	m := Message{
		ID:        "user-1",
		Text:      "hello",
		Sender:    SenderUser,
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"id":"user-1","text":"hello","sender":"user","timestamp":"2025-01-02T03:04:05Z"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestLog(t *testing.T) {
	log := NewLog()
	if log.Len() != 0 {
		t.Errorf("Len() on new log = %d, want 0", log.Len())
	}

	log.Append(NewUserMessage("one"))
	log.Append(NewBotMessage("two"))

	if log.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", log.Len())
	}
	msgs := log.Messages()
	if msgs[0].Text != "one" || msgs[1].Text != "two" {
		t.Errorf("Messages() out of order: %+v", msgs)
	}

	msgs[0].Text = "mutated"
	if log.Messages()[0].Text != "one" {
		t.Error("Messages() exposed internal storage")
	}

	log.Reset()
	if log.Len() != 0 {
		t.Errorf("Len() after Reset() = %d, want 0", log.Len())
	}
}

func TestSystemInstruction(t *testing.T) {
	got := SystemInstruction("Pixel 8 Pro")
	want := "You are a helpful AI assistant representing a group of connected Bluetooth devices. " +
		"The currently connected devices are: Pixel 8 Pro. Respond to the user's queries from the " +
		"perspective of these devices, being concise, helpful, and with a slightly technical, " +
		"gadget-like personality. Do not use markdown."
	if got != want {
		t.Errorf("SystemInstruction() =\n%q\nwant\n%q", got, want)
	}
}
