package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who wrote a message
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// GreetingID is the fixed identifier of the message that opens every chat
const GreetingID = "initial-bot-message"

const errorPrefix = "error-"

// Message is one entry in the chat log. Messages are never modified once
// appended.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// IsUser reports whether the user wrote the message
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}

// IsError reports whether the message stands in for a failed exchange
func (m Message) IsError() bool {
	return strings.HasPrefix(m.ID, errorPrefix)
}

func newMessage(prefix, text string, sender Sender) Message {
	return Message{
		ID:        prefix + uuid.New().String(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a message typed by the user
func NewUserMessage(text string) Message {
	return newMessage("user-", text, SenderUser)
}

// NewBotMessage creates a reply from the devices
func NewBotMessage(text string) Message {
	return newMessage("bot-", text, SenderBot)
}

// NewErrorMessage creates a bot message standing in for a failed exchange
func NewErrorMessage(text string) Message {
	return newMessage(errorPrefix, text, SenderBot)
}

// NewGreeting creates the opening message for a chat with the named devices
func NewGreeting(deviceNames string) Message {
	return Message{
		ID:        GreetingID,
		Text:      Greeting(deviceNames),
		Sender:    SenderBot,
		Timestamp: time.Now().UTC(),
	}
}

// Log is the append-only, ordered message history of one chat
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

// NewLog creates an empty log
func NewLog() *Log {
	return &Log{}
}

// Append adds m to the end of the log
func (l *Log) Append(m Message) {
	l.mu.Lock()
	l.messages = append(l.messages, m)
	l.mu.Unlock()
}

// Messages returns a copy of the log in order
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Reset empties the log
func (l *Log) Reset() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
}
