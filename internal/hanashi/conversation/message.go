// Package conversation holds the chat data model shared by the transport, the
// prompt builder and the engine, and builds the bounded context window a
// reply is generated from.
package conversation

import "time"

// Message is one chat message as seen by the bot.
type Message struct {
	// ID is the transport's event ID. May be empty.
	ID          string
	UserID      string
	DisplayName string
	Text        string
	// Timestamp is in Unix seconds.
	Timestamp int64
}

// Event is an inbound chat message as delivered by the transport.
type Event struct {
	ID         string
	GroupID    string
	SenderID   string
	SenderName string
	Text       string
	// Addressed is true when the bot was mentioned or replied to.
	Addressed bool
	Timestamp time.Time
}

// Message converts the event into the record form used in a context window.
func (e Event) Message() Message {
	name := e.SenderName
	if name == "" {
		name = e.SenderID
	}
	return Message{
		ID:          e.ID,
		UserID:      e.SenderID,
		DisplayName: name,
		Text:        e.Text,
		Timestamp:   e.Timestamp.Unix(),
	}
}
