package notify

import (
	"context"
	"errors"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("notify: message has no recipient")

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a rendered Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
