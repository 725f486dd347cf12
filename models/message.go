package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength bounds the text of a single message.
const MaxMessageLength = 2000

// Message is one chat line. Channel and Username are denormalized names:
// renaming a user rewrites Username on every historical message.
// Text is always the post-filter (possibly redacted) form.
type Message struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`

	// Avatar is resolved from the author's current record at read time.
	Avatar string `json:"avatar"`
}

// SendMessageRequest is the body of POST /api/messages/{channel} and the
// payload of the realtime sendMessage event.
type SendMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// Validate trims and checks the message text.
func (r *SendMessageRequest) Validate() error {
	r.Channel = strings.TrimSpace(r.Channel)
	if r.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return fmt.Errorf("message text is required")
	}
	if utf8.RuneCountInString(r.Text) > MaxMessageLength {
		return fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	}
	return nil
}

// SendResult is the outcome of the message pipeline.
type SendResult struct {
	Message        *Message `json:"message"`
	BannedDetected bool     `json:"bannedDetected"`
}
