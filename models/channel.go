package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Channel is a named chat room. Names are unique.
type Channel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy *string   `json:"createdBy"` // user id, nil for the default channel
	CreatedAt time.Time `json:"createdAt"`

	// Creator is filled by admin listings only.
	Creator *string `json:"creator,omitempty"`
}

// CreateChannelRequest is the payload of the realtime createChannel event.
type CreateChannelRequest struct {
	Name string `json:"name"`
}

// Validate trims and checks the channel name.
func (r *CreateChannelRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	n := utf8.RuneCountInString(r.Name)
	if n == 0 {
		return fmt.Errorf("channel name is required")
	}
	if n > 50 {
		return fmt.Errorf("channel name must be at most 50 characters")
	}
	return nil
}
