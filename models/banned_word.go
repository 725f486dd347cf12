package models

import "time"

// BannedWord is one normalized (trimmed, lower-cased) entry of the global
// banned-word list.
type BannedWord struct {
	ID        string    `json:"id"`
	Word      string    `json:"word"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddBannedWordRequest is the body of POST /api/admin/banned-words.
type AddBannedWordRequest struct {
	Word string `json:"word"`
}
