package models

import "time"

// User represents a registered account.
type User struct {
	ID           string    `json:"_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	Posts        []string  `json:"posts"`
	CreatedAt    time.Time `json:"createdAt"`
}
