package models

import "time"

// Event types recorded in the activity log.
const (
	EventPostCreate       = "post.create"
	EventPostUpdate       = "post.update"
	EventPostDelete       = "post.delete"
	EventImageReleaseFail = "image.release.fail"
)

// Event represents a loggable action in the feed.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "post.create", "image.release.fail"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	PostID    *string   `json:"postId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
