package models

import "time"

// Creator is the read-time snapshot of a post owner embedded in API responses.
type Creator struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Post is a feed entry owned by exactly one user.
type Post struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl"`
	Creator   Creator   `json:"creator"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostUpdate carries the fields of a partial post update. Nil fields are left untouched.
type PostUpdate struct {
	Title    *string
	Content  *string
	ImageURL *string
}

// PostPage is one page of the feed plus the unfiltered total.
type PostPage struct {
	Posts      []Post `json:"posts"`
	TotalItems int    `json:"totalItems"`
}
