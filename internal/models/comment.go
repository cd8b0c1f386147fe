package models

import "time"

// Comment is one immutable entry in a request's thread. The author's role is
// captured at creation time so later role changes do not rewrite history.
// Ordering key is (created_at, id).
type Comment struct {
	ID         string    `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"request_id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	AuthorRole UserRole  `db:"author_role" json:"author_role"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
