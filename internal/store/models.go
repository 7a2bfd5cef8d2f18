package store

import "time"

// SearchHit is one row matched by SearchNewsletters.
type SearchHit struct {
	ID        string
	Title     string
	Snippet   string
	UpdatedAt time.Time
}
