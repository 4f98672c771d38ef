// Package news holds the news item model, the in-memory post-processing
// applied to scraped items, the persistent news store, and the HTTP API.
package news

import (
	"time"

	"github.com/google/uuid"
)

// Item represents a single scraped news article. Items are created once per
// extraction, held in memory for the duration of one pipeline run, and never
// mutated afterwards.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewItem creates a news item for an article extracted at the given time.
// The publish time of the article itself is not parsed from the page (the
// site renders a localized date string), so created/updated default to the
// extraction time.
func NewItem(title, text, source string, extractedAt time.Time) Item {
	return Item{
		ID:        uuid.New(),
		Title:     title,
		Text:      text,
		Source:    source,
		CreatedAt: extractedAt,
		UpdatedAt: extractedAt,
	}
}
