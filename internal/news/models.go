package news

import (
	"context"
	"time"
)

// Item is one headline from the remote feed. Link is the natural key.
type Item struct {
	Link        string    `json:"link"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// Store persists news items.
type Store interface {
	// UpsertNews inserts or refreshes items keyed by link and returns how many
	// rows were written.
	UpsertNews(ctx context.Context, items []Item) (int, error)
	// ListNews returns the newest items first. A limit <= 0 returns all rows.
	ListNews(ctx context.Context, limit int) ([]Item, error)
}
