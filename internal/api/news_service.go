package api

import (
	"context"

	"cargoport/internal/news"
)

// DefaultNewsLimit bounds GET /api/news when no limit is given.
const DefaultNewsLimit = 20

// NewsService exposes stored headlines.
type NewsService struct {
	store news.Store
}

// NewNewsService constructs a NewsService around the provided store.
func NewNewsService(store news.Store) *NewsService {
	if store == nil {
		return nil
	}
	return &NewsService{store: store}
}

// Latest returns the newest headlines. limit <= 0 uses DefaultNewsLimit.
func (s *NewsService) Latest(ctx context.Context, limit int) ([]news.Item, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	items, err := s.store.ListNews(ctx, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []news.Item{}
	}
	return items, nil
}
