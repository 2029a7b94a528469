package store

import (
	"context"
	"database/sql"
	"fmt"

	"cargoport/internal/news"
)

// UpsertNews inserts or refreshes feed items keyed by link.
func (s *Store) UpsertNews(ctx context.Context, items []news.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ensureContext(ctx), nil)
	if err != nil {
		return 0, fmt.Errorf("begin news tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO news (link, title, summary, published_at, fetched_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(link) DO UPDATE SET
             title = excluded.title,
             summary = excluded.summary,
             published_at = excluded.published_at,
             fetched_at = excluded.fetched_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare news upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			item.Link,
			item.Title,
			nullableString(item.Summary),
			formatTime(item.PublishedAt),
			formatTime(item.FetchedAt),
		); err != nil {
			return 0, fmt.Errorf("upsert news %q: %w", item.Link, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit news: %w", err)
	}
	return written, nil
}

// ListNews returns the newest news first. A limit <= 0 returns everything.
func (s *Store) ListNews(ctx context.Context, limit int) ([]news.Item, error) {
	query := `SELECT link, title, summary, published_at, fetched_at FROM news ORDER BY published_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	defer rows.Close()

	var items []news.Item
	for rows.Next() {
		var (
			item         news.Item
			summary      sql.NullString
			publishedRaw string
			fetchedRaw   string
		)
		if err := rows.Scan(&item.Link, &item.Title, &summary, &publishedRaw, &fetchedRaw); err != nil {
			return nil, err
		}
		item.Summary = summary.String
		if published, err := parseTimeString(publishedRaw); err == nil {
			item.PublishedAt = published
		}
		if fetched, err := parseTimeString(fetchedRaw); err == nil {
			item.FetchedAt = fetched
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
