package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargoport/internal/cargo"
	"cargoport/internal/config"
	"cargoport/internal/news"
	"cargoport/internal/services"
)

// Store manages cargo persistence backed by Postgres.
type Store struct {
	pool          *pgxpool.Pool
	location      string
	schemaVersion int
	now           func() time.Time
}

// Open connects to the configured database and applies migrations.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.Store.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.Store.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewFromPool(pool)
}

// NewFromPool wraps an existing pool and applies migrations.
func NewFromPool(pool *pgxpool.Pool) (*Store, error) {
	version, err := RunMigrations(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	cfg := pool.Config().ConnConfig
	return &Store{
		pool:          pool,
		location:      fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database),
		schemaVersion: version,
		now:           time.Now,
	}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

const cargoColumns = "id::text, created_at, updated_at, paint_time, type, status, name, description, pending, claimed_at"

func scanCargo(row pgx.Row) (*cargo.Cargo, error) {
	var (
		item        cargo.Cargo
		typeStr     string
		statusStr   string
		name        *string
		description *string
		claimedAt   *time.Time
	)
	if err := row.Scan(
		&item.ID,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.PaintTime,
		&typeStr,
		&statusStr,
		&name,
		&description,
		&item.Pending,
		&claimedAt,
	); err != nil {
		return nil, err
	}
	item.Type = cargo.Type(typeStr)
	item.Status = cargo.Status(statusStr)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	if name != nil {
		item.Name = *name
	}
	if description != nil {
		item.Description = *description
	}
	if claimedAt != nil {
		utc := claimedAt.UTC()
		item.ClaimedAt = &utc
	}
	return &item, nil
}

func (s *Store) queryCargo(ctx context.Context, query string, args ...any) ([]*cargo.Cargo, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*cargo.Cargo
	for rows.Next() {
		item, err := scanCargo(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// Create inserts a new cargo in shipping with no text and no claim.
func (s *Store) Create(ctx context.Context, input cargo.NewCargo) (*cargo.Cargo, error) {
	if err := input.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "create cargo", err.Error(), nil)
	}
	now := s.now().UTC()
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO cargo (id, created_at, updated_at, paint_time, type, status, pending)
         VALUES ($1, $2, $2, $3, $4, $5, FALSE)`,
		id, now, input.PaintTime, string(input.Type), string(cargo.StatusShipping),
	); err != nil {
		return nil, fmt.Errorf("insert cargo: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID returns nil, nil when the cargo does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*cargo.Cargo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	item, err := scanCargo(s.pool.QueryRow(ctx, `SELECT `+cargoColumns+` FROM cargo WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cargo: %w", err)
	}
	return item, nil
}

// ListRecent returns the newest cargo first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*cargo.Cargo, error) {
	if limit <= 0 {
		limit = cargo.RecentLimit
	}
	items, err := s.queryCargo(ctx, `SELECT `+cargoColumns+` FROM cargo ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent cargo: %w", err)
	}
	return items, nil
}

// ListSince returns cargo created at or after since, oldest first.
func (s *Store) ListSince(ctx context.Context, since time.Time) ([]*cargo.Cargo, error) {
	items, err := s.queryCargo(ctx, `SELECT `+cargoColumns+` FROM cargo WHERE created_at >= $1 ORDER BY created_at`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list cargo since: %w", err)
	}
	return items, nil
}

// ListAll returns every cargo ordered by creation time.
func (s *Store) ListAll(ctx context.Context) ([]*cargo.Cargo, error) {
	items, err := s.queryCargo(ctx, `SELECT `+cargoColumns+` FROM cargo ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list cargo: %w", err)
	}
	return items, nil
}

// UpdateText sets both text fields directly, regardless of any claim.
func (s *Store) UpdateText(ctx context.Context, id, name, description string) error {
	notFound := services.Wrap(services.ErrNotFound, "store", "update cargo text", fmt.Sprintf("cargo %s", id), nil)
	if _, err := uuid.Parse(id); err != nil {
		return notFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE cargo SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		nullableString(name), nullableString(description), s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update cargo text: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// DeliverShipped moves shipping cargo created before cutoff to delivered.
func (s *Store) DeliverShipped(ctx context.Context, cutoff, now time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE cargo SET status = $1, updated_at = $2
         WHERE status = $3 AND created_at < $4
         RETURNING id::text`,
		string(cargo.StatusDelivered), now.UTC(), string(cargo.StatusShipping), cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("deliver shipped cargo: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("deliver shipped cargo: %w", err)
	}
	return ids, nil
}

// LaunchDelivered moves every delivered cargo to launched.
func (s *Store) LaunchDelivered(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cargo SET status = $1, updated_at = $2 WHERE status = $3`,
		string(cargo.StatusLaunched), now.UTC(), string(cargo.StatusDelivered),
	)
	if err != nil {
		return 0, fmt.Errorf("launch delivered cargo: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListUnenriched returns ids of cargo with no text and no claim.
func (s *Store) ListUnenriched(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text FROM cargo
         WHERE name IS NULL AND description IS NULL AND NOT pending
         ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list unenriched cargo: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list unenriched cargo: %w", err)
	}
	return ids, nil
}

// Claim marks the cargo pending if nobody holds it and it has no text. The
// returned token identifies this claim to Release and CompleteEnrichment.
func (s *Store) Claim(ctx context.Context, id string, now time.Time) (string, bool, error) {
	token := uuid.NewString()
	tag, err := s.pool.Exec(ctx,
		`UPDATE cargo SET pending = TRUE, claimed_at = $1, claim_token = $2, updated_at = $1
         WHERE id = $3 AND NOT pending AND name IS NULL AND description IS NULL`,
		now.UTC(), token, id,
	)
	if err != nil {
		return "", false, fmt.Errorf("claim cargo: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return "", false, nil
	}
	return token, true, nil
}

// Release clears the claim identified by token.
func (s *Store) Release(ctx context.Context, id, token string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE cargo SET pending = FALSE, claimed_at = NULL, claim_token = NULL, updated_at = $1
         WHERE id = $2 AND pending AND claim_token = $3`,
		s.now().UTC(), id, token,
	); err != nil {
		return fmt.Errorf("release cargo claim: %w", err)
	}
	return nil
}

// CompleteEnrichment persists generated text and clears the claim together.
func (s *Store) CompleteEnrichment(ctx context.Context, id, token, name, description string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cargo SET name = $1, description = $2, pending = FALSE, claimed_at = NULL, claim_token = NULL, updated_at = $3
         WHERE id = $4 AND pending AND claim_token = $5 AND name IS NULL AND description IS NULL`,
		name, description, s.now().UTC(), id, token,
	)
	if err != nil {
		return false, fmt.Errorf("complete enrichment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReclaimStaleClaims releases claims taken before cutoff.
func (s *Store) ReclaimStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cargo SET pending = FALSE, claimed_at = NULL, claim_token = NULL, updated_at = $1
         WHERE pending AND (claimed_at IS NULL OR claimed_at < $2)`,
		s.now().UTC(), cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale claims: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats returns a count of cargo grouped by status.
func (s *Store) Stats(ctx context.Context) (map[cargo.Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(1) FROM cargo GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("cargo stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[cargo.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[cargo.Status(status)] = count
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the database.
func (s *Store) CheckHealth(ctx context.Context) (cargo.Health, error) {
	health := cargo.Health{
		Driver:        "postgres",
		Location:      s.location,
		SchemaVersion: s.schemaVersion,
	}
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.pool.Ping(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping postgres: %w", err)
	}
	health.Reachable = true
	if err := s.pool.QueryRow(connCtx, `SELECT COUNT(1) FROM cargo WHERE pending`).Scan(&health.Pending); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count pending cargo: %w", err)
	}
	counts, err := s.Stats(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.Counts = counts
	return health, nil
}

// UpsertNews inserts or refreshes feed items keyed by link.
func (s *Store) UpsertNews(ctx context.Context, items []news.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		batch.Queue(
			`INSERT INTO news (link, title, summary, published_at, fetched_at)
             VALUES ($1, $2, $3, $4, $5)
             ON CONFLICT (link) DO UPDATE SET
                 title = EXCLUDED.title,
                 summary = EXCLUDED.summary,
                 published_at = EXCLUDED.published_at,
                 fetched_at = EXCLUDED.fetched_at`,
			item.Link, item.Title, nullableString(item.Summary), item.PublishedAt.UTC(), item.FetchedAt.UTC(),
		)
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("upsert news: %w", err)
		}
	}
	return batch.Len(), nil
}

// ListNews returns the newest news first. A limit <= 0 returns everything.
func (s *Store) ListNews(ctx context.Context, limit int) ([]news.Item, error) {
	query := `SELECT link, title, COALESCE(summary, ''), published_at, fetched_at FROM news ORDER BY published_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	defer rows.Close()

	var items []news.Item
	for rows.Next() {
		var item news.Item
		if err := rows.Scan(&item.Link, &item.Title, &item.Summary, &item.PublishedAt, &item.FetchedAt); err != nil {
			return nil, err
		}
		item.PublishedAt = item.PublishedAt.UTC()
		item.FetchedAt = item.FetchedAt.UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}
