package cargo

import (
	"context"
	"time"
)

// Repository is the persistence surface over cargo entities. Every transition
// is a single conditional statement so concurrent callers cannot double-apply.
type Repository interface {
	// Create inserts a cargo in shipping with no text and no claim.
	Create(ctx context.Context, input NewCargo) (*Cargo, error)
	// GetByID returns nil, nil when the cargo does not exist.
	GetByID(ctx context.Context, id string) (*Cargo, error)
	ListRecent(ctx context.Context, limit int) ([]*Cargo, error)
	ListSince(ctx context.Context, since time.Time) ([]*Cargo, error)
	ListAll(ctx context.Context) ([]*Cargo, error)

	// UpdateText sets name and description directly. It returns an
	// services.ErrNotFound marked error for unknown ids.
	UpdateText(ctx context.Context, id, name, description string) error

	// DeliverShipped moves shipping cargo created before cutoff to delivered
	// and returns the affected ids.
	DeliverShipped(ctx context.Context, cutoff, now time.Time) ([]string, error)
	// LaunchDelivered moves every delivered cargo to launched and returns the count.
	LaunchDelivered(ctx context.Context, now time.Time) (int, error)

	// ListUnenriched returns ids with no text and no claim.
	ListUnenriched(ctx context.Context) ([]string, error)
	// Claim sets pending when the cargo is unclaimed and has no text.
	// It reports whether this caller won the claim and, if so, the token
	// that owns it.
	Claim(ctx context.Context, id string, now time.Time) (token string, won bool, err error)
	// Release clears the claim owned by token without touching text. A token
	// whose claim was reclaimed or replaced changes nothing.
	Release(ctx context.Context, id, token string) error
	// CompleteEnrichment writes both text fields and clears the claim in one
	// statement. It reports false, changing nothing, when token no longer
	// owns the claim or text was already present.
	CompleteEnrichment(ctx context.Context, id, token, name, description string) (bool, error)
	// ReclaimStaleClaims clears claims taken before cutoff.
	ReclaimStaleClaims(ctx context.Context, cutoff time.Time) (int64, error)

	Stats(ctx context.Context) (map[Status]int, error)
	CheckHealth(ctx context.Context) (Health, error)
}
