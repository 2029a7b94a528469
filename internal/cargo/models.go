package cargo

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a cargo entity.
type Status string

const (
	StatusShipping  Status = "shipping"
	StatusDelivered Status = "delivered"
	StatusLaunched  Status = "launched"
)

var allStatuses = []Status{StatusShipping, StatusDelivered, StatusLaunched}

// AllStatuses returns the lifecycle statuses in order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, candidate := range allStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Type is the category chosen at intake.
type Type string

const (
	TypeCake   Type = "cake"
	TypePlant  Type = "plant"
	TypeGadget Type = "gadget"
	TypeToy    Type = "toy"
	TypeLetter Type = "letter"
	TypeOther  Type = "other"
)

var allTypes = []Type{TypeCake, TypePlant, TypeGadget, TypeToy, TypeLetter, TypeOther}

// Types returns every accepted cargo type.
func Types() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// ParseType normalizes and validates a cargo type name.
func ParseType(value string) (Type, error) {
	candidate := Type(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range allTypes {
		if candidate == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown cargo type %q", value)
}

// ShippingDelay is how long a cargo stays in shipping before it is delivered.
const ShippingDelay = 60 * time.Second

// RecentLimit bounds the "latest cargo" listing.
const RecentLimit = 20

// Cargo is a persisted cargo entity.
type Cargo struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PaintTime   float64    `json:"paintTime"`
	Type        Type       `json:"type"`
	Status      Status     `json:"status"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Pending     bool       `json:"pending"`
	ClaimedAt   *time.Time `json:"claimedAt,omitempty"`
}

// HasText reports whether either text field has been set.
func (c *Cargo) HasText() bool {
	return c != nil && (c.Name != "" || c.Description != "")
}

// NeedsEnrichment reports whether the cargo is eligible for a new claim.
func (c *Cargo) NeedsEnrichment() bool {
	return c != nil && !c.HasText() && !c.Pending
}

// View is the external read model. Pending and the claim lease are omitted.
type View struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	PaintTime   float64   `json:"paintTime"`
	Type        Type      `json:"type"`
	Status      Status    `json:"status"`
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
}

// View converts the cargo into its external representation.
func (c *Cargo) View() View {
	v := View{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		PaintTime: c.PaintTime,
		Type:      c.Type,
		Status:    c.Status,
	}
	if c.Name != "" {
		name := c.Name
		v.Name = &name
	}
	if c.Description != "" {
		description := c.Description
		v.Description = &description
	}
	return v
}

// Views converts a slice of cargo into external views.
func Views(items []*Cargo) []View {
	out := make([]View, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, item.View())
	}
	return out
}

// NewCargo carries the intake fields for a new cargo.
type NewCargo struct {
	// ID is optional; when empty the store assigns a fresh UUID. Intake sets
	// it so the texture can be written before the row becomes visible.
	ID        string
	Type      Type
	PaintTime float64
}

// Validate checks intake fields.
func (n NewCargo) Validate() error {
	if n.ID != "" {
		if _, err := uuid.Parse(n.ID); err != nil {
			return fmt.Errorf("cargo id %q is not a uuid", n.ID)
		}
	}
	if _, err := ParseType(string(n.Type)); err != nil {
		return err
	}
	if n.PaintTime < 0 {
		return fmt.Errorf("paint time must be >= 0, got %v", n.PaintTime)
	}
	return nil
}

// Health summarizes the state of a cargo store for diagnostics.
type Health struct {
	Driver        string         `json:"driver"`
	Location      string         `json:"location"`
	Reachable     bool           `json:"reachable"`
	SchemaVersion int            `json:"schemaVersion"`
	Counts        map[Status]int `json:"counts"`
	Pending       int            `json:"pending"`
	Error         string         `json:"error,omitempty"`
}
