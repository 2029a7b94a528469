package api

import (
	"cargoport/internal/cargo"
	"cargoport/internal/enrichment"
	"cargoport/internal/news"
	"cargoport/internal/preflight"
	"cargoport/internal/scheduler"
)

// IntakeRequest is the form part of a cargo upload.
type IntakeRequest struct {
	CargoType string  `json:"cargoType" validate:"required,oneof=cake plant gadget toy letter other"`
	PaintTime float64 `json:"paintTime" validate:"gte=0,lte=86400"`
}

// EditTextRequest sets both text fields of a cargo directly.
type EditTextRequest struct {
	ID          string `json:"id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=4000"`
}

// CargoListResponse wraps a cargo listing.
type CargoListResponse struct {
	Cargo []cargo.View `json:"cargo"`
}

// CargoResponse wraps a single cargo.
type CargoResponse struct {
	Cargo cargo.View `json:"cargo"`
}

// IntakeResponse is returned after a successful upload.
type IntakeResponse struct {
	Cargo      cargo.View `json:"cargo"`
	TextureURL string     `json:"textureUrl"`
}

// NewsResponse wraps stored headlines.
type NewsResponse struct {
	News []news.Item `json:"news"`
}

// StatusResponse reports daemon runtime information.
type StatusResponse struct {
	Running     bool               `json:"running"`
	PID         int                `json:"pid"`
	Subscribers int                `json:"subscribers"`
	Jobs        []scheduler.Stats  `json:"jobs"`
	Store       cargo.Health       `json:"store"`
	Preflight   []preflight.Result `json:"preflight,omitempty"`
	// Enrichment is the outcome of the latest enrichment tick, if any ran.
	Enrichment *enrichment.Summary `json:"enrichment,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
