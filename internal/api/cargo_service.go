package api

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"cargoport/internal/assets"
	"cargoport/internal/broadcast"
	"cargoport/internal/cargo"
	"cargoport/internal/services"
)

// CargoRepository abstracts the cargo persistence the service needs.
type CargoRepository interface {
	Create(ctx context.Context, input cargo.NewCargo) (*cargo.Cargo, error)
	GetByID(ctx context.Context, id string) (*cargo.Cargo, error)
	ListRecent(ctx context.Context, limit int) ([]*cargo.Cargo, error)
	ListSince(ctx context.Context, since time.Time) ([]*cargo.Cargo, error)
	UpdateText(ctx context.Context, id, name, description string) error
}

// TextureStore abstracts texture persistence.
type TextureStore interface {
	Write(id string, r io.Reader) (int64, error)
	Remove(id string) error
}

// CargoService exposes cargo operations returning API DTOs.
type CargoService struct {
	repo      CargoRepository
	textures  TextureStore
	publisher broadcast.Publisher
	publicURL string
	now       func() time.Time
}

// NewCargoService constructs a CargoService. publisher may be nil.
func NewCargoService(repo CargoRepository, textures TextureStore, publisher broadcast.Publisher, publicURL string) *CargoService {
	if repo == nil {
		return nil
	}
	return &CargoService{
		repo:      repo,
		textures:  textures,
		publisher: publisher,
		publicURL: strings.TrimRight(strings.TrimSpace(publicURL), "/"),
		now:       time.Now,
	}
}

// TextureURL returns the public location of a cargo texture.
func TextureURL(publicURL, id string) string {
	return strings.TrimRight(publicURL, "/") + "/api/storage/texture/" + id + ".jpg"
}

// Intake validates an upload, stores its texture, creates the cargo in
// shipping and announces it.
func (s *CargoService) Intake(ctx context.Context, req IntakeRequest, texture io.Reader) (IntakeResponse, error) {
	if s == nil || s.textures == nil {
		return IntakeResponse{}, services.Wrap(services.ErrConfiguration, "api", "intake", "texture store unavailable", nil)
	}
	if err := Check(req); err != nil {
		return IntakeResponse{}, err
	}
	typ, err := cargo.ParseType(req.CargoType)
	if err != nil {
		return IntakeResponse{}, services.Wrap(services.ErrValidation, "api", "intake", err.Error(), nil)
	}
	if texture == nil {
		return IntakeResponse{}, services.Wrap(services.ErrValidation, "api", "intake", "file is required", nil)
	}

	buffered := bufio.NewReaderSize(texture, 512)
	head, err := buffered.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return IntakeResponse{}, fmt.Errorf("read upload: %w", err)
	}
	if contentType := http.DetectContentType(head); contentType != assets.MediaType {
		return IntakeResponse{}, services.Wrap(services.ErrValidation, "api", "intake", fmt.Sprintf("file must be %s, got %s", assets.MediaType, contentType), nil)
	}

	id := uuid.NewString()
	if _, err := s.textures.Write(id, buffered); err != nil {
		return IntakeResponse{}, err
	}
	item, err := s.repo.Create(ctx, cargo.NewCargo{ID: id, Type: typ, PaintTime: req.PaintTime})
	if err != nil {
		_ = s.textures.Remove(id)
		return IntakeResponse{}, err
	}

	url := TextureURL(s.publicURL, item.ID)
	if s.publisher != nil {
		s.publisher.Publish(broadcast.CargoCreated(item.ID, string(item.Type), url))
	}
	return IntakeResponse{Cargo: item.View(), TextureURL: url}, nil
}

// Recent returns the newest cargo, at most cargo.RecentLimit.
func (s *CargoService) Recent(ctx context.Context) ([]cargo.View, error) {
	if s == nil {
		return nil, nil
	}
	items, err := s.repo.ListRecent(ctx, cargo.RecentLimit)
	if err != nil {
		return nil, err
	}
	return cargo.Views(items), nil
}

// Today returns cargo created since the most recent UTC midnight.
func (s *CargoService) Today(ctx context.Context) ([]cargo.View, error) {
	if s == nil {
		return nil, nil
	}
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	items, err := s.repo.ListSince(ctx, midnight)
	if err != nil {
		return nil, err
	}
	return cargo.Views(items), nil
}

// Describe fetches a single cargo. Invalid ids are validation errors and
// unknown ids return nil, nil.
func (s *CargoService) Describe(ctx context.Context, id string) (*cargo.View, error) {
	if s == nil {
		return nil, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, services.Wrap(services.ErrValidation, "api", "describe cargo", fmt.Sprintf("invalid uuid %q", id), nil)
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	view := item.View()
	return &view, nil
}

// EditText overwrites both text fields regardless of any enrichment claim and
// announces the new text.
func (s *CargoService) EditText(ctx context.Context, req EditTextRequest) (cargo.View, error) {
	if s == nil {
		return cargo.View{}, services.Wrap(services.ErrConfiguration, "api", "edit text", "cargo service unavailable", nil)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := Check(req); err != nil {
		return cargo.View{}, err
	}
	if err := s.repo.UpdateText(ctx, req.ID, req.Name, req.Description); err != nil {
		return cargo.View{}, err
	}
	item, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return cargo.View{}, err
	}
	if item == nil {
		return cargo.View{}, services.Wrap(services.ErrNotFound, "api", "edit text", req.ID, nil)
	}
	if s.publisher != nil {
		s.publisher.Publish(broadcast.CargoInfo(item.ID, item.Name, item.Description))
	}
	return item.View(), nil
}
