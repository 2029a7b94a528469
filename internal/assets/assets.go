// Package assets stores cargo textures on the local filesystem, one JPEG per
// cargo id.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"cargoport/internal/services"
)

// MediaType is the content type of every stored texture.
const MediaType = "image/jpeg"

// MaxTextureBytes caps a single upload.
const MaxTextureBytes = 10 << 20

// Store reads and writes textures under a root directory.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the texture directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the texture location for id. Ids must be UUIDs so they can
// never escape the root.
func (s *Store) Path(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "assets", "resolve path", fmt.Sprintf("invalid cargo id %q", id), nil)
	}
	return filepath.Join(s.root, parsed.String()+".jpg"), nil
}

// Read returns the texture bytes for id. A missing texture is an
// services.ErrNotFound marked error.
func (s *Store) Read(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "assets", "read texture", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("read texture %s: %w", id, err)
	}
	return data, nil
}

// Write stores r as the texture for id, replacing any previous file
// atomically. It returns the number of bytes written.
func (s *Store) Write(id string, r io.Reader) (int64, error) {
	path, err := s.Path(id)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return 0, fmt.Errorf("create texture dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp texture: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.Copy(tmp, io.LimitReader(r, MaxTextureBytes+1))
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write texture %s: %w", id, err)
	}
	if n > MaxTextureBytes {
		_ = tmp.Close()
		return 0, services.Wrap(services.ErrValidation, "assets", "write texture", fmt.Sprintf("texture exceeds %d bytes", MaxTextureBytes), nil)
	}
	if n == 0 {
		_ = tmp.Close()
		return 0, services.Wrap(services.ErrValidation, "assets", "write texture", "texture is empty", nil)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close texture %s: %w", id, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, fmt.Errorf("chmod texture %s: %w", id, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("commit texture %s: %w", id, err)
	}
	return n, nil
}

// Remove deletes the texture for id. A missing texture is not an error.
func (s *Store) Remove(id string) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove texture %s: %w", id, err)
	}
	return nil
}
