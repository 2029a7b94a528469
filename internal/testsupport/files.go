package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cargoport/internal/config"
)

// WriteTexture stores data as the texture for cargo id under the configured
// asset directory and returns the path written.
func WriteTexture(t testing.TB, cfg *config.Config, id string, data []byte) string {
	t.Helper()

	if len(data) == 0 {
		data = []byte{0xFF, 0xD8, 0xFF, 0xD9}
	}
	path := filepath.Join(cfg.TextureDir(), id+".jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
