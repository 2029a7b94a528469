package assets_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/assets"
	"cargoport/internal/services"
)

func TestWriteThenRead(t *testing.T) {
	st := assets.NewStore(filepath.Join(t.TempDir(), "texture"))
	id := uuid.NewString()

	n, err := st.Write(id, bytes.NewReader([]byte("jpeg-bytes")))
	require.NoError(t, err)
	assert.EqualValues(t, len("jpeg-bytes"), n)

	data, err := st.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	path, err := st.Path(id)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(st.Root(), id+".jpg"), path)

	entries, err := os.ReadDir(st.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")
}

func TestReadMissing(t *testing.T) {
	st := assets.NewStore(t.TempDir())
	_, err := st.Read(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestRejectsTraversalIDs(t *testing.T) {
	st := assets.NewStore(t.TempDir())
	_, err := st.Path("../../etc/passwd")
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = st.Write("../x", strings.NewReader("data"))
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestWriteRejectsEmpty(t *testing.T) {
	st := assets.NewStore(t.TempDir())
	_, err := st.Write(uuid.NewString(), strings.NewReader(""))
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestRemove(t *testing.T) {
	st := assets.NewStore(t.TempDir())
	id := uuid.NewString()
	_, err := st.Write(id, strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, st.Remove(id))
	require.NoError(t, st.Remove(id))
	_, err = st.Read(context.Background(), id)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
