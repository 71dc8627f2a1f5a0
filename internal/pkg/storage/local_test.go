package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	t.Run("upload, download and delete", func(t *testing.T) {
		key, err := s.Upload(ctx, strings.NewReader("image-bytes"), "screenshots/emp-1/a.jpg", "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "screenshots/emp-1/a.jpg", key)

		rc, err := s.Download(ctx, key)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, "image-bytes", string(data))

		require.NoError(t, s.Delete(ctx, key))
		require.NoError(t, s.Delete(ctx, key))

		_, err = s.Download(ctx, key)
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("traversal stays inside the base directory", func(t *testing.T) {
		key, err := s.Upload(ctx, strings.NewReader("x"), "../../etc/evil.jpg", "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "etc/evil.jpg", key)

		_, err = s.Upload(ctx, strings.NewReader("x"), "..", "image/jpeg")
		assert.ErrorIs(t, err, ErrInvalidPath)
	})
}
