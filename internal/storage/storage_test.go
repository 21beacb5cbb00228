package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/config"
	"github.com/juggajay/site-proof-sub006/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorageInterfaceCompliance(t *testing.T) {
	var _ storage.Storage = (*storage.LocalStorage)(nil)
	var _ storage.Storage = (*storage.AzureBlobStorage)(nil)
}

func TestNewStorage(t *testing.T) {
	t.Run("local creates the base directory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "uploads")
		s, err := storage.NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: base}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &storage.LocalStorage{}, s)

		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("azure needs a connection string", func(t *testing.T) {
		_, err := storage.NewStorage(&config.StorageConfig{Mode: "azure", CloudContainer: "drawings"}, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := storage.NewStorage(&config.StorageConfig{Mode: "s3"}, zap.NewNop())
		assert.ErrorContains(t, err, "unsupported storage mode")
	})
}

func TestDrawingKey(t *testing.T) {
	project, drawing := uuid.New(), uuid.New()

	key := storage.DrawingKey(project, drawing, "General Arrangement.PDF")
	assert.Equal(t, "projects/"+project.String()+"/drawings/"+drawing.String()+".pdf", key)

	// the client filename never reaches the key
	key = storage.DrawingKey(project, drawing, "../../etc/passwd")
	assert.Equal(t, "projects/"+project.String()+"/drawings/"+drawing.String(), key)

	assert.NotEqual(t, key, storage.DrawingKey(project, uuid.New(), "../../etc/passwd"))
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name    string
		key     string
		content []byte
	}{
		{"pdf drawing", "projects/p1/drawings/d1.pdf", []byte("%PDF-1.7")},
		{"binary image", "projects/p1/drawings/d2.jpg", []byte{0xFF, 0xD8, 0xFF, 0xE0}},
		{"empty file", "projects/p1/drawings/d3.txt", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := ls.Put(ctx, tt.key, "application/octet-stream", bytes.NewReader(tt.content))
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.content), size)

			rc, err := ls.Get(ctx, tt.key)
			require.NoError(t, err)
			defer rc.Close()
			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, tt.content, got)
		})
	}

	t.Run("put replaces content", func(t *testing.T) {
		key := "projects/p1/drawings/replace.pdf"
		_, err := ls.Put(ctx, key, "application/pdf", strings.NewReader("rev A"))
		require.NoError(t, err)
		_, err = ls.Put(ctx, key, "application/pdf", strings.NewReader("B"))
		require.NoError(t, err)

		rc, err := ls.Get(ctx, key)
		require.NoError(t, err)
		defer rc.Close()
		got, _ := io.ReadAll(rc)
		assert.Equal(t, "B", string(got))
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := ls.Get(ctx, "projects/p1/drawings/none.pdf")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		key := "projects/p1/drawings/gone.pdf"
		_, err := ls.Put(ctx, key, "application/pdf", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, ls.Delete(ctx, key))
		require.NoError(t, ls.Delete(ctx, key))
		_, err = ls.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("keys cannot escape the base path", func(t *testing.T) {
		for _, key := range []string{"../outside.pdf", "/etc/passwd", "a/../../outside"} {
			_, err := ls.Put(ctx, key, "text/plain", strings.NewReader("x"))
			assert.Error(t, err, key)
			_, err = ls.Get(ctx, key)
			assert.Error(t, err, key)
		}
	})
}
