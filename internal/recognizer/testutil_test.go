package recognizer

import (
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-gallery/internal/gallery"
)

// newTestStore opens a gallery store backed by a file in a temp dir.
func newTestStore(t *testing.T) *gallery.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gallery.gob")
	store, err := gallery.Open(path, nil, gallery.Options{})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return store
}
