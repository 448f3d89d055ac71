package gallery

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCorruptGallery is returned when the persisted gallery file exists but
// cannot be decoded. The store refuses to start over an unreadable file so
// data loss stays visible to the operator.
var ErrCorruptGallery = errors.New("gallery file is corrupt")

const galleryFileVersion = 1

// galleryFile is the on-disk representation of the gallery.
type galleryFile struct {
	Version int
	SavedAt time.Time
	People  map[string][]Embedding
}

// loadGallery reads the persisted gallery. A missing file is a valid empty
// gallery; a present but undecodable file is a hard error.
func loadGallery(path string) (map[string][]Embedding, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]Embedding), nil
		}
		return nil, fmt.Errorf("opening gallery file: %w", err)
	}
	defer f.Close()

	var file galleryFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCorruptGallery, path, err)
	}
	if file.Version <= 0 || file.Version > galleryFileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d in %s", ErrCorruptGallery, file.Version, path)
	}
	if file.People == nil {
		file.People = make(map[string][]Embedding)
	}
	return file.People, nil
}

// saveGallery writes the full gallery atomically: the new state goes to a
// temporary file next to the target and is renamed over it, so a concurrent
// reader sees either the fully-old or fully-new file, never a partial write.
func saveGallery(path string, people map[string][]Embedding) error {
	// Temp file lives next to the target: renames across filesystems are
	// not atomic.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gallery-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp gallery file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	file := galleryFile{
		Version: galleryFileVersion,
		SavedAt: time.Now().UTC(),
		People:  people,
	}
	if err := gob.NewEncoder(tmp).Encode(file); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding gallery: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing gallery file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp gallery file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing gallery file: %w", err)
	}
	return nil
}
