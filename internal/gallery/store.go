// Package gallery owns the persistent mapping from person name to the set of
// face embeddings enrolled for that person. Every mutation is persisted
// before it becomes visible to readers, so a second reader never observes
// uncommitted in-memory state.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-gallery/internal/detector"
)

// DefaultDuplicateThreshold is the similarity at or above which a new
// enrollment image is considered a repeat of an already-stored one.
const DefaultDuplicateThreshold = 0.95

var (
	// ErrNotFound is returned when the named person does not exist.
	ErrNotFound = errors.New("person not found")
	// ErrIndexOutOfRange is returned when an embedding index does not exist.
	ErrIndexOutOfRange = errors.New("embedding index out of range")
	// ErrEmptyName is returned when a person name is empty.
	ErrEmptyName = errors.New("person name must not be empty")
	// ErrEmptyEmbedding is returned when an embedding vector is empty.
	ErrEmptyEmbedding = errors.New("embedding must not be empty")
)

// Extractor resolves raw enrollment image bytes to a single face embedding.
// It fails with detector.ErrNoFaceDetected or detector.ErrMultipleFaces when
// the image does not contain exactly one face.
type Extractor interface {
	EnrollmentEmbedding(ctx context.Context, image []byte) ([]float32, error)
}

// Options configures a Store.
type Options struct {
	// DuplicateThreshold is used when a mutation does not supply its own.
	// Zero means DefaultDuplicateThreshold.
	DuplicateThreshold float64
	// OnChange, when set, runs after every committed mutation, outside the
	// store lock. Used to keep derived structures (e.g. a search index) in
	// sync.
	OnChange func()
}

// Store is the durable gallery of per-person embeddings.
//
// Mutations follow compute-new-state, persist, commit: the persisted file is
// replaced atomically before memory is updated, so a persistence failure
// never leaves memory and disk inconsistent. The mutex makes the store safe
// for the single-process concurrent access the web server needs; concurrent
// mutators in separate processes still require external coordination.
type Store struct {
	mu        sync.RWMutex
	path      string
	people    map[string][]Embedding
	extractor Extractor
	opts      Options
}

// Open loads the gallery persisted at path, or starts empty if no file
// exists there. A present-but-unreadable file is a hard error; the store
// never silently resets enrolled data.
func Open(path string, extractor Extractor, opts Options) (*Store, error) {
	if opts.DuplicateThreshold == 0 {
		opts.DuplicateThreshold = DefaultDuplicateThreshold
	}
	people, err := loadGallery(path)
	if err != nil {
		return nil, err
	}
	return &Store{
		path:      path,
		people:    people,
		extractor: extractor,
		opts:      opts,
	}, nil
}

// Path returns the location of the persisted gallery file.
func (s *Store) Path() string {
	return s.path
}

// SetOnChange installs the post-mutation hook after construction. Intended
// for wiring derived structures whose construction needs the opened store.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.opts.OnChange = fn
	s.mu.Unlock()
}

// Reload re-reads the persisted file, picking up mutations made through a
// different Store instance. Readers do not see such mutations otherwise.
func (s *Store) Reload() error {
	people, err := loadGallery(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.people = people
	s.mu.Unlock()
	s.notify()
	return nil
}

// AddImage enrolls an image for name. The image is resolved to an embedding
// via the detection collaborator; images with zero or multiple faces are
// rejected with the matching outcome. threshold <= 0 uses the store default.
func (s *Store) AddImage(ctx context.Context, name string, image []byte, source string, threshold float64) (AddResult, error) {
	if name == "" {
		return AddResult{}, ErrEmptyName
	}
	vec, err := s.extractor.EnrollmentEmbedding(ctx, image)
	if err != nil {
		switch {
		case errors.Is(err, detector.ErrNoFaceDetected):
			return AddResult{Outcome: OutcomeNoFace, Name: name}, nil
		case errors.Is(err, detector.ErrMultipleFaces):
			return AddResult{Outcome: OutcomeMultipleFaces, Name: name}, nil
		}
		return AddResult{}, fmt.Errorf("extracting embedding: %w", err)
	}
	return s.AddEmbedding(name, vec, source, threshold)
}

// AddEmbedding enrolls a precomputed embedding for name. New names always
// succeed; for existing names the vector is checked against every embedding
// already stored for that name and rejected as a duplicate when any
// similarity reaches the threshold. The duplicate check never looks at other
// people's embeddings.
func (s *Store) AddEmbedding(name string, vec []float32, source string, threshold float64) (AddResult, error) {
	result, err := s.addEmbedding(name, vec, source, threshold)
	if err == nil && result.Accepted() {
		s.notify()
	}
	return result, err
}

func (s *Store) addEmbedding(name string, vec []float32, source string, threshold float64) (AddResult, error) {
	if name == "" {
		return AddResult{}, ErrEmptyName
	}
	if len(vec) == 0 {
		return AddResult{}, ErrEmptyEmbedding
	}
	if threshold <= 0 {
		threshold = s.opts.DuplicateThreshold
	}
	normed := Normalize(vec)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, known := s.people[name]
	for _, emb := range existing {
		similarity := CosineSimilarity(normed, emb.Vector)
		if similarity >= threshold {
			return AddResult{
				Outcome:    OutcomeDuplicate,
				Name:       name,
				Similarity: similarity,
				Total:      len(existing),
			}, nil
		}
	}

	entry := Embedding{
		ID:      uuid.NewString(),
		Vector:  normed,
		Dim:     len(normed),
		Source:  source,
		AddedAt: time.Now().UTC(),
	}

	next := s.cloneLocked()
	next[name] = append(next[name], entry)
	if err := saveGallery(s.path, next); err != nil {
		return AddResult{}, err
	}
	s.people = next

	outcome := OutcomeAppended
	if !known {
		outcome = OutcomeCreated
	}
	return AddResult{Outcome: outcome, Name: name, Total: len(next[name])}, nil
}

// RemovePerson deletes the whole record for name.
func (s *Store) RemovePerson(name string) error {
	if err := s.removePerson(name); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) removePerson(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.people[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	next := s.cloneLocked()
	delete(next, name)
	if err := saveGallery(s.path, next); err != nil {
		return err
	}
	s.people = next
	return nil
}

// RemoveEmbedding deletes the embedding at index from name's record.
// Removal shifts subsequent indices down by one; callers deleting several
// indices for the same person must process them in descending order.
// The record itself survives even when its last embedding is removed.
func (s *Store) RemoveEmbedding(name string, index int) error {
	if err := s.removeEmbedding(name, index); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) removeEmbedding(name string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.people[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if index < 0 || index >= len(existing) {
		return fmt.Errorf("%w: %s has %d embeddings, got index %d", ErrIndexOutOfRange, name, len(existing), index)
	}
	next := s.cloneLocked()
	updated := make([]Embedding, 0, len(existing)-1)
	updated = append(updated, existing[:index]...)
	updated = append(updated, existing[index+1:]...)
	next[name] = updated
	if err := saveGallery(s.path, next); err != nil {
		return err
	}
	s.people = next
	return nil
}

// FindDuplicates reports, per person, every pair of distinct embedding
// indices (i < j) whose similarity is at or above threshold. People without
// qualifying pairs are omitted. Quadratic per person, which is fine for
// enrollment-sized records. threshold <= 0 uses the store default.
func (s *Store) FindDuplicates(threshold float64) map[string][]DuplicatePair {
	if threshold <= 0 {
		threshold = s.opts.DuplicateThreshold
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string][]DuplicatePair)
	for name, embeddings := range s.people {
		var pairs []DuplicatePair
		for i := 0; i < len(embeddings); i++ {
			for j := i + 1; j < len(embeddings); j++ {
				similarity := CosineSimilarity(embeddings[i].Vector, embeddings[j].Vector)
				if similarity >= threshold {
					pairs = append(pairs, DuplicatePair{I: i, J: j, Similarity: similarity})
				}
			}
		}
		if len(pairs) > 0 {
			results[name] = pairs
		}
	}
	return results
}

// People returns all enrolled names in sorted order.
func (s *Store) People() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.people))
	for name := range s.people {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Counts returns the number of stored embeddings per person.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.people))
	for name, embeddings := range s.people {
		counts[name] = len(embeddings)
	}
	return counts
}

// Embeddings returns a copy of the embeddings stored for name.
func (s *Store) Embeddings(name string) ([]Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.people[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	out := make([]Embedding, len(existing))
	copy(out, existing)
	return out, nil
}

// Snapshot returns a copy of the full gallery for matching. The embedding
// slices are copied; the vectors themselves are shared and immutable.
func (s *Store) Snapshot() map[string][]Embedding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGallery(s.people)
}

// Empty reports whether no people are enrolled.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.people) == 0
}

// cloneLocked copies the gallery map so a failed save leaves the committed
// state untouched. Caller must hold mu.
func (s *Store) cloneLocked() map[string][]Embedding {
	return cloneGallery(s.people)
}

func cloneGallery(people map[string][]Embedding) map[string][]Embedding {
	out := make(map[string][]Embedding, len(people))
	for name, embeddings := range people {
		copied := make([]Embedding, len(embeddings))
		copy(copied, embeddings)
		out[name] = copied
	}
	return out
}

// notify runs the change hook outside the store lock so the hook can read
// the store freely.
func (s *Store) notify() {
	s.mu.RLock()
	fn := s.opts.OnChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
