// Package recognizer matches query face embeddings against the enrolled
// gallery and returns a ranked top-k result.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kozaktomas/face-gallery/internal/detector"
	"github.com/kozaktomas/face-gallery/internal/gallery"
)

const (
	// DefaultThreshold is the minimum best score required to label a query
	// with a person's name instead of Unknown. The comparison is inclusive.
	DefaultThreshold = 0.5
	// DefaultTopK is the default number of ranked candidates returned.
	DefaultTopK = 3
	// UnknownLabel is the label reported when the best score is below the
	// threshold.
	UnknownLabel = "Unknown"
)

// Outcome classifies a recognition result.
type Outcome string

const (
	// OutcomeMatch means the best candidate reached the threshold.
	OutcomeMatch Outcome = "match"
	// OutcomeUnknown means candidates exist but none reached the threshold.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeNoFace means the detector found no face in the query image.
	OutcomeNoFace Outcome = "no_face"
	// OutcomeEmptyGallery means no one is enrolled.
	OutcomeEmptyGallery Outcome = "empty_gallery"
)

// Match is one ranked candidate.
type Match struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Result is the outcome of a recognition call. Score and TopMatches are
// populated whenever candidates exist, including on an Unknown verdict, so
// callers can judge confidence either way.
type Result struct {
	Outcome    Outcome   `json:"outcome"`
	Label      string    `json:"label"`
	Score      float64   `json:"score"`
	TopMatches []Match   `json:"top_matches"`
	BBox       []float64 `json:"bbox,omitempty"` // query face box, image input only
}

// GalleryReader is the gallery access the recognizer needs.
type GalleryReader interface {
	Snapshot() map[string][]gallery.Embedding
}

// QueryExtractor resolves a query image to the embedding and bounding box of
// its largest face.
type QueryExtractor interface {
	QueryEmbedding(ctx context.Context, image []byte) ([]float32, []float64, error)
}

// Options configures a Recognizer.
type Options struct {
	Threshold float64 // zero means DefaultThreshold
	TopK      int     // zero means DefaultTopK
	// UseHNSW enables the approximate index for large galleries. The exact
	// scan is the default; it preserves scoring exactly.
	UseHNSW bool
}

// Recognizer matches query embeddings against the gallery. Each call reads
// the gallery's current snapshot; the recognizer itself is stateless apart
// from the optional index.
type Recognizer struct {
	reader    GalleryReader
	extractor QueryExtractor
	opts      Options
	index     *Index
}

// New creates a Recognizer. extractor may be nil when only
// RecognizeEmbedding is used.
func New(reader GalleryReader, extractor QueryExtractor, opts Options) *Recognizer {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	r := &Recognizer{
		reader:    reader,
		extractor: extractor,
		opts:      opts,
	}
	if opts.UseHNSW {
		r.index = NewIndex()
		r.Refresh()
	}
	return r
}

// Refresh rebuilds the approximate index from the current gallery snapshot.
// No-op when the index is disabled. Wire this to the store's change hook so
// the index tracks mutations.
func (r *Recognizer) Refresh() {
	if r.index == nil {
		return
	}
	r.index.Build(r.reader.Snapshot())
}

// RecognizeImage resolves the image to its largest face's embedding and
// matches it. Detection failures surface as the NoFace outcome, not an
// error; errors are reserved for infrastructure failures.
func (r *Recognizer) RecognizeImage(ctx context.Context, image []byte, topK int) (Result, error) {
	if r.extractor == nil {
		return Result{}, errors.New("recognizer has no detector configured")
	}
	vec, bbox, err := r.extractor.QueryEmbedding(ctx, image)
	if err != nil {
		if errors.Is(err, detector.ErrNoFaceDetected) {
			return Result{Outcome: OutcomeNoFace, Label: ""}, nil
		}
		return Result{}, fmt.Errorf("extracting query embedding: %w", err)
	}
	result := r.RecognizeEmbedding(vec, topK)
	result.BBox = bbox
	return result, nil
}

// RecognizeEmbedding matches a query embedding against the gallery.
// Each person contributes their best (maximum) similarity across stored
// embeddings: one well-matching enrollment photo is enough to identify
// someone. topK <= 0 uses the configured default.
func (r *Recognizer) RecognizeEmbedding(vec []float32, topK int) Result {
	if topK <= 0 {
		topK = r.opts.TopK
	}

	var matches []Match
	if r.index != nil && r.index.Count() > 0 {
		matches = r.index.Search(vec, topK)
	} else {
		matches = r.scan(vec)
	}
	if len(matches) == 0 {
		return Result{Outcome: OutcomeEmptyGallery}
	}

	// Stable sort keeps the sorted-name candidate order on equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	best := matches[0]
	result := Result{
		Outcome:    OutcomeMatch,
		Label:      best.Name,
		Score:      best.Score,
		TopMatches: matches,
	}
	if best.Score < r.opts.Threshold {
		result.Outcome = OutcomeUnknown
		result.Label = UnknownLabel
	}
	return result
}

// scan computes each person's best similarity with an exact pass over the
// whole gallery. Records emptied by duplicate removal contribute no
// candidate and are invisible to matching.
func (r *Recognizer) scan(vec []float32) []Match {
	snapshot := r.reader.Snapshot()

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	matches := make([]Match, 0, len(names))
	for _, name := range names {
		embeddings := snapshot[name]
		if len(embeddings) == 0 {
			continue
		}
		best := gallery.CosineSimilarity(vec, embeddings[0].Vector)
		for _, emb := range embeddings[1:] {
			if score := gallery.CosineSimilarity(vec, emb.Vector); score > best {
				best = score
			}
		}
		matches = append(matches, Match{Name: name, Score: best})
	}
	return matches
}
