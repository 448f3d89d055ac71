package gallery

import (
	"time"
)

// Embedding is a single enrolled face descriptor for a person.
// Vectors are unit-normalized at ingest so the dot product of two
// embeddings equals their cosine similarity.
type Embedding struct {
	ID      string    // unique identifier for auditing individual enrollments
	Vector  []float32
	Dim     int
	Source  string // origin label, e.g. a file name or "api"
	AddedAt time.Time
}

// DuplicatePair identifies two embeddings of the same person whose
// similarity is at or above the duplicate threshold.
type DuplicatePair struct {
	I          int
	J          int
	Similarity float64
}

// AddOutcome classifies the result of an enrollment attempt.
type AddOutcome string

const (
	// OutcomeCreated means a new person record was created with this embedding.
	OutcomeCreated AddOutcome = "created"
	// OutcomeAppended means the embedding was added to an existing record.
	OutcomeAppended AddOutcome = "appended"
	// OutcomeDuplicate means the embedding was rejected as a near-copy of an
	// embedding already stored for the same person.
	OutcomeDuplicate AddOutcome = "duplicate"
	// OutcomeNoFace means the detector found no face in the supplied image.
	OutcomeNoFace AddOutcome = "no_face"
	// OutcomeMultipleFaces means the enrollment image contained more than one
	// face. Enrollment photos must be unambiguous.
	OutcomeMultipleFaces AddOutcome = "multiple_faces"
)

// AddResult reports the outcome of an AddImage/AddEmbedding call.
type AddResult struct {
	Outcome    AddOutcome
	Name       string
	Similarity float64 // offending similarity when Outcome is OutcomeDuplicate
	Total      int     // embeddings stored for the person after the call
}

// Accepted reports whether the embedding was stored.
func (r AddResult) Accepted() bool {
	return r.Outcome == OutcomeCreated || r.Outcome == OutcomeAppended
}
