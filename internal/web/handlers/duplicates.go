package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-gallery/internal/config"
	"github.com/kozaktomas/face-gallery/internal/gallery"
)

// DuplicatesHandler serves duplicate-embedding discovery.
type DuplicatesHandler struct {
	config *config.Config
	store  *gallery.Store
}

// NewDuplicatesHandler creates a new duplicates handler
func NewDuplicatesHandler(cfg *config.Config, store *gallery.Store) *DuplicatesHandler {
	return &DuplicatesHandler{config: cfg, store: store}
}

// DuplicateEntry is one near-duplicate pair within a person's record.
type DuplicateEntry struct {
	I          int     `json:"i"`
	J          int     `json:"j"`
	Similarity float64 `json:"similarity"`
}

// DuplicatesResponse maps person name to qualifying pairs.
type DuplicatesResponse struct {
	Threshold  float64                     `json:"threshold"`
	Duplicates map[string][]DuplicateEntry `json:"duplicates"`
}

// List reports per person every pair of stored embeddings whose similarity
// reaches the threshold (default from config).
func (h *DuplicatesHandler) List(w http.ResponseWriter, r *http.Request) {
	threshold := queryFloat(r, "threshold", h.config.Gallery.DuplicateThreshold)

	found := h.store.FindDuplicates(threshold)
	duplicates := make(map[string][]DuplicateEntry, len(found))
	for name, pairs := range found {
		entries := make([]DuplicateEntry, 0, len(pairs))
		for _, p := range pairs {
			entries = append(entries, DuplicateEntry{I: p.I, J: p.J, Similarity: p.Similarity})
		}
		duplicates[name] = entries
	}

	respondJSON(w, http.StatusOK, DuplicatesResponse{
		Threshold:  threshold,
		Duplicates: duplicates,
	})
}
