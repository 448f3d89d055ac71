package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-gallery/internal/config"
	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/kozaktomas/face-gallery/internal/names"
)

// PeopleHandler serves the person CRUD endpoints.
type PeopleHandler struct {
	config *config.Config
	store  *gallery.Store
}

// NewPeopleHandler creates a new people handler
func NewPeopleHandler(cfg *config.Config, store *gallery.Store) *PeopleHandler {
	return &PeopleHandler{config: cfg, store: store}
}

// PersonInfo is one entry of the people listing.
type PersonInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ListResponse is the people listing response.
type ListResponse struct {
	People []PersonInfo `json:"people"`
	Total  int          `json:"total"`
}

// AddResponse reports an enrollment outcome.
type AddResponse struct {
	Outcome    gallery.AddOutcome `json:"outcome"`
	Name       string             `json:"name"`
	Similarity float64            `json:"similarity,omitempty"`
	Total      int                `json:"total"`
}

// List returns enrolled names with embedding counts. The optional search
// query filters names case- and diacritics-insensitively.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	counts := h.store.Counts()
	filtered := names.Filter(h.store.People(), search)

	people := make([]PersonInfo, 0, len(filtered))
	for _, name := range filtered {
		people = append(people, PersonInfo{Name: name, Count: counts[name]})
	}
	respondJSON(w, http.StatusOK, ListResponse{People: people, Total: len(people)})
}

// Add enrolls an image upload or a JSON embedding for the named person.
// Domain outcomes (duplicate, no face, multiple faces) come back as 200
// responses with the outcome field set; only infrastructure failures are
// error statuses.
func (h *PeopleHandler) Add(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "person name is required")
		return
	}
	threshold := queryFloat(r, "threshold", h.config.Gallery.DuplicateThreshold)

	image, embedding, source, err := readInput(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var result gallery.AddResult
	if image != nil {
		result, err = h.store.AddImage(r.Context(), name, image, source, threshold)
	} else {
		result, err = h.store.AddEmbedding(name, embedding, source, threshold)
	}
	if err != nil {
		if errors.Is(err, gallery.ErrEmptyName) || errors.Is(err, gallery.ErrEmptyEmbedding) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("add person %s failed: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to enroll person")
		return
	}

	respondJSON(w, http.StatusOK, AddResponse{
		Outcome:    result.Outcome,
		Name:       result.Name,
		Similarity: result.Similarity,
		Total:      result.Total,
	})
}

// Remove deletes the whole person record.
func (h *PeopleHandler) Remove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.store.RemovePerson(name); err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("remove person %s failed: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to remove person")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"removed": name})
}

// RemoveEmbedding deletes a single embedding by index. Subsequent indices
// shift down by one; clients deleting several must go in descending order.
func (h *PeopleHandler) RemoveEmbedding(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	if err := h.store.RemoveEmbedding(name, index); err != nil {
		switch {
		case errors.Is(err, gallery.ErrNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, gallery.ErrIndexOutOfRange):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("remove embedding %s/%d failed: %v", sanitizeForLog(name), index, err)
			respondError(w, http.StatusInternalServerError, "failed to remove embedding")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"removed": name, "index": index})
}
