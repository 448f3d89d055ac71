package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-gallery/internal/config"
	"github.com/kozaktomas/face-gallery/internal/recognizer"
)

// RecognizeHandler serves the recognition endpoint.
type RecognizeHandler struct {
	config     *config.Config
	recognizer *recognizer.Recognizer
}

// NewRecognizeHandler creates a new recognize handler
func NewRecognizeHandler(cfg *config.Config, rec *recognizer.Recognizer) *RecognizeHandler {
	return &RecognizeHandler{config: cfg, recognizer: rec}
}

// Recognize matches an uploaded image or JSON embedding against the
// gallery. The response always carries the best score and ranked top-k list
// alongside the label, even on an Unknown verdict. Optional query
// parameters: top_k, threshold.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	topK := queryInt(r, "top_k", h.config.Recognition.TopK)
	threshold := queryFloat(r, "threshold", h.config.Recognition.Threshold)

	image, embedding, _, err := readInput(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var result recognizer.Result
	if image != nil {
		result, err = h.recognizer.RecognizeImage(r.Context(), image, topK)
		if err != nil {
			log.Printf("recognize failed: %v", err)
			respondError(w, http.StatusInternalServerError, "recognition failed")
			return
		}
	} else {
		result = h.recognizer.RecognizeEmbedding(embedding, topK)
	}

	respondJSON(w, http.StatusOK, applyThreshold(result, threshold))
}

// applyThreshold relabels a match/unknown verdict for a caller-supplied
// threshold. The score and ranking are threshold-independent, so only the
// label and outcome can change. The comparison is inclusive.
func applyThreshold(result recognizer.Result, threshold float64) recognizer.Result {
	if result.Outcome != recognizer.OutcomeMatch && result.Outcome != recognizer.OutcomeUnknown {
		return result
	}
	if result.Score >= threshold {
		result.Outcome = recognizer.OutcomeMatch
		result.Label = result.TopMatches[0].Name
	} else {
		result.Outcome = recognizer.OutcomeUnknown
		result.Label = recognizer.UnknownLabel
	}
	return result
}
