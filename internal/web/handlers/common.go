package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxUploadSize caps enrollment/query image uploads.
const maxUploadSize = 32 << 20 // 32 MB

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// queryFloat parses a float query parameter, returning defaultVal when the
// parameter is absent or malformed.
func queryFloat(r *http.Request, key string, defaultVal float64) float64 {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// queryInt parses an int query parameter, returning defaultVal when the
// parameter is absent or malformed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// embeddingRequest is the JSON body accepted where an image upload is also
// allowed.
type embeddingRequest struct {
	Embedding []float32 `json:"embedding"`
	Source    string    `json:"source,omitempty"`
}

// readInput reads either a multipart image upload (form field "file") or a
// JSON embedding body from the request. Exactly one of the return values is
// set on success.
func readInput(r *http.Request) (image []byte, embedding []float32, source string, err error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return nil, nil, "", fmt.Errorf("parsing multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, nil, "", fmt.Errorf("missing file field: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			return nil, nil, "", fmt.Errorf("reading upload: %w", err)
		}
		return data, nil, header.Filename, nil
	}

	var req embeddingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(&req); err != nil {
		return nil, nil, "", fmt.Errorf("%s: %w", errInvalidRequestBody, err)
	}
	if len(req.Embedding) == 0 {
		return nil, nil, "", fmt.Errorf("%s: embedding is empty", errInvalidRequestBody)
	}
	source = req.Source
	if source == "" {
		source = "api"
	}
	return nil, req.Embedding, source, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
