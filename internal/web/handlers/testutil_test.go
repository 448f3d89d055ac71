package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-gallery/internal/config"
	"github.com/kozaktomas/face-gallery/internal/gallery"
)

const testDim = 8

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Gallery: config.GalleryConfig{
			Path:               "test.gob",
			DuplicateThreshold: 0.95,
		},
		Recognition: config.RecognitionConfig{
			Threshold: 0.5,
			TopK:      3,
		},
	}
}

// newTestStore creates an empty store persisted under t.TempDir
func newTestStore(t *testing.T) *gallery.Store {
	t.Helper()
	store, err := gallery.Open(filepath.Join(t.TempDir(), "gallery.gob"), nil, gallery.Options{})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return store
}

// unit returns a unit basis vector along axis i
func unit(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

// mix returns a unit vector leaning toward axis 0 with cosine s against unit(0)
func mix(s float64) []float32 {
	v := make([]float32, testDim)
	v[0] = float32(s)
	v[1] = float32(math.Sqrt(1 - s*s))
	return v
}

// seedPerson enrolls vectors for a person, failing the test on rejection
func seedPerson(t *testing.T, store *gallery.Store, name string, vecs ...[]float32) {
	t.Helper()
	for _, vec := range vecs {
		result, err := store.AddEmbedding(name, vec, "test", 0.999999)
		if err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
		if !result.Accepted() {
			t.Fatalf("seed embedding for %s rejected: %s", name, result.Outcome)
		}
	}
}

// jsonRequest creates a request with a JSON-encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}
