package detector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newMockDetector starts a detection server answering /embed/face with the
// given faces.
func newMockDetector(t *testing.T, faces []Face) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/embed/face", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"faces_count": len(faces),
			"faces":       faces,
			"model":       "buffalo_l",
		})
	})
	return httptest.NewServer(mux)
}

func TestDetectFaces(t *testing.T) {
	faces := []Face{
		{FaceIndex: 0, Dim: 4, Embedding: []float32{1, 0, 0, 0}, BBox: []float64{0, 0, 10, 10}, DetScore: 0.99},
	}
	server := newMockDetector(t, faces)
	defer server.Close()

	client := New(server.URL, 0)
	got, err := client.DetectFaces(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 face, got %d", len(got))
	}
	if got[0].DetScore != 0.99 {
		t.Errorf("expected det score 0.99, got %f", got[0].DetScore)
	}
}

func TestEnrollmentEmbedding_ExactlyOneFace(t *testing.T) {
	tests := []struct {
		name    string
		faces   []Face
		wantErr error
	}{
		{"no faces", nil, ErrNoFaceDetected},
		{"one face", []Face{{Embedding: []float32{1, 0}}}, nil},
		{"two faces", []Face{
			{Embedding: []float32{1, 0}},
			{Embedding: []float32{0, 1}},
		}, ErrMultipleFaces},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := newMockDetector(t, tc.faces)
			defer server.Close()

			client := New(server.URL, 0)
			vec, err := client.EnrollmentEmbedding(context.Background(), []byte("img"))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(vec) == 0 {
				t.Error("expected an embedding")
			}
		})
	}
}

func TestQueryEmbedding_PicksLargestFace(t *testing.T) {
	faces := []Face{
		{FaceIndex: 0, Embedding: []float32{1, 0}, BBox: []float64{0, 0, 10, 10}},
		{FaceIndex: 1, Embedding: []float32{0, 1}, BBox: []float64{0, 0, 200, 200}},
	}
	server := newMockDetector(t, faces)
	defer server.Close()

	client := New(server.URL, 0)
	vec, bbox, err := client.QueryEmbedding(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec[1] != 1 {
		t.Errorf("expected the larger face's embedding, got %v", vec)
	}
	if bbox[2] != 200 {
		t.Errorf("expected the larger face's bbox, got %v", bbox)
	}
}

func TestQueryEmbedding_NoFace(t *testing.T) {
	server := newMockDetector(t, nil)
	defer server.Close()

	client := New(server.URL, 0)
	_, _, err := client.QueryEmbedding(context.Background(), []byte("img"))
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestDetectFaces_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, 0)
	if _, err := client.DetectFaces(context.Background(), []byte("img")); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0, 0}, "image/gif"},
		{"too short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte{0, 1, 2, 3, 4, 5, 6, 7}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.expected {
				t.Errorf("detectMIMEType(%v) = %q; want %q", tc.data, got, tc.expected)
			}
		})
	}
}

func TestScaledDims(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		maxDim int
		wantW  int
		wantH  int
	}{
		{"landscape", 4000, 2000, 1920, 1920, 960},
		{"portrait", 2000, 4000, 1920, 960, 1920},
		{"square", 4000, 4000, 1920, 1920, 1920},
		{"extreme ratio keeps nonzero side", 10000, 1, 1920, 1920, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, h := scaledDims(tc.w, tc.h, tc.maxDim)
			if w != tc.wantW || h != tc.wantH {
				t.Errorf("scaledDims(%d, %d, %d) = (%d, %d); want (%d, %d)",
					tc.w, tc.h, tc.maxDim, w, h, tc.wantW, tc.wantH)
			}
		})
	}
}
