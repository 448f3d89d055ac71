package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/kozaktomas/face-gallery/internal/recognizer"
)

func newRecognizeHandler(t *testing.T, store *gallery.Store) *RecognizeHandler {
	t.Helper()
	rec := recognizer.New(store, nil, recognizer.Options{})
	return NewRecognizeHandler(testConfig(), rec)
}

func TestRecognize_Match(t *testing.T) {
	store := newTestStore(t)
	seedPerson(t, store, "Alice", unit(0))
	seedPerson(t, store, "Bob", unit(1))
	handler := newRecognizeHandler(t, store)

	req := jsonRequest(t, http.MethodPost, "/api/v1/recognize", embeddingRequest{Embedding: mix(0.9)})
	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp recognizer.Result
	parseJSONResponse(t, recorder, &resp)

	if resp.Outcome != recognizer.OutcomeMatch {
		t.Fatalf("expected match, got %s", resp.Outcome)
	}
	if resp.Label != "Alice" {
		t.Errorf("expected Alice, got %s", resp.Label)
	}
	if resp.Score < 0.89 || resp.Score > 0.91 {
		t.Errorf("unexpected score: %f", resp.Score)
	}
	if len(resp.TopMatches) != 2 {
		t.Errorf("expected 2 ranked candidates, got %d", len(resp.TopMatches))
	}
}

func TestRecognize_UnknownKeepsScore(t *testing.T) {
	store := newTestStore(t)
	seedPerson(t, store, "Alice", unit(0))
	handler := newRecognizeHandler(t, store)

	// Best score 0.3, below the default threshold.
	req := jsonRequest(t, http.MethodPost, "/api/v1/recognize", embeddingRequest{Embedding: mix(0.3)})
	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp recognizer.Result
	parseJSONResponse(t, recorder, &resp)

	if resp.Outcome != recognizer.OutcomeUnknown {
		t.Fatalf("expected unknown, got %s", resp.Outcome)
	}
	if resp.Label != recognizer.UnknownLabel {
		t.Errorf("expected Unknown label, got %s", resp.Label)
	}
	if resp.Score < 0.29 || resp.Score > 0.31 {
		t.Errorf("score must be reported on an unknown verdict, got %f", resp.Score)
	}
	if len(resp.TopMatches) == 0 {
		t.Error("ranked candidates must be reported on an unknown verdict")
	}
}

func TestRecognize_ThresholdParamRelabels(t *testing.T) {
	store := newTestStore(t)
	seedPerson(t, store, "Alice", unit(0))
	handler := newRecognizeHandler(t, store)

	tests := []struct {
		name    string
		query   string
		outcome recognizer.Outcome
		label   string
	}{
		{"raised threshold turns match into unknown", "?threshold=0.95", recognizer.OutcomeUnknown, recognizer.UnknownLabel},
		{"lowered threshold turns unknown into match", "?threshold=0.2", recognizer.OutcomeMatch, "Alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, http.MethodPost, "/api/v1/recognize"+tt.query, embeddingRequest{Embedding: mix(0.6)})
			recorder := httptest.NewRecorder()
			handler.Recognize(recorder, req)

			assertStatusCode(t, recorder, http.StatusOK)
			var resp recognizer.Result
			parseJSONResponse(t, recorder, &resp)
			if resp.Outcome != tt.outcome {
				t.Errorf("expected %s, got %s", tt.outcome, resp.Outcome)
			}
			if resp.Label != tt.label {
				t.Errorf("expected label %s, got %s", tt.label, resp.Label)
			}
		})
	}
}

func TestRecognize_TopKParam(t *testing.T) {
	store := newTestStore(t)
	seedPerson(t, store, "Alice", unit(0))
	seedPerson(t, store, "Bob", unit(1))
	seedPerson(t, store, "Carol", unit(2))
	seedPerson(t, store, "Dave", unit(3))
	handler := newRecognizeHandler(t, store)

	req := jsonRequest(t, http.MethodPost, "/api/v1/recognize?top_k=2", embeddingRequest{Embedding: mix(0.9)})
	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp recognizer.Result
	parseJSONResponse(t, recorder, &resp)
	if len(resp.TopMatches) != 2 {
		t.Errorf("expected 2 candidates, got %d", len(resp.TopMatches))
	}
}

func TestRecognize_EmptyGallery(t *testing.T) {
	handler := newRecognizeHandler(t, newTestStore(t))

	req := jsonRequest(t, http.MethodPost, "/api/v1/recognize", embeddingRequest{Embedding: unit(0)})
	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp recognizer.Result
	parseJSONResponse(t, recorder, &resp)

	if resp.Outcome != recognizer.OutcomeEmptyGallery {
		t.Errorf("expected empty_gallery, got %s", resp.Outcome)
	}
	if resp.Label != "" {
		t.Errorf("empty gallery must not produce a label, got %s", resp.Label)
	}
}

func TestRecognize_InvalidBody(t *testing.T) {
	handler := newRecognizeHandler(t, newTestStore(t))

	req := jsonRequest(t, http.MethodPost, "/api/v1/recognize", embeddingRequest{})
	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
