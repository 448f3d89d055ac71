// Package detector is the client for the external face-detection service.
// Given an image it returns detected faces with bounding boxes and
// unit-normalized embeddings; all model configuration (model name, detection
// size, execution context) lives on the service side.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const defaultDetectorURL = "http://localhost:8000"

var (
	// ErrNoFaceDetected is returned when no face is found in the image.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrMultipleFaces is returned when an enrollment image contains more
	// than one face.
	ErrMultipleFaces = errors.New("multiple faces detected")
)

// Face represents a single detected face.
type Face struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face detection endpoint.
type faceResponse struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// Client talks to the face detection service.
type Client struct {
	baseURL string
	client  *http.Client
	maxDim  int
}

// New creates a detector client. maxImageDim bounds the larger image side
// before upload; zero disables downscaling.
func New(baseURL string, maxImageDim int) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
		maxDim:  maxImageDim,
	}
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectFaces detects faces in the image and computes their embeddings.
// Returns an empty slice when the image contains no faces.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	prepared, err := c.prepareImage(imageData)
	if err != nil {
		return nil, err
	}

	body, err := c.postMultipartImage(ctx, "/embed/face", prepared)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return faceResp.Faces, nil
}

// EnrollmentEmbedding returns the embedding for an enrollment image, which
// must contain exactly one face.
func (c *Client) EnrollmentEmbedding(ctx context.Context, imageData []byte) ([]float32, error) {
	faces, err := c.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}
	switch {
	case len(faces) == 0:
		return nil, ErrNoFaceDetected
	case len(faces) > 1:
		return nil, fmt.Errorf("%w: found %d faces", ErrMultipleFaces, len(faces))
	}
	if len(faces[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	return faces[0].Embedding, nil
}

// QueryEmbedding returns the embedding and bounding box of the largest face
// in a query image. Images with several faces are fine for recognition; the
// largest face is the query subject.
func (c *Client) QueryEmbedding(ctx context.Context, imageData []byte) ([]float32, []float64, error) {
	faces, err := c.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, nil, err
	}
	if len(faces) == 0 {
		return nil, nil, ErrNoFaceDetected
	}

	best := faces[0]
	bestArea := bboxArea(best.BBox)
	for _, face := range faces[1:] {
		if area := bboxArea(face.BBox); area > bestArea {
			best = face
			bestArea = area
		}
	}
	if len(best.Embedding) == 0 {
		return nil, nil, errors.New("empty embedding returned")
	}
	return best.Embedding, best.BBox, nil
}

func bboxArea(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	w := bbox[2] - bbox[0]
	h := bbox[3] - bbox[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
