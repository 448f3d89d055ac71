package detector

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// jpegQuality for re-encoded uploads. The detector rescales internally
// anyway; this only bounds upload size.
const jpegQuality = 90

// prepareImage downscales images whose larger side exceeds maxDim and
// re-encodes them as JPEG. Images within bounds (or when maxDim is zero) are
// passed through untouched, and undecodable data is passed through for the
// detector to reject.
func (c *Client) prepareImage(imageData []byte) ([]byte, error) {
	if c.maxDim <= 0 {
		return imageData, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return imageData, nil
	}
	if cfg.Width <= c.maxDim && cfg.Height <= c.maxDim {
		return imageData, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return imageData, nil
	}

	width, height := scaledDims(cfg.Width, cfg.Height, c.maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// scaledDims shrinks (w, h) so the larger side equals maxDim, keeping the
// aspect ratio and never returning a zero dimension.
func scaledDims(w, h, maxDim int) (int, int) {
	if w >= h {
		scaled := h * maxDim / w
		if scaled < 1 {
			scaled = 1
		}
		return maxDim, scaled
	}
	scaled := w * maxDim / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxDim
}
