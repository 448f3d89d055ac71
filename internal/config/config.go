package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

type Config struct {
	Gallery     GalleryConfig
	Detector    DetectorConfig
	Recognition RecognitionConfig
	Profiles    ProfilesConfig
}

type GalleryConfig struct {
	Path               string  // path to the persisted gallery file
	DuplicateThreshold float64 // similarity above which an enrollment is a repeat
}

type DetectorConfig struct {
	URL         string // face detection service URL (defaults to http://localhost:8000)
	MaxImageDim int    // larger image side above which uploads are downscaled
}

type RecognitionConfig struct {
	Threshold float64 // minimum best score to report a name instead of Unknown
	TopK      int     // ranked candidates returned per query
	UseHNSW   bool    // approximate index for large galleries
}

type ProfilesConfig struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile is a named threshold preset selectable with --profile.
type Profile struct {
	RecognitionThreshold float64 `yaml:"recognition_threshold"`
	DuplicateThreshold   float64 `yaml:"duplicate_threshold"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean flag.
func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var profiles ProfilesConfig
	if err := yaml.Unmarshal(profilesYAML, &profiles); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded profiles.yaml: " + err.Error())
	}

	return &Config{
		Gallery: GalleryConfig{
			Path:               envString("FACE_GALLERY_PATH", "face_gallery.gob"),
			DuplicateThreshold: envFloat("FACE_GALLERY_DUPLICATE_THRESHOLD", 0.95),
		},
		Detector: DetectorConfig{
			URL:         envString("FACE_DETECTOR_URL", "http://localhost:8000"),
			MaxImageDim: envInt("FACE_DETECTOR_MAX_IMAGE_DIM", 1920),
		},
		Recognition: RecognitionConfig{
			Threshold: envFloat("FACE_RECOGNITION_THRESHOLD", 0.5),
			TopK:      envInt("FACE_RECOGNITION_TOP_K", 3),
			UseHNSW:   envBool("FACE_GALLERY_USE_HNSW"),
		},
		Profiles: profiles,
	}
}

// ApplyProfile overwrites the configured thresholds with the named preset.
// Unknown names leave the config unchanged and report false.
func (c *Config) ApplyProfile(name string) bool {
	profile, ok := c.Profiles.Profiles[name]
	if !ok {
		return false
	}
	c.Recognition.Threshold = profile.RecognitionThreshold
	c.Gallery.DuplicateThreshold = profile.DuplicateThreshold
	return true
}
