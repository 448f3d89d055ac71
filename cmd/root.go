package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-gallery/internal/config"
	"github.com/kozaktomas/face-gallery/internal/detector"
	"github.com/kozaktomas/face-gallery/internal/gallery"
)

var (
	galleryPath string
	profileName string
)

var rootCmd = &cobra.Command{
	Use:   "face-gallery",
	Short: "A CLI tool for enrolling and recognizing faces against a local gallery",
	Long: `Face Gallery maintains a durable gallery of per-person face embeddings
and recognizes faces against it. Face detection and embedding extraction are
delegated to an external detection service (FACE_DETECTOR_URL); the gallery,
duplicate detection, and nearest-match ranking live here.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&galleryPath, "gallery", "", "Path to the gallery file (defaults to FACE_GALLERY_PATH)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Threshold profile: strict, default, lenient")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig loads the environment configuration and applies the persistent
// --gallery and --profile overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if galleryPath != "" {
		cfg.Gallery.Path = galleryPath
	}
	if profileName != "" {
		if !cfg.ApplyProfile(profileName) {
			return nil, fmt.Errorf("unknown profile %q", profileName)
		}
	}
	return cfg, nil
}

// openStore opens the gallery store with the detection client wired in.
func openStore(cfg *config.Config) (*gallery.Store, *detector.Client, error) {
	client := detector.New(cfg.Detector.URL, cfg.Detector.MaxImageDim)
	store, err := gallery.Open(cfg.Gallery.Path, client, gallery.Options{
		DuplicateThreshold: cfg.Gallery.DuplicateThreshold,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening gallery %s: %w", cfg.Gallery.Path, err)
	}
	return store, client, nil
}
