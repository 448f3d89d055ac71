package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-gallery/internal/recognizer"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize IMAGE",
	Short: "Recognize the face in an image against the gallery",
	Long: `Recognize the largest face in an image against the enrolled gallery.

Prints the best match with its similarity score and the ranked top-k
candidates. A best score below the recognition threshold reports Unknown,
still with the score and ranking so confidence can be judged.

Examples:
  face-gallery recognize photo.jpg
  face-gallery recognize photo.jpg --top-k 5 --threshold 0.6
  face-gallery recognize photo.jpg --profile strict --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Int("top-k", 0, "Number of ranked candidates to return (defaults to config)")
	recognizeCmd.Flags().Float64("threshold", 0, "Minimum score to report a name instead of Unknown (defaults to config)")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	topK := mustGetInt(cmd, "top-k")
	threshold := mustGetFloat64(cmd, "threshold")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if threshold > 0 {
		cfg.Recognition.Threshold = threshold
	}
	store, client, err := openStore(cfg)
	if err != nil {
		return err
	}

	rec := recognizer.New(store, client, recognizer.Options{
		Threshold: cfg.Recognition.Threshold,
		TopK:      cfg.Recognition.TopK,
		UseHNSW:   cfg.Recognition.UseHNSW,
	})

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", imagePath, err)
	}

	result, err := rec.RecognizeImage(context.Background(), data, topK)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	switch result.Outcome {
	case recognizer.OutcomeNoFace:
		fmt.Println("No face detected")
	case recognizer.OutcomeEmptyGallery:
		fmt.Println("Gallery is empty. Use 'face-gallery person add' to enroll someone.")
	default:
		fmt.Printf("Result: %s (score: %.3f)\n", result.Label, result.Score)
		for i, match := range result.TopMatches {
			fmt.Printf("  %d. %-30s %.3f\n", i+1, match.Name, match.Score)
		}
	}
	return nil
}
