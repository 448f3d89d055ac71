package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-gallery/internal/gallery"
)

// supportedImageExts are the enrollment image formats accepted by --dir.
var supportedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

var personAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Enroll face images for a person",
	Long: `Enroll one or more face images for a person. Each image must contain
exactly one face. Images too similar to an already enrolled image of the
same person are rejected as duplicates.

Examples:
  # Enroll a single image
  face-gallery person add "Jane Doe" --image jane.jpg

  # Enroll every image in a directory
  face-gallery person add "Jane Doe" --dir ./jane_photos

  # Stricter duplicate rejection
  face-gallery person add "Jane Doe" --image jane.jpg --duplicate-threshold 0.90`,
	Args: cobra.ExactArgs(1),
	RunE: runPersonAdd,
}

func init() {
	personCmd.AddCommand(personAddCmd)

	personAddCmd.Flags().String("image", "", "Image file to enroll")
	personAddCmd.Flags().String("dir", "", "Directory of images to enroll")
	personAddCmd.Flags().Float64("duplicate-threshold", 0, "Similarity above which an image is rejected as a duplicate (defaults to config)")
}

func runPersonAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	imagePath := mustGetString(cmd, "image")
	dirPath := mustGetString(cmd, "dir")
	threshold := mustGetFloat64(cmd, "duplicate-threshold")

	if (imagePath == "") == (dirPath == "") {
		return errors.New("exactly one of --image or --dir is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, _, err := openStore(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if imagePath != "" {
		result, err := enrollFile(ctx, store, name, imagePath, threshold)
		if err != nil {
			return err
		}
		fmt.Println(describeAdd(result, imagePath))
		if !result.Accepted() {
			os.Exit(1)
		}
		return nil
	}

	return enrollDirectory(ctx, store, name, dirPath, threshold)
}

// enrollFile enrolls a single image file.
func enrollFile(ctx context.Context, store *gallery.Store, name, path string, threshold float64) (gallery.AddResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gallery.AddResult{}, fmt.Errorf("reading %s: %w", path, err)
	}
	result, err := store.AddImage(ctx, name, data, filepath.Base(path), threshold)
	if err != nil {
		return gallery.AddResult{}, fmt.Errorf("enrolling %s: %w", path, err)
	}
	return result, nil
}

// enrollDirectory enrolls every supported image in dir, reporting per-file
// outcomes and a final tally.
func enrollDirectory(ctx context.Context, store *gallery.Store, name, dir string, threshold float64) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedImageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return fmt.Errorf("no supported images found in %s", dir)
	}

	bar := progressbar.Default(int64(len(files)), "enrolling")
	tally := make(map[gallery.AddOutcome]int)
	for _, path := range files {
		result, err := enrollFile(ctx, store, name, path, threshold)
		if err != nil {
			return err
		}
		tally[result.Outcome]++
		if !result.Accepted() {
			fmt.Printf("\n%s\n", describeAdd(result, path))
		}
		_ = bar.Add(1)
	}

	fmt.Printf("\nEnrolled %s: %d created/appended, %d duplicates, %d without a face, %d with multiple faces\n",
		name,
		tally[gallery.OutcomeCreated]+tally[gallery.OutcomeAppended],
		tally[gallery.OutcomeDuplicate],
		tally[gallery.OutcomeNoFace],
		tally[gallery.OutcomeMultipleFaces],
	)
	return nil
}

// describeAdd renders an enrollment outcome for terminal output.
func describeAdd(result gallery.AddResult, source string) string {
	switch result.Outcome {
	case gallery.OutcomeCreated:
		return fmt.Sprintf("Created %s (total: %d images)", result.Name, result.Total)
	case gallery.OutcomeAppended:
		return fmt.Sprintf("Added image for %s (total: %d images)", result.Name, result.Total)
	case gallery.OutcomeDuplicate:
		return fmt.Sprintf("Rejected %s: similar image already enrolled for %s (similarity: %.3f)", source, result.Name, result.Similarity)
	case gallery.OutcomeNoFace:
		return fmt.Sprintf("Rejected %s: no face detected", source)
	case gallery.OutcomeMultipleFaces:
		return fmt.Sprintf("Rejected %s: more than one face detected", source)
	}
	return fmt.Sprintf("Unexpected outcome %q for %s", result.Outcome, source)
}
