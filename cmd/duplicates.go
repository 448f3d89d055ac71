package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find and remove near-duplicate enrollment images",
}

var duplicatesFindCmd = &cobra.Command{
	Use:   "find",
	Short: "List near-duplicate embedding pairs per person",
	RunE:  runDuplicatesFind,
}

var duplicatesRemoveCmd = &cobra.Command{
	Use:   "remove NAME INDEX...",
	Short: "Remove embeddings by index from a person's record",
	Long: `Remove one or more embeddings by index from a person's record.

Indices refer to positions reported by 'duplicates find'. Several indices
may be given at once; they are deleted in descending order so earlier
removals cannot shift the positions of later ones.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDuplicatesRemove,
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)
	duplicatesCmd.AddCommand(duplicatesFindCmd)
	duplicatesCmd.AddCommand(duplicatesRemoveCmd)

	duplicatesFindCmd.Flags().Float64("threshold", 0, "Similarity threshold for reporting a pair (defaults to config)")
}

func runDuplicatesFind(cmd *cobra.Command, args []string) error {
	threshold := mustGetFloat64(cmd, "threshold")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, _, err := openStore(cfg)
	if err != nil {
		return err
	}

	found := store.FindDuplicates(threshold)
	if len(found) == 0 {
		fmt.Println("No duplicates found")
		return nil
	}

	people := make([]string, 0, len(found))
	for name := range found {
		people = append(people, name)
	}
	sort.Strings(people)

	for _, name := range people {
		fmt.Printf("%s:\n", name)
		for _, pair := range found[name] {
			fmt.Printf("  images %d and %d (similarity: %.3f)\n", pair.I, pair.J, pair.Similarity)
		}
	}
	return nil
}

func runDuplicatesRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	indices, err := parseIndices(args[1:])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, _, err := openStore(cfg)
	if err != nil {
		return err
	}

	// Descending order keeps the remaining indices valid after each removal.
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	for _, index := range indices {
		if err := store.RemoveEmbedding(name, index); err != nil {
			return err
		}
		fmt.Printf("Removed embedding %d of %s\n", index, name)
	}
	return nil
}

// parseIndices parses and de-duplicates index arguments.
func parseIndices(args []string) ([]int, error) {
	seen := make(map[int]bool)
	indices := make([]int, 0, len(args))
	for _, arg := range args {
		var index int
		if _, err := fmt.Sscanf(arg, "%d", &index); err != nil || index < 0 {
			return nil, fmt.Errorf("invalid index %q", arg)
		}
		if !seen[index] {
			seen[index] = true
			indices = append(indices, index)
		}
	}
	return indices, nil
}
