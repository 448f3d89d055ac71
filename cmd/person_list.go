package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-gallery/internal/names"
)

var personListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled people",
	Long: `List everyone enrolled in the gallery with their image counts.

The --search filter matches names case-insensitively and ignores
diacritics, so "jiri" finds "Jiří".`,
	RunE: runPersonList,
}

func init() {
	personCmd.AddCommand(personListCmd)

	personListCmd.Flags().String("search", "", "Filter names (case- and diacritics-insensitive)")
	personListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runPersonList(cmd *cobra.Command, args []string) error {
	search := mustGetString(cmd, "search")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, _, err := openStore(cfg)
	if err != nil {
		return err
	}

	counts := store.Counts()
	filtered := names.Filter(store.People(), search)

	if jsonOutput {
		type entry struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}
		out := make([]entry, 0, len(filtered))
		for _, name := range filtered {
			out = append(out, entry{Name: name, Count: counts[name]})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(filtered) == 0 {
		fmt.Println("Gallery is empty. Use 'face-gallery person add' to enroll someone.")
		return nil
	}
	for _, name := range filtered {
		fmt.Printf("%-30s %d images\n", name, counts[name])
	}
	fmt.Printf("\n%d people\n", len(filtered))
	return nil
}
