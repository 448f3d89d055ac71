package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var personRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a person and all their enrolled images",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonRemove,
}

func init() {
	personCmd.AddCommand(personRemoveCmd)
}

func runPersonRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, _, err := openStore(cfg)
	if err != nil {
		return err
	}

	if err := store.RemovePerson(name); err != nil {
		return err
	}
	fmt.Printf("Removed %s from the gallery\n", name)
	return nil
}
