package cmd

import (
	"github.com/spf13/cobra"
)

var personCmd = &cobra.Command{
	Use:   "person",
	Short: "Manage enrolled people",
	Long:  `Enroll, list, and remove people in the face gallery.`,
}

func init() {
	rootCmd.AddCommand(personCmd)
}
