package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/gusrub/geary/term"
)

var indexCmd = &cobra.Command{
	Use:   "index <account>",
	Short: "Index every message missing from the search table now",
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account name")
	}
	store, err := openAccount(cmd, args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.PopulateSearchIndex(cmd.Context(), term.NewProgress("Indexing messages"))
	if err != nil {
		return err
	}
	term.Info("search index is up to date")
	return nil
}
