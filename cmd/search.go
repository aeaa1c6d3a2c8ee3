package cmd

import (
	"errors"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gusrub/geary/term"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <account> <query>",
	Short: "Full-text search over the cached messages",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results (0 for all)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("missing account name or query")
	}
	store, err := openAccount(cmd, args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	raw := strings.Join(args[1:], " ")
	folder := store.SearchFolder()
	results, err := folder.Search(cmd.Context(), raw, searchLimit, 0, nil)
	if err != nil {
		return err
	}
	if results == nil {
		term.Info("no results")
		return nil
	}

	matches, err := folder.Matches(cmd.Context())
	if err != nil {
		return err
	}
	term.Debugf("highlight terms: %s", strings.Join(matches, ", "))

	table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"ID", "Date"},
	})
	for _, result := range results {
		date := time.Unix(result.InternalDate, 0).UTC().Format("2006-01-02 15:04")
		table.Data = append(table.Data, []string{pterm.Sprintf("%d", result.ID), date})
	}
	return table.Render()
}
