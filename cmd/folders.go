package cmd

import (
	"errors"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gusrub/geary/account"
	"github.com/gusrub/geary/mailbox"
)

var foldersCmd = &cobra.Command{
	Use:   "folders <account>",
	Short: "Display the cached folder tree",
	RunE:  runFolders,
}

func init() {
	rootCmd.AddCommand(foldersCmd)
}

func runFolders(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account name")
	}
	store, err := openAccount(cmd, args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Folder", "Messages", "Unread", "Attributes"},
	})
	err = appendFolders(cmd, store, nil, table)
	if err != nil {
		return err
	}
	return table.Render()
}

func appendFolders(cmd *cobra.Command, store *account.Store, parent mailbox.Path, table *pterm.TablePrinter) error {
	folders, err := store.ListFolders(cmd.Context(), parent)
	if err != nil {
		return err
	}
	for _, folder := range folders {
		table.Data = append(table.Data, []string{
			folder.Path.String(),
			strconv.Itoa(folder.Properties.EmailCount()),
			strconv.Itoa(folder.Properties.UnreadCount),
			displayFlags(folder.Properties.Attributes),
		})
		if err = appendFolders(cmd, store, folder.Path, table); err != nil {
			return err
		}
	}
	return nil
}

func displayFlags(source []string) string {
	flags := make([]string, len(source))
	for i, flag := range source {
		flags[i] = strings.TrimPrefix(flag, "\\")
	}
	return strings.Join(flags, ", ")
}
