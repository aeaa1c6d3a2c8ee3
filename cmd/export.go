package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/gusrub/geary/export"
	"github.com/gusrub/geary/mailbox"
	"github.com/gusrub/geary/term"
)

var exportCmd = &cobra.Command{
	Use:   "export <account> <folder> <maildir>",
	Short: "Export the cached messages of a folder to a local maildir",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if len(args) < 3 {
		return errors.New("missing account name, folder or maildir path")
	}
	store, err := openAccount(cmd, args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := mailbox.ParsePath(args[1], "/")
	if err != nil {
		return err
	}
	written, err := export.Folder(cmd.Context(), store, path, args[2], nil)
	if err != nil {
		return err
	}
	term.Infof("exported %d message(s) from %q", written, path)
	return nil
}
