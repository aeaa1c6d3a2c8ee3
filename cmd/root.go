package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gusrub/geary/account"
	"github.com/gusrub/geary/cfg"
	"github.com/gusrub/geary/term"
)

var rootCmd = &cobra.Command{
	Use:   "geary",
	Short: "Local IMAP mail store: folders, search, index",
	Long:  "\nLocal IMAP mail store: folders, search, index",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	cobra.OnInitialize(initConfig, initLog)
	flag := rootCmd.PersistentFlags()
	flag.StringVarP(&global.configFile, "config", "c", "geary.yaml", "configuration file")
	flag.BoolVarP(&global.quiet, "quiet", "q", false, "only display warnings and errors")
	flag.BoolVarP(&global.verbose, "verbose", "v", false, "display debugging information")
}

func initConfig() {
	var err error
	config, err = cfg.LoadFromFile(global.configFile)
	if err != nil {
		term.Errorf("cannot open or read configuration file: %s", err)
		os.Exit(1)
	}
}

func initLog() {
	switch {
	case global.verbose:
		term.SetLevel(term.LevelDebug)
	case global.quiet:
		term.SetLevel(term.LevelWarn)
	}
}

// openAccount opens the store named on the command line.
func openAccount(cmd *cobra.Command, accountName string) (*account.Store, error) {
	settings, ok := config.Accounts[accountName]
	if !ok {
		return nil, fmt.Errorf("account not found: %s", accountName)
	}
	var logger logbridge
	store := account.New(accountName, settings.Email, logger)
	err := store.Open(cmd.Context(), settings.DataDir, settings.SchemaDir)
	if err != nil {
		return nil, fmt.Errorf("cannot open account %q: %w", accountName, err)
	}
	return store, nil
}

// logbridge forwards library logging to the terminal at debug level.
type logbridge struct{}

func (logbridge) Print(a ...any)                 { term.Debug(a...) }
func (logbridge) Println(a ...any)               { term.Debug(a...) }
func (logbridge) Printf(format string, a ...any) { term.Debugf(format, a...) }

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		term.Error(err)
		os.Exit(1)
	}
}
