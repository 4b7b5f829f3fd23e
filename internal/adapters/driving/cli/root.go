// Package cli implements the ifimport command line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ifhub-labs/ifimport/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ifimport",
	Short: "Import interactive fiction game metadata",
	Long: `ifimport collects game metadata from the Russian interactive
fiction sites (ifwiki.ru, instead-games.ru, quest-book.ru and others),
reconciles the per-site records into one and stores the result in the
local catalogue.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if cmd.Name() == "version" {
			return nil
		}
		return setup()
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file")
}

// Execute runs the root command under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// printJSON writes v to the command output as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
