package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List bulk-discovery URLs from every site",
	RunE:  runCandidates,
}

var dirtyAge time.Duration

var dirtyCmd = &cobra.Command{
	Use:   "dirty",
	Short: "List recently changed URLs from every site",
	RunE:  runDirty,
}

func init() {
	dirtyCmd.Flags().DurationVar(&dirtyAge, "age", 48*time.Hour, "how far back to look for changes")
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(dirtyCmd)
}

func runCandidates(cmd *cobra.Command, _ []string) error {
	urls, err := importService.URLCandidates(cmd.Context())
	if err != nil {
		return err
	}
	for _, url := range urls {
		cmd.Println(url)
	}
	return nil
}

func runDirty(cmd *cobra.Command, _ []string) error {
	urls, err := importService.DirtyURLs(cmd.Context(), dirtyAge)
	if err != nil {
		return err
	}
	for _, url := range urls {
		cmd.Println(url)
	}
	return nil
}
