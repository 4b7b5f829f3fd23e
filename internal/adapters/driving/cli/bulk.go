package cli

import (
	"github.com/spf13/cobra"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Discover and import games from every site",
	Long: `Runs a full bulk import: collects candidate URLs from every
registered site, imports the unknown ones, merges candidates that turn
out to be the same game, re-imports recently changed pages and stores
the results. Hand-edited games are never overwritten.`,
	RunE: runBulk,
}

var bulkReimportCmd = &cobra.Command{
	Use:   "reimport",
	Short: "Re-import every robot-imported game",
	Long: `Re-fetches and re-stores every game the importer created itself,
picking up scraper and enrichment rule changes. Hand-edited games are
left alone.`,
	RunE: runBulkReimport,
}

func init() {
	bulkCmd.AddCommand(bulkReimportCmd)
	rootCmd.AddCommand(bulkCmd)
}

func runBulk(cmd *cobra.Command, _ []string) error {
	report, err := bulkService.Run(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render("Bulk import finished"))
	cmd.Printf("%s %d\n", labelStyle.Render("candidates:"), report.Candidates)
	cmd.Printf("%s %d\n", labelStyle.Render("new games:"), report.NewGames)
	cmd.Printf("%s %d\n", labelStyle.Render("updated:"), report.UpdatedGames)
	cmd.Printf("%s %d\n", labelStyle.Render("merged:"), report.MergedGames)
	cmd.Printf("%s %d\n", labelStyle.Render("conflicts:"), report.Conflicts)
	cmd.Printf("%s %d\n", labelStyle.Render("errors:"), report.Errors)
	return nil
}

func runBulkReimport(cmd *cobra.Command, _ []string) error {
	if err := bulkService.Reimport(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Reimport finished.")
	return nil
}
