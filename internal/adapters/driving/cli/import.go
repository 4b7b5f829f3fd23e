package cli

import (
	"errors"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/logger"
)

var importJSON bool

var importCmd = &cobra.Command{
	Use:   "import [url...]",
	Short: "Import one game from its page URLs",
	Long: `Imports a single game. Each URL is dispatched to the scraper that
understands it, links found inside the records are followed across the
known sites, and everything is merged into one record. Several URLs may
be given when one game lives on several sites.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importJSON, "json", false, "output the record as JSON")
	rootCmd.AddCommand(importCmd)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
)

func runImport(cmd *cobra.Command, args []string) error {
	rec, urlErrors, err := importService.Import(cmd.Context(), args...)
	if err != nil {
		return err
	}

	urls := make([]string, 0, len(urlErrors))
	for url := range urlErrors {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	for _, url := range urls {
		logger.Warn("%s: %s", url, urlErrors[url])
	}

	if rec.Err != "" && rec.IsEmpty() {
		return errors.New(rec.Err)
	}

	if importJSON {
		return printJSON(cmd, rec)
	}
	printRecord(cmd, rec)
	return nil
}

func printRecord(cmd *cobra.Command, rec domain.MergedRecord) {
	cmd.Println(titleStyle.Render(rec.Title))

	if rec.ReleaseDate != nil {
		cmd.Printf("%s %s\n", labelStyle.Render("released:"), rec.ReleaseDate)
	}
	for _, a := range rec.Authors {
		cmd.Printf("%s %s", labelStyle.Render(a.RoleSlug+":"), a.Name)
		if a.URL != "" {
			cmd.Printf(" <%s>", a.URL)
		}
		cmd.Println()
	}
	for _, tag := range rec.Tags {
		if tag.TagSlug != "" {
			cmd.Printf("%s %s\n", labelStyle.Render("tag:"), tag.TagSlug)
		} else {
			cmd.Printf("%s %s\n", labelStyle.Render(tag.CatSlug+":"), tag.Tag)
		}
	}
	for _, u := range rec.URLs {
		cmd.Printf("%s %s (%s)\n", labelStyle.Render(u.CatSlug+":"), u.URL, u.Description)
	}

	if rec.Desc != "" {
		cmd.Println()
		cmd.Println(rec.Desc)
	}
}
