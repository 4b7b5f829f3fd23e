package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var authorJSON bool

var authorCmd = &cobra.Command{
	Use:   "author [url]",
	Short: "Import an author's personality page",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthor,
}

func init() {
	authorCmd.Flags().BoolVar(&authorJSON, "json", false, "output the bio as JSON")
	rootCmd.AddCommand(authorCmd)
}

func runAuthor(cmd *cobra.Command, args []string) error {
	bio := importService.ImportAuthor(cmd.Context(), args[0])
	if bio.HasError() {
		return errors.New(bio.Err)
	}

	if authorJSON {
		return printJSON(cmd, bio)
	}

	cmd.Println(titleStyle.Render(bio.Name))
	for _, u := range bio.URLs {
		cmd.Printf("%s %s (%s)\n", labelStyle.Render(u.CatSlug+":"), u.URL, u.Description)
	}
	if bio.Bio != "" {
		cmd.Println()
		cmd.Println(bio.Bio)
	}
	return nil
}
