package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "Inspect the stored catalogue",
}

var gamesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored games",
	RunE:  runGamesList,
}

var gamesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one stored game as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runGamesGet,
}

func init() {
	gamesCmd.AddCommand(gamesListCmd)
	gamesCmd.AddCommand(gamesGetCmd)
	rootCmd.AddCommand(gamesCmd)
}

func runGamesList(cmd *cobra.Command, _ []string) error {
	games, err := recordStore.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(games) == 0 {
		cmd.Println("No games stored.")
		return nil
	}

	// Fit titles to the terminal; keep full titles when piped.
	width := 0
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}

	for _, g := range games {
		marker := " "
		if !g.Imported {
			marker = "*" // hand-edited
		}
		line := g.ID + " " + marker + " " + g.Title
		if width > 1 && len([]rune(line)) > width {
			line = string([]rune(line)[:width-1]) + "…"
		}
		cmd.Println(line)
	}
	return nil
}

func runGamesGet(cmd *cobra.Command, args []string) error {
	game, err := recordStore.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, game)
}
