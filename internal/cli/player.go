package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/fourinarow/internal/api/response"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player history commands",
	}

	cmd.AddCommand(newPlayerStatsCmd())
	cmd.AddCommand(newPlayerGamesCmd())

	return cmd
}

func newPlayerStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [name]",
		Short: "Show a player's win/loss record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := cfg.playerName(firstArg(args))
			if err != nil {
				return err
			}

			var result response.PlayerStats
			if err := client.Get("/api/v1/players/"+url.PathEscape(name)+"/stats", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newPlayerGamesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "games [name]",
		Short: "List a player's most recent games",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := cfg.playerName(firstArg(args))
			if err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}

			var result response.GameList
			path := fmt.Sprintf("/api/v1/players/%s/games?limit=%d", url.PathEscape(name), limit)
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of games to show")

	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
