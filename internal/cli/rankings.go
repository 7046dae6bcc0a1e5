package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRankingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Leaderboard commands",
	}

	cmd.AddCommand(newRankingsTopCmd())
	cmd.AddCommand(newRankingsMeCmd())
	cmd.AddCommand(newRankingsSubmitCmd())

	return cmd
}

func newRankingsTopCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/rankings/top"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}

			var result Leaderboard
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Number of entries (default: server default)")

	return cmd
}

func newRankingsMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Ranking

			if err := client.Get("/api/v1/rankings/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRankingsSubmitCmd() *cobra.Command {
	var score int

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a score",
		RunE: func(cmd *cobra.Command, args []string) error {
			if score < 0 {
				return fmt.Errorf("--score must not be negative")
			}

			req := map[string]int{"score": score}
			var result Ranking

			if err := client.Post("/api/v1/rankings", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&score, "score", 0, "Score (required)")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}
