package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const healthPollInterval = 250 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check that the server is up.

With --wait the check is retried until the server answers or the
duration runs out, which is handy right after starting a server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := checkHealth(wait)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long (e.g. 10s)")

	return cmd
}

func checkHealth(wait time.Duration) (HealthResult, error) {
	deadline := time.Now().Add(wait)

	for {
		var result HealthResult
		err := client.Get("/api/v1/health", &result)
		if err == nil {
			return result, nil
		}
		if time.Now().Add(healthPollInterval).After(deadline) {
			if wait > 0 {
				return HealthResult{}, fmt.Errorf("server not healthy after %s: %w", wait, err)
			}
			return HealthResult{}, err
		}
		time.Sleep(healthPollInterval)
	}
}
