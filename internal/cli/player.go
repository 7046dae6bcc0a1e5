package cli

import (
	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player identity and sessions",
	}

	cmd.AddCommand(newSessionCmd("guest", "Play as a guest", "/api/v1/players/guest",
		field{flag: "name", key: "nickname", usage: "Nickname"},
	))
	cmd.AddCommand(newSessionCmd("register", "Register an account and sign in", "/api/v1/players/register",
		field{flag: "name", key: "nickname", usage: "Nickname"},
		field{flag: "user", key: "username", usage: "Username"},
		field{flag: "pass", key: "password", usage: "Password"},
	))
	cmd.AddCommand(newSessionCmd("login", "Sign in to an existing account", "/api/v1/players/login",
		field{flag: "user", key: "username", usage: "Username"},
		field{flag: "pass", key: "password", usage: "Password"},
	))
	cmd.AddCommand(newPlayerMeCmd())
	cmd.AddCommand(newPlayerLogoutCmd())

	return cmd
}

// field binds a required flag to a key of the request body
type field struct {
	flag  string
	key   string
	usage string
}

// newSessionCmd builds a command that posts its flags to path and keeps
// the session it gets back
func newSessionCmd(use, short, path string, fields ...field) *cobra.Command {
	values := make([]string, len(fields))

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := make(map[string]string, len(fields))
			for i, f := range fields {
				body[f.key] = values[i]
			}

			var result AuthResult
			if err := client.Post(path, body, &result); err != nil {
				return err
			}
			if err := cfg.remember(result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	for i, f := range fields {
		cmd.Flags().StringVar(&values[i], f.flag, "", f.usage+" (required)")
		_ = cmd.MarkFlagRequired(f.flag)
	}
	return cmd
}

func newPlayerMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Player
			if err := client.Get("/api/v1/players/me", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newPlayerLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/players/logout", nil, nil); err != nil {
				return err
			}
			if err := cfg.forget(); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Logged out")
			return nil
		},
	}
}
