package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Browse rooms",
		Long: `Read-only views of the server's rooms.

Creating, joining and playing in rooms happens over the websocket; see
the play command.`,
	}

	cmd.AddCommand(newRoomListCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomStatsCmd())

	return cmd
}

func newRoomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomList

			if err := client.Get("/api/v1/rooms", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <room-id>",
		Short: "Get room details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomDetail

			if err := client.Get("/api/v1/rooms/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show room and player counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomStats

			if err := client.Get("/api/v1/rooms/stats", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
