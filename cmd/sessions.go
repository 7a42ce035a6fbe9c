package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edvisor-fi/edvisor/internal/session"
)

var sessionsOwner string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		infos, err := app.store.ListSessions(cmd.Context(), sessionsOwner)
		if err != nil {
			return err
		}

		if len(infos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no conversations")
			return nil
		}

		now := time.Now()
		for _, info := range infos {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-33s %s\n",
				info.ChatID, info.Title, session.RelativeTime(info.CreatedAt, now))
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <chat-id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.store.DeleteSession(cmd.Context(), sessionsOwner, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.PersistentFlags().StringVar(&sessionsOwner, "owner", "local@edvisor", "owner identity for the conversation store")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
