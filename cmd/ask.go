package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askOwner string
	askChat  string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question",
	Long: `Runs one conversational turn from the command line. Pass --chat to
continue an existing session; otherwise a new one is started and its id
printed so the conversation can be picked up later.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		turn, err := app.engine.Respond(cmd.Context(), askOwner, askChat, strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, turn.Reply)
		if len(turn.Passages) > 0 {
			fmt.Fprintln(out)
			for _, p := range turn.Passages {
				fmt.Fprintf(out, "source: %s\n", p.ContextLabel)
			}
		}
		if askChat == "" {
			fmt.Fprintf(out, "\nchat id: %s\n", turn.ChatID)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askOwner, "owner", "local@edvisor", "owner identity for the conversation store")
	askCmd.Flags().StringVar(&askChat, "chat", "", "existing chat id to continue")
}
