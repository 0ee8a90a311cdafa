package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/event-planner/internal/invite"
	"github.com/sells-group/event-planner/internal/llm"
	"github.com/sells-group/event-planner/internal/model"
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Render and email an invitation for a saved event",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("invite"); err != nil {
			return err
		}
		ctx := cmd.Context()
		eventID, _ := cmd.Flags().GetString("event")
		to, _ := cmd.Flags().GetStringSlice("to")
		cc, _ := cmd.Flags().GetStringSlice("cc")
		sender, _ := cmd.Flags().GetString("sender")
		stylePath, _ := cmd.Flags().GetString("style")
		detailsPath, _ := cmd.Flags().GetString("details")

		req := invite.Request{To: to, CC: cc, SenderName: sender}
		if detailsPath != "" {
			if err := readJSON(detailsPath, &req.Data); err != nil {
				return err
			}
		}
		if stylePath != "" {
			var style model.InvitationStyle
			if err := readJSON(stylePath, &style); err != nil {
				return err
			}
			req.Style = &style
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var writer llm.Client
		if cfg.Anthropic.Key != "" {
			writer = newLLM(newPacer(), newPolicy())
		}
		inv, err := newInviter(st, writer).Send(ctx, eventID, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Sent invitation to %d recipients (%s)\n", len(inv.SentTo), inv.PDFPath)
		return nil
	},
}

func init() {
	inviteCmd.Flags().String("event", "", "event id")
	inviteCmd.Flags().StringSlice("to", nil, "recipient addresses")
	inviteCmd.Flags().StringSlice("cc", nil, "cc addresses")
	inviteCmd.Flags().String("sender", "", "sender display name (default host name)")
	inviteCmd.Flags().String("style", "", "invitation style JSON file")
	inviteCmd.Flags().String("details", "", "invitation details JSON file")
	_ = inviteCmd.MarkFlagRequired("event")
	_ = inviteCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(inviteCmd)
}
