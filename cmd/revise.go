package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/event-planner/internal/plan"
)

var reviseCmd = &cobra.Command{
	Use:   "revise",
	Short: "Apply natural-language feedback to a saved plan",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("plan"); err != nil {
			return err
		}
		ctx := cmd.Context()
		eventID, _ := cmd.Flags().GetString("event")
		feedback, _ := cmd.Flags().GetString("feedback")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ev, err := st.GetEvent(ctx, eventID)
		if err != nil {
			return eris.Wrap(err, "revise")
		}

		services, rev := plan.NewReviser(newLLM(newPacer(), newPolicy())).Revise(ctx, *ev, feedback)
		formatRevision(os.Stdout, rev)
		if rev.Empty() {
			return nil
		}
		if err := st.UpdateServices(ctx, ev.ID, services); err != nil {
			return eris.Wrap(err, "revise: save")
		}
		formatServices(os.Stdout, services, ev.TotalBudget)
		return nil
	},
}

// formatRevision summarises the changes recognised in the feedback.
func formatRevision(out io.Writer, rev plan.Revision) {
	if rev.Empty() {
		fmt.Fprintln(out, "No changes recognised in feedback.")
		return
	}
	var parts []string
	for _, a := range rev.Add {
		parts = append(parts, "add "+a.Service)
	}
	for _, r := range rev.Remove {
		parts = append(parts, "remove "+r)
	}
	for _, m := range rev.Modify {
		switch {
		case m.Budget > 0:
			parts = append(parts, fmt.Sprintf("set %s to %d", m.Service, m.Budget))
		case m.Direction != "":
			parts = append(parts, m.Direction+" "+m.Service)
		}
	}
	fmt.Fprintf(out, "Changes: %s\n\n", strings.Join(parts, ", "))
}

func init() {
	reviseCmd.Flags().String("event", "", "event id")
	reviseCmd.Flags().String("feedback", "", "feedback text, e.g. \"remove cake and increase catering\"")
	_ = reviseCmd.MarkFlagRequired("event")
	_ = reviseCmd.MarkFlagRequired("feedback")
	rootCmd.AddCommand(reviseCmd)
}
