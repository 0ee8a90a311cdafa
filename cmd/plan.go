package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/event-planner/internal/model"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a budgeted service plan for an event",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("plan"); err != nil {
			return err
		}
		ctx := cmd.Context()

		ev := model.EventPlan{}
		ev.Category, _ = cmd.Flags().GetString("category")
		ev.Date, _ = cmd.Flags().GetString("date")
		ev.GuestCount, _ = cmd.Flags().GetInt("guests")
		ev.TotalBudget, _ = cmd.Flags().GetInt("budget")
		ev.Location, _ = cmd.Flags().GetString("location")
		ev.EventName, _ = cmd.Flags().GetString("name")
		ev.UserID, _ = cmd.Flags().GetString("user")
		save, _ := cmd.Flags().GetBool("save")

		if ev.TotalBudget <= 0 {
			return eris.New("plan: --budget must be positive")
		}

		services, err := newPlanner(newLLM(newPacer(), newPolicy())).Generate(ctx, ev)
		if err != nil {
			return err
		}
		ev.Services = services
		formatServices(os.Stdout, ev.Services, ev.TotalBudget)

		if !save {
			return nil
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		saved, err := st.CreateEvent(ctx, &ev)
		if err != nil {
			return eris.Wrap(err, "plan: save")
		}
		fmt.Fprintf(os.Stdout, "\nSaved event %s\n", saved.ID)
		return nil
	},
}

// formatServices writes the service lines as a table followed by the total.
func formatServices(out io.Writer, services []model.ServiceLine, total int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERVICE\tBUDGET\tSTATUS\tPROVIDER")
	_, _ = fmt.Fprintln(w, "-------\t------\t------\t--------")
	for _, s := range services {
		provider := ""
		if s.SelectedProvider != nil {
			provider = s.SelectedProvider.Name
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.ServiceName, s.Budget, s.Status, provider)
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t%d\t\t(budget %d)\n", model.SumBudgets(services), total)
	_ = w.Flush()
}

func init() {
	planCmd.Flags().String("category", "", "event category, e.g. Wedding or Birthday")
	planCmd.Flags().String("date", "", "event date")
	planCmd.Flags().Int("guests", 0, "expected guest count")
	planCmd.Flags().Int("budget", 0, "total budget")
	planCmd.Flags().String("location", "", "event city")
	planCmd.Flags().String("name", "", "event name")
	planCmd.Flags().String("user", "", "owning user id")
	planCmd.Flags().Bool("save", false, "store the plan as a new event")
	_ = planCmd.MarkFlagRequired("category")
	_ = planCmd.MarkFlagRequired("budget")
	_ = planCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(planCmd)
}
