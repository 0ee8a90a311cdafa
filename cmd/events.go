package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/event-planner/internal/model"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect saved events",
}

// -- events list --

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetString("user")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		events, err := st.ListEventsByUser(ctx, userID)
		if err != nil {
			return eris.Wrap(err, "events list")
		}
		if len(events) == 0 {
			fmt.Fprintln(os.Stderr, "No events found.")
			return nil
		}
		formatEventsList(os.Stdout, events)
		return nil
	},
}

// -- events show --

var eventsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the full plan of an event",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		eventID, _ := cmd.Flags().GetString("event")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ev, err := st.GetEvent(ctx, eventID)
		if err != nil {
			return eris.Wrap(err, "events show")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ev)
	},
}

// -- select / clear --

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Attach a provider to a service line",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		eventID, _ := cmd.Flags().GetString("event")
		service, _ := cmd.Flags().GetString("service")
		source, _ := cmd.Flags().GetString("provider-json")

		var p model.Provider
		if err := readJSON(source, &p); err != nil {
			return err
		}
		p.Normalize()
		if p.Name == "" || p.IsHeader {
			return eris.New("select: provider name is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.UpdateServiceProvider(ctx, eventID, service, &p); err != nil {
			return eris.Wrap(err, "select")
		}
		fmt.Fprintf(os.Stdout, "Selected %s for %s\n", p.Name, service)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the provider from a service line",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		eventID, _ := cmd.Flags().GetString("event")
		service, _ := cmd.Flags().GetString("service")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.UpdateServiceProvider(ctx, eventID, service, nil); err != nil {
			return eris.Wrap(err, "clear")
		}
		fmt.Fprintf(os.Stdout, "Cleared %s\n", service)
		return nil
	},
}

// readJSON decodes a file, or stdin when source is "-".
func readJSON(source string, v any) error {
	var r io.Reader = os.Stdin
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return eris.Wrapf(err, "open %s", source)
		}
		defer f.Close() //nolint:errcheck
		r = f
	}
	return eris.Wrapf(json.NewDecoder(r).Decode(v), "decode %s", source)
}

// formatEventsList writes a tabular list of events to out.
func formatEventsList(out io.Writer, events []model.EventPlan) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tDATE\tBUDGET\tBOOKED")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t----\t------\t------")
	for _, ev := range events {
		booked := 0
		for _, s := range ev.Services {
			if s.Status == model.ServiceStatusCompleted {
				booked++
			}
		}
		name := ev.EventName
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d/%d\n",
			truncateID(ev.ID), name, ev.Category, ev.Date, ev.TotalBudget, booked, len(ev.Services))
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	eventsListCmd.Flags().String("user", "", "owning user id")
	_ = eventsListCmd.MarkFlagRequired("user")
	eventsShowCmd.Flags().String("event", "", "event id")
	_ = eventsShowCmd.MarkFlagRequired("event")
	eventsCmd.AddCommand(eventsListCmd, eventsShowCmd)

	selectCmd.Flags().String("event", "", "event id")
	selectCmd.Flags().String("service", "", "service name")
	selectCmd.Flags().String("provider-json", "-", "provider JSON file, or - for stdin")
	_ = selectCmd.MarkFlagRequired("event")
	_ = selectCmd.MarkFlagRequired("service")

	clearCmd.Flags().String("event", "", "event id")
	clearCmd.Flags().String("service", "", "service name")
	_ = clearCmd.MarkFlagRequired("event")
	_ = clearCmd.MarkFlagRequired("service")

	rootCmd.AddCommand(eventsCmd, selectCmd, clearCmd)
}
