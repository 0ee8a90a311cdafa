package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/discovery"
	"github.com/sells-group/event-planner/internal/export"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/store"
	"github.com/sells-group/event-planner/internal/strategy"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find vendors for one service",
	Long:  "Searches listing sites for the service, extracts and ranks providers, then fills in contact, price and map links.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("discover"); err != nil {
			return err
		}
		ctx := cmd.Context()

		req := strategy.Request{}
		req.Service, _ = cmd.Flags().GetString("service")
		req.EventType, _ = cmd.Flags().GetString("event-type")
		req.Location, _ = cmd.Flags().GetString("location")
		req.Budget, _ = cmd.Flags().GetInt("budget")
		req.GuestCount, _ = cmd.Flags().GetInt("guests")
		req.VenueType, _ = cmd.Flags().GetString("venue-type")
		eventID, _ := cmd.Flags().GetString("event")
		noCache, _ := cmd.Flags().GetBool("no-cache")
		asJSON, _ := cmd.Flags().GetBool("json")
		outPath, _ := cmd.Flags().GetString("out")

		var st store.Store
		if eventID != "" || !noCache {
			s, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck
			st = s
		}
		if eventID != "" {
			ev, err := st.GetEvent(ctx, eventID)
			if err != nil {
				return eris.Wrap(err, "discover")
			}
			req = discovery.RequestFor(req, ev)
		}
		if req.Location == "" {
			return eris.New("discover: --location is required")
		}

		var cache discovery.Cache
		if !noCache {
			cache = st
		}
		pacer := newPacer()
		policy := newPolicy()
		orch, err := newDiscovery(newLLM(pacer, policy), pacer, policy, cache)
		if err != nil {
			return err
		}

		res := orch.Discover(ctx, req)
		zap.L().Info("discover: finished",
			zap.String("service", req.Service),
			zap.String("state", string(res.State)),
			zap.Bool("cached", res.Cached),
		)

		if outPath != "" && res.Err == nil {
			if err := writeFile(outPath, func(w io.Writer) error { return export.WriteProviders(w, res.Providers) }); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", outPath)
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Wire())
		}
		if res.Err != nil {
			fmt.Fprintln(os.Stdout, res.Err.Error())
			return nil
		}
		formatProviders(os.Stdout, res.Providers)
		return nil
	},
}

// formatProviders writes providers as a table. Section headers print as
// their own line.
func formatProviders(out io.Writer, providers []model.Provider) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCONTACT\tPRICE\tRATING\tSOURCE")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----\t------\t------")
	for _, p := range providers {
		if p.IsHeader {
			_, _ = fmt.Fprintf(w, "== %s ==\t\t\t\t\n", p.Name)
			continue
		}
		source := p.SourceURL
		if source == "" {
			source = p.Website
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Contact, p.Price, p.Rating, source)
	}
	_ = w.Flush()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

func init() {
	discoverCmd.Flags().String("service", "", "service name, e.g. Catering")
	discoverCmd.Flags().String("event-type", "", "event type, e.g. Wedding")
	discoverCmd.Flags().String("location", "", "city to search in")
	discoverCmd.Flags().Int("budget", 0, "budget for this service")
	discoverCmd.Flags().Int("guests", 0, "guest count")
	discoverCmd.Flags().String("venue-type", "", "venue type for venue searches, e.g. banquet hall")
	discoverCmd.Flags().String("event", "", "saved event id to take the context from")
	discoverCmd.Flags().Bool("no-cache", false, "skip the discovery cache")
	discoverCmd.Flags().Bool("json", false, "print the result as JSON")
	discoverCmd.Flags().String("out", "", "also write the providers to this .xlsx file")
	_ = discoverCmd.MarkFlagRequired("service")
	rootCmd.AddCommand(discoverCmd)
}
