package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/plan"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"plan", "revise", "discover", "select", "clear", "events", "user", "invite", "export", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestRootCmd_PreRunAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  provider: serper\n"), 0644))

	configPath, logLevel = path, "debug"
	defer func() { configPath, logLevel = "", "" }()

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, "serper", cfg.Search.Provider)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestRootCmd_PreRunMissingConfig(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "missing.yaml")
	defer func() { configPath = "" }()

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		cmd   string
		flags []string
	}{
		{"plan", []string{"category", "date", "guests", "budget", "location", "name", "user", "save"}},
		{"revise", []string{"event", "feedback"}},
		{"discover", []string{"service", "event-type", "location", "budget", "guests", "venue-type", "event", "no-cache", "json", "out"}},
		{"select", []string{"event", "service", "provider-json"}},
		{"clear", []string{"event", "service"}},
		{"invite", []string{"event", "to", "cc", "sender", "style", "details"}},
		{"export", []string{"event", "out"}},
		{"serve", []string{"port"}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{tt.cmd})
			require.NoError(t, err)
			for _, f := range tt.flags {
				assert.NotNil(t, c.Flags().Lookup(f), "flag --%s", f)
			}
		})
	}
}

func TestEventsCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range eventsCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "show"}, names)
}

func TestFormatServices(t *testing.T) {
	venue := model.NewServiceLine("Venue", 60000)
	venue.Select(&model.Provider{Name: "Grand Hall"})
	services := []model.ServiceLine{venue, model.NewServiceLine("Catering", 40000)}

	var buf bytes.Buffer
	formatServices(&buf, services, 100000)
	out := buf.String()

	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "Grand Hall")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "pending")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-1]
	assert.Contains(t, last, "TOTAL")
	assert.Contains(t, last, "100000")
}

func TestFormatProviders(t *testing.T) {
	var buf bytes.Buffer
	formatProviders(&buf, []model.Provider{
		model.Header("Banquet halls"),
		{Name: "Rose Garden", Contact: "+91 98765 43210", Price: "₹1,200 per plate", Rating: "4.5", SourceURL: "https://example.com/rose"},
		{Name: "Blue Lotus", Website: "https://bluelotus.example"},
	})
	out := buf.String()

	assert.Contains(t, out, "== Banquet halls ==")
	assert.Contains(t, out, "Rose Garden")
	assert.Contains(t, out, "https://example.com/rose")
	assert.Contains(t, out, "https://bluelotus.example")
}

func TestFormatEventsList(t *testing.T) {
	venue := model.NewServiceLine("Venue", 60000)
	venue.Select(&model.Provider{Name: "Grand Hall"})
	events := []model.EventPlan{{
		ID:          "0123456789abcdef",
		EventName:   "A very long anniversary celebration name indeed",
		Category:    "Anniversary",
		Date:        "2026-12-01",
		TotalBudget: 100000,
		Services:    []model.ServiceLine{venue, model.NewServiceLine("Catering", 40000)},
	}}

	var buf bytes.Buffer
	formatEventsList(&buf, events)
	out := buf.String()

	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "1/2")
}

func TestFormatRevision(t *testing.T) {
	var buf bytes.Buffer
	formatRevision(&buf, plan.Revision{})
	assert.Contains(t, buf.String(), "No changes")

	buf.Reset()
	formatRevision(&buf, plan.Revision{
		Add:    []plan.Addition{{Service: "Photography"}},
		Remove: []string{"Cake"},
		Modify: []plan.Modification{
			{Service: "Catering", Direction: "increase"},
			{Service: "Venue", Budget: 70000},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "add Photography")
	assert.Contains(t, out, "remove Cake")
	assert.Contains(t, out, "increase Catering")
	assert.Contains(t, out, "set Venue to 70000")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", truncateID("abc"))
	assert.Equal(t, "abcdefgh", truncateID("abcdefghijkl"))
}
