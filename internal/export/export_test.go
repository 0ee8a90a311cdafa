package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/event-planner/internal/model"
)

func readSheet(t *testing.T, data []byte, name string) [][]string {
	t.Helper()
	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	sheet, ok := f.Sheet[name]
	require.True(t, ok, "sheet %q missing", name)

	var rows [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		for len(cells) > 0 && cells[len(cells)-1] == "" {
			cells = cells[:len(cells)-1]
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestWriteEvent(t *testing.T) {
	venue := model.NewServiceLine("Venue", 60000)
	venue.Select(&model.Provider{Name: "Blue Lawns", Contact: "+91 98765 43210", Price: "₹60,000", Address: "Baner"})
	ev := &model.EventPlan{
		EventName:   "Asha turns 30",
		Category:    "Birthday",
		Location:    "Pune",
		GuestCount:  80,
		TotalBudget: 100000,
		Services:    []model.ServiceLine{venue, model.NewServiceLine("Catering", 40000)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEvent(&buf, ev))

	plan := readSheet(t, buf.Bytes(), PlanSheet)
	assert.Equal(t, []string{"Event", "Asha turns 30"}, plan[0])
	assert.Equal(t, planHeader, plan[7])
	assert.Equal(t, []string{"Venue", "60000", "completed", "Blue Lawns", "+91 98765 43210", "₹60,000"}, plan[8])
	assert.Equal(t, []string{"Catering", "40000", "pending"}, plan[9])
	assert.Equal(t, []string{"Total", "100000"}, plan[10])

	providers := readSheet(t, buf.Bytes(), ProvidersSheet)
	require.Len(t, providers, 2)
	assert.Equal(t, "Venue", providers[1][0])
	assert.Equal(t, "Blue Lawns", providers[1][1])
	assert.Equal(t, "Baner", providers[1][2])
}

func TestWriteProvidersWithSections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProviders(&buf, []model.Provider{
		model.Header("Offline Decoration Vendors"),
		{Name: "Petal Works", ServiceType: "Decoration", SourceURL: "https://www.wedmegood.com/p"},
		model.Header("Online Decoration Vendors"),
		{Name: "CherishX", Website: "https://www.cherishx.com/pune/decoration", Defaulted: true},
	}))

	rows := readSheet(t, buf.Bytes(), ProvidersSheet)
	require.Len(t, rows, 5)
	assert.Equal(t, providerHeader, rows[0])
	assert.Equal(t, []string{"Offline Decoration Vendors"}, rows[1])
	assert.Equal(t, "Petal Works", rows[2][1])
	assert.Equal(t, "https://www.wedmegood.com/p", rows[2][8])
	assert.Equal(t, "https://www.cherishx.com/pune/decoration", rows[4][6])
}
