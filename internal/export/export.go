// Package export writes event shortlists and discovery results to XLSX
// workbooks for sharing outside the app.
package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/event-planner/internal/model"
)

// Sheet names.
const (
	PlanSheet      = "Plan"
	ProvidersSheet = "Providers"
)

var (
	planHeader     = []string{"Service", "Budget", "Status", "Provider", "Contact", "Price"}
	providerHeader = []string{"Service", "Name", "Address", "Contact", "Price", "Rating", "Website", "Map", "Source"}
)

// EventWorkbook builds a workbook with the plan summary and one row per
// selected provider.
func EventWorkbook(ev *model.EventPlan) (*xlsx.File, error) {
	f := xlsx.NewFile()

	plan, err := f.AddSheet(PlanSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add plan sheet")
	}
	addRow(plan, []string{"Event", ev.EventName}, nil)
	addRow(plan, []string{"Category", ev.Category}, nil)
	addRow(plan, []string{"Date", ev.Date}, nil)
	addRow(plan, []string{"Location", ev.Location}, nil)
	addRow(plan, []string{"Guests", strconv.Itoa(ev.GuestCount)}, nil)
	addRow(plan, []string{"Total budget", strconv.Itoa(ev.TotalBudget)}, nil)
	plan.AddRow()
	addRow(plan, planHeader, headerStyle())

	var selected []model.Provider
	for _, s := range ev.Services {
		row := plan.AddRow()
		row.AddCell().SetString(s.ServiceName)
		row.AddCell().SetInt(s.Budget)
		row.AddCell().SetString(string(s.Status))
		if p := s.SelectedProvider; p != nil {
			row.AddCell().SetString(p.Name)
			row.AddCell().SetString(p.Contact)
			row.AddCell().SetString(p.Price)
			sp := *p
			sp.ServiceType = s.ServiceName
			selected = append(selected, sp)
		}
	}
	total := plan.AddRow()
	total.AddCell().SetString("Total")
	total.AddCell().SetInt(model.SumBudgets(ev.Services))

	if err := addProviders(f, selected); err != nil {
		return nil, err
	}
	return f, nil
}

// ProvidersWorkbook builds a single-sheet workbook from a discovery result.
// Section headers become bold label rows.
func ProvidersWorkbook(providers []model.Provider) (*xlsx.File, error) {
	f := xlsx.NewFile()
	if err := addProviders(f, providers); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteEvent writes the event workbook to w.
func WriteEvent(w io.Writer, ev *model.EventPlan) error {
	f, err := EventWorkbook(ev)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

// WriteProviders writes the providers workbook to w.
func WriteProviders(w io.Writer, providers []model.Provider) error {
	f, err := ProvidersWorkbook(providers)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

func addProviders(f *xlsx.File, providers []model.Provider) error {
	sheet, err := f.AddSheet(ProvidersSheet)
	if err != nil {
		return eris.Wrap(err, "export: add providers sheet")
	}
	bold := headerStyle()
	addRow(sheet, providerHeader, bold)
	for _, p := range providers {
		if p.IsHeader {
			addRow(sheet, []string{p.Name}, bold)
			continue
		}
		addRow(sheet, []string{p.ServiceType, p.Name, p.Address, p.Contact, p.Price, p.Rating, p.Website, p.MapURL, p.SourceURL}, nil)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string, style *xlsx.Style) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		cell.SetString(v)
		if style != nil {
			cell.SetStyle(style)
		}
	}
}

func headerStyle() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font.Bold = true
	s.ApplyFont = true
	return s
}
