package model

import (
	"strings"
	"time"
)

// ServiceStatus tracks whether a provider has been chosen for a service line.
type ServiceStatus string

const (
	ServiceStatusPending   ServiceStatus = "pending"
	ServiceStatusCompleted ServiceStatus = "completed"
)

// EventPlan is a single planning session: the event description plus the
// services the user is budgeting for.
type EventPlan struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id,omitempty"`
	EventName   string        `json:"event_name"`
	Category    string        `json:"category"`
	Date        string        `json:"date"`
	GuestCount  int           `json:"guest_count"`
	TotalBudget int           `json:"total_budget"`
	Location    string        `json:"location"`
	Services    []ServiceLine `json:"services"`
	Invitation  *Invitation   `json:"invitation,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ServiceLine is one budgeted service within an event plan.
//
// Status and SelectedProvider move together: use Select and Clear rather
// than setting the fields directly.
type ServiceLine struct {
	ServiceName      string        `json:"service_name"`
	Budget           int           `json:"budget"`
	Status           ServiceStatus `json:"status"`
	SelectedProvider *Provider     `json:"selected_provider,omitempty"`
}

// NewServiceLine returns a pending service line.
func NewServiceLine(name string, budget int) ServiceLine {
	return ServiceLine{ServiceName: name, Budget: budget, Status: ServiceStatusPending}
}

// Select attaches a provider and marks the line completed. A nil provider
// clears the selection.
func (s *ServiceLine) Select(p *Provider) {
	if p == nil {
		s.Clear()
		return
	}
	cp := *p
	s.SelectedProvider = &cp
	s.Status = ServiceStatusCompleted
}

// Clear removes the selected provider and returns the line to pending.
func (s *ServiceLine) Clear() {
	s.SelectedProvider = nil
	s.Status = ServiceStatusPending
}

// Consistent reports whether Status agrees with SelectedProvider.
func (s ServiceLine) Consistent() bool {
	return (s.Status == ServiceStatusCompleted) == (s.SelectedProvider != nil)
}

// SumBudgets returns the total of all service budgets.
func SumBudgets(services []ServiceLine) int {
	total := 0
	for _, s := range services {
		total += s.Budget
	}
	return total
}

// FindService returns the index of the first service whose name matches
// case-insensitively, or -1.
func FindService(services []ServiceLine, name string) int {
	for i, s := range services {
		if strings.EqualFold(strings.TrimSpace(s.ServiceName), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// WithinTolerance reports whether the services sum to total within the
// given fractional tolerance (0.05 = ±5%).
func WithinTolerance(services []ServiceLine, total int, tolerance float64) bool {
	if total <= 0 {
		return true
	}
	diff := float64(SumBudgets(services) - total)
	if diff < 0 {
		diff = -diff
	}
	return diff/float64(total) <= tolerance
}

// Invitation records the invitation generated for an event.
type Invitation struct {
	Data    InvitationData  `json:"data"`
	Style   InvitationStyle `json:"style"`
	PDFPath string          `json:"pdf_path,omitempty"`
	SentTo  []string        `json:"sent_to,omitempty"`
	SentAt  *time.Time      `json:"sent_at,omitempty"`
}

// InvitationData is the content rendered onto the invitation.
type InvitationData struct {
	ID                  string `json:"id"`
	EventName           string `json:"event_name"`
	EventType           string `json:"event_type"`
	EventDate           string `json:"event_date"`
	EventTime           string `json:"event_time"`
	VenueName           string `json:"venue_name"`
	VenueAddress        string `json:"venue_address"`
	HostName            string `json:"host_name"`
	GuestCount          int    `json:"guest_count"`
	RSVPContact         string `json:"rsvp_contact"`
	SpecialInstructions string `json:"special_instructions"`
	Text                string `json:"text"`
}

// InvitationStyle controls the look of the rendered invitation.
type InvitationStyle struct {
	ColorScheme   ColorScheme `json:"color_scheme"`
	Font          FontChoice  `json:"font"`
	BorderStyleID int         `json:"border_style_id"`
	Background    Background  `json:"background"`
}

// ColorScheme holds the three invitation colors.
type ColorScheme struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
}

// FontChoice names the heading and body fonts.
type FontChoice struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Background is the invitation page background.
type Background struct {
	Color string `json:"color"`
}

// User is an account that owns event plans.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
