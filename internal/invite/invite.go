// Package invite turns an event plan into a PDF invitation and mails it to
// guests. Rendering and delivery sit behind interfaces so the API and CLI
// can swap them out.
package invite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/llm"
	"github.com/sells-group/event-planner/internal/model"
)

// Renderer writes an invitation PDF and returns its path.
type Renderer interface {
	Render(ctx context.Context, data model.InvitationData, style model.InvitationStyle) (string, error)
}

// Message is one outbound invitation email.
type Message struct {
	PDFPath    string
	Subject    string
	To         []string
	CC         []string
	SenderName string
	Body       string
}

// Mailer delivers a message with its PDF attached.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EventStore is the slice of the store the invitation flow needs.
type EventStore interface {
	GetEvent(ctx context.Context, eventID string) (*model.EventPlan, error)
	UpdateInvitation(ctx context.Context, eventID string, inv *model.Invitation) error
}

// Request describes an invitation to send.
type Request struct {
	To         []string               `json:"to"`
	CC         []string               `json:"cc,omitempty"`
	SenderName string                 `json:"sender_name,omitempty"`
	Data       model.InvitationData   `json:"data"`
	Style      *model.InvitationStyle `json:"style,omitempty"`
}

// DefaultStyle is used when a request carries no style.
func DefaultStyle() model.InvitationStyle {
	return model.InvitationStyle{
		ColorScheme:   model.ColorScheme{Primary: "#7a1f3d", Secondary: "#f4e1c1", Accent: "#c9a227"},
		Font:          model.FontChoice{Heading: "Georgia", Body: "Helvetica"},
		BorderStyleID: 1,
		Background:    model.Background{Color: "#fffaf2"},
	}
}

const textPrompt = `Write a warm two-sentence invitation for the following event. Reply with the invitation text only.

Event: %s (%s)
Date: %s %s
Venue: %s
Host: %s`

// Service renders, mails and records invitations.
type Service struct {
	renderer Renderer
	mailer   Mailer
	events   EventStore
	writer   llm.Client
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithWriter drafts the invitation text with the LLM when a request has none.
func WithWriter(c llm.Client) Option {
	return func(s *Service) { s.writer = c }
}

// NewService creates an invitation service.
func NewService(r Renderer, m Mailer, events EventStore, opts ...Option) *Service {
	s := &Service{renderer: r, mailer: m, events: events, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send renders the invitation for eventID, mails it and records it on the
// event. The event is only updated once the mail has gone out.
func (s *Service) Send(ctx context.Context, eventID string, req Request) (*model.Invitation, error) {
	if len(req.To) == 0 {
		return nil, eris.New("invite: at least one recipient is required")
	}
	log := zap.L().With(zap.String("event_id", eventID))

	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, eris.Wrap(err, "invite: load event")
	}

	data := FillData(req.Data, ev)
	if data.Text == "" {
		data.Text = s.draftText(ctx, data)
	}
	style := DefaultStyle()
	if req.Style != nil {
		style = *req.Style
	}

	path, err := s.renderer.Render(ctx, data, style)
	if err != nil {
		return nil, eris.Wrap(err, "invite: render")
	}
	log.Debug("invite: rendered", zap.String("path", path))

	msg := Message{
		PDFPath:    path,
		Subject:    fmt.Sprintf("You're invited: %s", data.EventName),
		To:         req.To,
		CC:         req.CC,
		SenderName: req.SenderName,
		Body:       data.Text,
	}
	if msg.SenderName == "" {
		msg.SenderName = data.HostName
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, eris.Wrap(err, "invite: send")
	}

	sentAt := s.now().UTC()
	inv := &model.Invitation{
		Data:    data,
		Style:   style,
		PDFPath: path,
		SentTo:  append(append([]string(nil), req.To...), req.CC...),
		SentAt:  &sentAt,
	}
	if err := s.events.UpdateInvitation(ctx, eventID, inv); err != nil {
		return nil, eris.Wrap(err, "invite: record")
	}
	log.Info("invite: sent", zap.Int("recipients", len(inv.SentTo)))
	return inv, nil
}

// FillData completes the invitation fields the user left blank from the
// event plan, taking the venue from the selected venue provider.
func FillData(d model.InvitationData, ev *model.EventPlan) model.InvitationData {
	if d.ID == "" {
		d.ID = ev.ID
	}
	if d.EventName == "" {
		d.EventName = ev.EventName
	}
	if d.EventType == "" {
		d.EventType = ev.Category
	}
	if d.EventDate == "" {
		d.EventDate = ev.Date
	}
	if d.GuestCount == 0 {
		d.GuestCount = ev.GuestCount
	}
	if i := model.FindService(ev.Services, "Venue"); i >= 0 {
		if venue := ev.Services[i].SelectedProvider; venue != nil {
			if d.VenueName == "" {
				d.VenueName = venue.Name
			}
			if d.VenueAddress == "" {
				d.VenueAddress = venue.Address
			}
		}
	}
	if d.VenueAddress == "" {
		d.VenueAddress = ev.Location
	}
	return d
}

func (s *Service) draftText(ctx context.Context, d model.InvitationData) string {
	fallback := fmt.Sprintf("You are warmly invited to %s on %s.", d.EventName, strings.TrimSpace(d.EventDate+" "+d.EventTime))
	if s.writer == nil {
		return fallback
	}
	text, err := s.writer.Classify(ctx, llm.Request{
		Phase:     "invite_text",
		Prompt:    fmt.Sprintf(textPrompt, d.EventName, d.EventType, d.EventDate, d.EventTime, d.VenueName, d.HostName),
		MaxTokens: 200,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		zap.L().Debug("invite: text draft failed, using fallback", zap.Error(err))
		return fallback
	}
	return strings.Trim(strings.TrimSpace(text), `"`)
}
