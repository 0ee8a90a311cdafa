package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/event-planner/internal/invite"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/store"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Password) < store.MinPasswordLen {
		fail(w, http.StatusBadRequest, "a valid email and a password of at least 8 characters are required")
		return
	}
	u, err := s.deps.Store.CreateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		failErr(w, err, "create user")
		return
	}
	respond(w, http.StatusCreated, "user created", u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	u, err := s.deps.Store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		failErr(w, err, "login")
		return
	}
	respond(w, http.StatusOK, "authenticated", u)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.deps.Store.ListEventsByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		failErr(w, err, "list events")
		return
	}
	if events == nil {
		events = []model.EventPlan{}
	}
	respond(w, http.StatusOK, "ok", events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.EventPlan
	if !decode(w, r, &ev) {
		return
	}
	if msg := validateEvent(ev); msg != "" {
		fail(w, http.StatusBadRequest, msg)
		return
	}
	saved, err := s.deps.Store.CreateEvent(r.Context(), &ev)
	if err != nil {
		failErr(w, err, "create event")
		return
	}
	respond(w, http.StatusCreated, "event created", saved)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.deps.Store.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		failErr(w, err, "get event")
		return
	}
	respond(w, http.StatusOK, "ok", ev)
}

func (s *Server) handleUpdateServices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Services []model.ServiceLine `json:"services"`
	}
	if !decode(w, r, &req) {
		return
	}
	for _, line := range req.Services {
		if strings.TrimSpace(line.ServiceName) == "" || line.Budget < 0 {
			fail(w, http.StatusBadRequest, "every service needs a name and a non-negative budget")
			return
		}
	}
	if err := s.deps.Store.UpdateServices(r.Context(), chi.URLParam(r, "eventID"), req.Services); err != nil {
		failErr(w, err, "update services")
		return
	}
	respond(w, http.StatusOK, "services updated", nil)
}

func (s *Server) handleSelectProvider(w http.ResponseWriter, r *http.Request) {
	var p model.Provider
	if !decode(w, r, &p) {
		return
	}
	p.Normalize()
	if p.Name == "" || p.IsHeader {
		fail(w, http.StatusBadRequest, "provider name is required")
		return
	}
	if err := s.deps.Store.UpdateServiceProvider(r.Context(), chi.URLParam(r, "eventID"), serviceParam(r), &p); err != nil {
		failErr(w, err, "select provider")
		return
	}
	respond(w, http.StatusOK, "provider selected", nil)
}

func (s *Server) handleClearProvider(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.UpdateServiceProvider(r.Context(), chi.URLParam(r, "eventID"), serviceParam(r), nil); err != nil {
		failErr(w, err, "clear provider")
		return
	}
	respond(w, http.StatusOK, "provider cleared", nil)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	if s.deps.Inviter == nil {
		fail(w, http.StatusServiceUnavailable, "invitations are not configured")
		return
	}
	var req invite.Request
	if !decode(w, r, &req) {
		return
	}
	if len(req.To) == 0 {
		fail(w, http.StatusBadRequest, "at least one recipient is required")
		return
	}
	inv, err := s.deps.Inviter.Send(r.Context(), chi.URLParam(r, "eventID"), req)
	if err != nil {
		failErr(w, err, "send invitation")
		return
	}
	respond(w, http.StatusOK, "invitation sent", inv)
}

// serviceParam returns the unescaped service name from the path.
func serviceParam(r *http.Request) string {
	raw := chi.URLParam(r, "service")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}
