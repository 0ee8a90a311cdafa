package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sells-group/event-planner/internal/discovery"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/plan"
	"github.com/sells-group/event-planner/internal/strategy"
)

// planRequest is the body of POST /api/plans.
type planRequest struct {
	model.EventPlan
	// Save stores the generated plan as a new event.
	Save bool `json:"save"`
}

func validateEvent(ev model.EventPlan) string {
	switch {
	case strings.TrimSpace(ev.Category) == "":
		return "category is required"
	case strings.TrimSpace(ev.Location) == "":
		return "location is required"
	case ev.TotalBudget <= 0:
		return "total_budget must be positive"
	case ev.GuestCount < 0:
		return "guest_count must not be negative"
	}
	return ""
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := validateEvent(req.EventPlan); msg != "" {
		fail(w, http.StatusBadRequest, msg)
		return
	}

	services, err := s.deps.Planner.Generate(r.Context(), req.EventPlan)
	if err != nil {
		failErr(w, err, "generate plan")
		return
	}
	ev := req.EventPlan
	ev.Services = services

	if req.Save {
		saved, err := s.deps.Store.CreateEvent(r.Context(), &ev)
		if err != nil {
			failErr(w, err, "save plan")
			return
		}
		ev = *saved
	}
	respond(w, http.StatusOK, fmt.Sprintf("generated %d services", len(ev.Services)), ev)
}

// reviseRequest carries either a saved event id or an inline plan.
type reviseRequest struct {
	EventID  string           `json:"event_id,omitempty"`
	Plan     *model.EventPlan `json:"plan,omitempty"`
	Feedback string           `json:"feedback"`
}

type reviseResponse struct {
	Services []model.ServiceLine `json:"services"`
	Revision plan.Revision       `json:"revision"`
}

func (s *Server) handleRevisePlan(w http.ResponseWriter, r *http.Request) {
	var req reviseRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Feedback) == "" {
		fail(w, http.StatusBadRequest, "feedback is required")
		return
	}

	var ev model.EventPlan
	switch {
	case req.EventID != "":
		saved, err := s.deps.Store.GetEvent(r.Context(), req.EventID)
		if err != nil {
			failErr(w, err, "load event")
			return
		}
		ev = *saved
	case req.Plan != nil:
		ev = *req.Plan
	default:
		fail(w, http.StatusBadRequest, "event_id or plan is required")
		return
	}

	services, rev := s.deps.Reviser.Revise(r.Context(), ev, req.Feedback)
	if req.EventID != "" {
		if err := s.deps.Store.UpdateServices(r.Context(), req.EventID, services); err != nil {
			failErr(w, err, "save revision")
			return
		}
	}
	msg := "plan revised"
	if rev.Empty() {
		msg = "no changes recognised in feedback"
	}
	respond(w, http.StatusOK, msg, reviseResponse{Services: services, Revision: rev})
}

// discoverRequest is a service request, optionally completed from a saved event.
type discoverRequest struct {
	strategy.Request
	EventID string `json:"event_id,omitempty"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Service) == "" {
		fail(w, http.StatusBadRequest, "service is required")
		return
	}

	sr := req.Request
	if req.EventID != "" {
		ev, err := s.deps.Store.GetEvent(r.Context(), req.EventID)
		if err != nil {
			failErr(w, err, "load event")
			return
		}
		sr = discovery.RequestFor(sr, ev)
	}
	if strings.TrimSpace(sr.Location) == "" {
		fail(w, http.StatusBadRequest, "location is required")
		return
	}

	res := s.deps.Discoverer.Discover(r.Context(), sr)
	if res.Err != nil {
		respond(w, http.StatusOK, res.Err.Error(), res.Wire())
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("found %d providers", countProviders(res.Providers)), res.Wire())
}

func countProviders(ps []model.Provider) int {
	n := 0
	for _, p := range ps {
		if !p.IsHeader {
			n++
		}
	}
	return n
}
