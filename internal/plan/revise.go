package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/event-planner/internal/llm"
	"github.com/sells-group/event-planner/internal/model"
)

// Directional modifiers.
const (
	Increase = "increase"
	Decrease = "decrease"
)

// Revision is a classified edit request.
type Revision struct {
	Add    []Addition     `json:"services_to_add"`
	Remove []string       `json:"services_to_remove"`
	Modify []Modification `json:"services_to_modify"`
}

// Empty reports whether the revision changes nothing.
func (r Revision) Empty() bool {
	return len(r.Add) == 0 && len(r.Remove) == 0 && len(r.Modify) == 0
}

// Addition adds a service. Budget is optional.
type Addition struct {
	Service string `json:"service"`
	Budget  int    `json:"budget,omitempty"`
}

// Modification changes a budget. An explicit Budget wins over Direction.
type Modification struct {
	Service   string `json:"service"`
	Budget    int    `json:"budget,omitempty"`
	Direction string `json:"action,omitempty"`
}

const reviseSystem = "You turn an event planner's feedback into structured edits of a service list. Return only JSON."

const revisePrompt = `Current services and budgets (INR):
%s
Total budget: ₹%d

Feedback: %q

Classify the feedback into edits. Return a JSON object:
{"services_to_add": [{"service": string, "budget": integer|null}],
 "services_to_remove": [string],
 "services_to_modify": [{"service": string, "budget": integer|null, "action": "increase"|"decrease"|null}]}
Use the existing service names for removals and modifications. Leave a list empty when nothing applies.`

// Reviser applies natural-language feedback to a plan.
type Reviser struct {
	llm llm.Client
}

// NewReviser creates a Reviser.
func NewReviser(client llm.Client) *Reviser {
	return &Reviser{llm: client}
}

// Revise classifies feedback and applies it to the plan's services.
func (r *Reviser) Revise(ctx context.Context, ev model.EventPlan, feedback string) ([]model.ServiceLine, Revision) {
	rev := r.Analyze(ctx, ev, feedback)
	return Apply(ev.Services, ev.TotalBudget, rev), rev
}

// Analyze asks the model to classify feedback and falls back to the
// keyword grammar when the answer is unusable.
func (r *Reviser) Analyze(ctx context.Context, ev model.EventPlan, feedback string) Revision {
	var b strings.Builder
	for _, s := range ev.Services {
		fmt.Fprintf(&b, "- %s: %d\n", s.ServiceName, s.Budget)
	}
	raw, err := r.llm.ExtractJSON(ctx, llm.Request{
		Phase:  "revise",
		System: reviseSystem,
		Prompt: fmt.Sprintf(revisePrompt, b.String(), ev.TotalBudget, feedback),
		Shape:  llm.Object,
	})
	if err == nil {
		if rev, ok := DecodeRevision(raw); ok {
			return rev
		}
	}
	zap.L().Info("plan: revision falling back to keyword parse", zap.Error(err))
	return ParseFeedback(feedback, ev.Services)
}

// DecodeRevision reads the model's revision object. List items may be bare
// strings or objects; budgets may be numbers or amount strings.
func DecodeRevision(raw json.RawMessage) (Revision, bool) {
	var doc struct {
		Add    []json.RawMessage `json:"services_to_add"`
		Remove []json.RawMessage `json:"services_to_remove"`
		Modify []json.RawMessage `json:"services_to_modify"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Revision{}, false
	}
	var rev Revision
	for _, it := range doc.Add {
		if name, budget, _ := decodeItem(it); name != "" {
			rev.Add = append(rev.Add, Addition{Service: name, Budget: budget})
		}
	}
	for _, it := range doc.Remove {
		if name, _, _ := decodeItem(it); name != "" {
			rev.Remove = append(rev.Remove, name)
		}
	}
	for _, it := range doc.Modify {
		if name, budget, dir := decodeItem(it); name != "" {
			rev.Modify = append(rev.Modify, Modification{Service: name, Budget: budget, Direction: dir})
		}
	}
	return rev, true
}

func decodeItem(raw json.RawMessage) (name string, budget int, direction string) {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s), 0, ""
	}
	var m map[string]any
	if json.Unmarshal(raw, &m) != nil {
		return "", 0, ""
	}
	for _, k := range []string{"service", "name", "service_name"} {
		if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
			name = strings.TrimSpace(v)
			break
		}
	}
	switch v := m["budget"].(type) {
	case float64:
		budget = int(v)
	case string:
		budget, _ = ParseAmount(v)
	}
	for _, k := range []string{"action", "direction", "change"} {
		if v, ok := m[k].(string); ok {
			direction = normalizeDirection(v)
			break
		}
	}
	return name, budget, direction
}

func normalizeDirection(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "incr"), s == "raise", s == "more", s == "up":
		return Increase
	case strings.HasPrefix(s, "decr"), s == "reduce", s == "lower", s == "less", s == "down":
		return Decrease
	}
	return ""
}

// Apply runs removals, then modifications, then additions. Selected
// providers of untouched lines are kept.
func Apply(services []model.ServiceLine, total int, rev Revision) []model.ServiceLine {
	out := make([]model.ServiceLine, 0, len(services)+len(rev.Add))
	for _, s := range services {
		if !matchesAny(s.ServiceName, rev.Remove) {
			out = append(out, s)
		}
	}

	for _, m := range rev.Modify {
		i := matchService(out, m.Service)
		if i < 0 {
			zap.L().Debug("plan: modify target not found", zap.String("service", m.Service))
			continue
		}
		switch {
		case m.Budget > 0:
			out[i].Budget = m.Budget
		case m.Direction == Increase:
			out[i].Budget = out[i].Budget * 13 / 10
		case m.Direction == Decrease:
			out[i].Budget = out[i].Budget * 7 / 10
		}
	}

	for _, a := range rev.Add {
		if a.Service == "" || model.FindService(out, a.Service) >= 0 {
			continue
		}
		budget := a.Budget
		if budget <= 0 {
			budget = AddBudget(out, total)
		}
		out = append(out, model.NewServiceLine(a.Service, budget))
	}
	return out
}

// AddBudget is the heuristic budget of a new service: 20% of the remaining
// headroom when there is any, otherwise 5% of the total. Never negative.
func AddBudget(services []model.ServiceLine, total int) int {
	headroom := total - model.SumBudgets(services)
	if headroom > 0 {
		return headroom * 20 / 100
	}
	if total > 0 {
		return total * 5 / 100
	}
	return 0
}

func matchesAny(name string, targets []string) bool {
	for _, t := range targets {
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}

// matchService finds a line by exact case-insensitive name, then by
// containment either way.
func matchService(services []model.ServiceLine, name string) int {
	if i := model.FindService(services, name); i >= 0 {
		return i
	}
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return -1
	}
	for i, s := range services {
		sn := strings.ToLower(s.ServiceName)
		if strings.Contains(sn, n) || strings.Contains(n, sn) {
			return i
		}
	}
	return -1
}

var (
	clauseSplitRe = regexp.MustCompile(`(?i)[;\n]+|,\s+|\.\s+|\.$|\s+and\s+|\s+also\s+|\s+then\s+`)
	addRe         = regexp.MustCompile(`(?i)^(?:please\s+)?(?:add|include|need|want)\s+(?:a\s+|an\s+|some\s+)?(.+)$`)
	removeRe      = regexp.MustCompile(`(?i)^(?:please\s+)?(?:remove|delete|drop|exclude|skip|no)\s+(?:the\s+)?(.+)$`)
	increaseRe    = regexp.MustCompile(`(?i)^(?:please\s+)?(?:increase|raise|boost|more\s+for)\s+(?:the\s+)?(.+)$`)
	decreaseRe    = regexp.MustCompile(`(?i)^(?:please\s+)?(?:decrease|reduce|lower|cut|less\s+for)\s+(?:the\s+)?(.+)$`)
	setRe         = regexp.MustCompile(`(?i)^(?:please\s+)?(?:set|make|change)?\s*(?:the\s+)?(.+?)\s+(?:budget\s+)?to\s+(?:rs\.?\s*|₹\s*|inr\s*)?(\d[\d,]*(?:\.\d+)?(?:\s*(?:lakhs?|[kKL])\b)?)$`)
	trailingRe    = regexp.MustCompile(`(?i)\s+(?:budget|service|services|cost|costs|please)$`)
)

// ParseFeedback classifies feedback with a keyword grammar: "add X",
// "remove X", "increase X", "decrease X" and "X to 5000". Removals and
// modifications resolve against the current services.
func ParseFeedback(feedback string, services []model.ServiceLine) Revision {
	var rev Revision
	for _, clause := range clauseSplitRe.Split(feedback, -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		switch {
		case setRe.MatchString(clause):
			m := setRe.FindStringSubmatch(clause)
			amount, _ := ParseAmount(m[2])
			rev.Modify = append(rev.Modify, Modification{Service: resolve(target(m[1]), services), Budget: amount})
		case removeRe.MatchString(clause):
			rev.Remove = append(rev.Remove, resolve(target(removeRe.FindStringSubmatch(clause)[1]), services))
		case increaseRe.MatchString(clause):
			rev.Modify = append(rev.Modify, Modification{Service: resolve(target(increaseRe.FindStringSubmatch(clause)[1]), services), Direction: Increase})
		case decreaseRe.MatchString(clause):
			rev.Modify = append(rev.Modify, Modification{Service: resolve(target(decreaseRe.FindStringSubmatch(clause)[1]), services), Direction: Decrease})
		case addRe.MatchString(clause):
			rev.Add = append(rev.Add, Addition{Service: titleCase(target(addRe.FindStringSubmatch(clause)[1]))})
		}
	}
	return rev
}

func target(s string) string {
	s = strings.TrimSpace(s)
	for {
		t := trailingRe.ReplaceAllString(s, "")
		if t == s {
			break
		}
		s = t
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "the "), "for "))
}

// resolve maps a free-text target to an existing service name.
func resolve(name string, services []model.ServiceLine) string {
	if i := matchService(services, name); i >= 0 {
		return services[i].ServiceName
	}
	return name
}

func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(strings.Join(strings.Fields(s), " "))
}
