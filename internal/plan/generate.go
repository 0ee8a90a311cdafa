// Package plan produces and revises the budgeted service list of an event.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/llm"
	"github.com/sells-group/event-planner/internal/model"
)

// DefaultTolerance is the allowed divergence of the budget sum from the
// event total.
const DefaultTolerance = 0.05

const plannerSystem = "You are an experienced Indian event planner. Be practical and budget conscious."

const requirementsPrompt = `List the essential services needed for this event.

Event category: %s
Guest count: %d
Location: %s

Include only what the event cannot do without (for example venue and catering). Avoid luxurious extras.
Return a JSON array of short service names, e.g. ["Venue", "Catering", "Decoration"].`

const budgetPrompt = `Split the total budget across these services for the event.

Services: %s
Total budget: ₹%d
Event category: %s
Location: %s
Guest count: %d

Return a JSON object mapping each service name exactly as given to an integer amount in INR. The amounts must add up to the total budget.`

// Generator runs the requirements and budget stages.
type Generator struct {
	llm       llm.Client
	defaults  *Defaults
	rescale   bool
	tolerance float64
}

// Option configures a Generator.
type Option func(*Generator)

// WithRescale controls whether budgets are rescaled to the event total
// when they diverge by more than the tolerance.
func WithRescale(on bool, tolerance float64) Option {
	return func(g *Generator) {
		g.rescale = on
		if tolerance > 0 {
			g.tolerance = tolerance
		}
	}
}

// WithDefaults replaces the embedded default service lists.
func WithDefaults(d *Defaults) Option {
	return func(g *Generator) { g.defaults = d }
}

// NewGenerator creates a Generator. Rescaling is on by default.
func NewGenerator(client llm.Client, opts ...Option) *Generator {
	g := &Generator{
		llm:       client,
		defaults:  builtinDefaults,
		rescale:   true,
		tolerance: DefaultTolerance,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate returns the budgeted service lines for ev. Model failures fall
// back to parsed or default answers; only a cancelled context is an error.
func (g *Generator) Generate(ctx context.Context, ev model.EventPlan) ([]model.ServiceLine, error) {
	services := g.Requirements(ctx, ev)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "plan: generate")
	}
	budgets := g.Budgets(ctx, ev, services)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "plan: generate")
	}

	lines := make([]model.ServiceLine, len(services))
	for i, s := range services {
		lines[i] = model.NewServiceLine(s, budgets[i])
	}
	if g.rescale && !model.WithinTolerance(lines, ev.TotalBudget, g.tolerance) {
		zap.L().Info("plan: rescaling budgets",
			zap.Int("sum", model.SumBudgets(lines)),
			zap.Int("total", ev.TotalBudget),
		)
		lines = Rescale(lines, ev.TotalBudget)
	}
	return lines, nil
}

// Requirements asks for the essential services: strict JSON first, then a
// bullet list, then the category defaults.
func (g *Generator) Requirements(ctx context.Context, ev model.EventPlan) []string {
	log := zap.L().With(zap.String("phase", "requirements"), zap.String("category", ev.Category))
	text, err := g.llm.Classify(ctx, llm.Request{
		Phase:  "requirements",
		System: plannerSystem,
		Prompt: fmt.Sprintf(requirementsPrompt, ev.Category, ev.GuestCount, ev.Location),
	})
	if err != nil {
		log.Warn("plan: requirements call failed, using defaults", zap.Error(err))
		return g.defaults.ServicesFor(ev.Category)
	}
	if services, ok := ParseServiceArray(text); ok {
		return services
	}
	if services, ok := ParseBullets(text); ok {
		log.Debug("plan: requirements parsed from bullets")
		return services
	}
	log.Warn("plan: requirements unparseable, using defaults")
	return g.defaults.ServicesFor(ev.Category)
}

// Budgets asks for a per-service split aligned with services: strict JSON
// first, then "service ... number" pairs, then an equal split. Services the
// answer leaves out share whatever the answer left unallocated.
func (g *Generator) Budgets(ctx context.Context, ev model.EventPlan, services []string) []int {
	log := zap.L().With(zap.String("phase", "budget"))
	var parsed map[string]int
	text, err := g.llm.Classify(ctx, llm.Request{
		Phase:  "budget",
		System: plannerSystem,
		Prompt: fmt.Sprintf(budgetPrompt, strings.Join(services, ", "), ev.TotalBudget, ev.Category, ev.Location, ev.GuestCount),
	})
	if err != nil {
		log.Warn("plan: budget call failed, splitting equally", zap.Error(err))
	} else if m, ok := ParseBudgetObject(text); ok {
		parsed = m
	} else if m := ParseBudgetPairs(text, services); len(m) > 0 {
		log.Debug("plan: budget parsed from pairs")
		parsed = m
	}
	return alignBudgets(services, parsed, ev.TotalBudget)
}

func alignBudgets(services []string, parsed map[string]int, total int) []int {
	out := make([]int, len(services))
	var missing []int
	assigned := 0
	for i, s := range services {
		if v, ok := lookupFold(parsed, s); ok {
			out[i] = v
			assigned += v
		} else {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		left := total - assigned
		if left < 0 {
			left = 0
		}
		share := left / len(missing)
		for _, i := range missing {
			out[i] = share
		}
	}
	return out
}

func lookupFold(m map[string]int, key string) (int, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(key)) {
			return v, true
		}
	}
	return 0, false
}

// ParseServiceArray reads a JSON array of service names.
func ParseServiceArray(text string) ([]string, bool) {
	raw, err := llm.ParseJSON(text, llm.Array)
	if err != nil {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	var out []string
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = appendService(out, v)
		case map[string]any:
			if s, ok := v["service"].(string); ok {
				out = appendService(out, s)
			} else if s, ok := v["name"].(string); ok {
				out = appendService(out, s)
			}
		}
	}
	return out, len(out) > 0
}

var bulletRe = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+(.+?)\s*$`)

// ParseBullets reads "- item" or "1. item" lines. Text after a colon or
// dash separator is dropped.
func ParseBullets(text string) ([]string, bool) {
	var out []string
	for _, m := range bulletRe.FindAllStringSubmatch(text, -1) {
		item := m[1]
		for _, sep := range []string{":", " - ", " – ", "("} {
			if i := strings.Index(item, sep); i > 0 {
				item = item[:i]
			}
		}
		out = appendService(out, strings.Trim(item, "*\"' "))
	}
	return out, len(out) > 0
}

func appendService(list []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 60 {
		return list
	}
	for _, have := range list {
		if strings.EqualFold(have, s) {
			return list
		}
	}
	return append(list, s)
}

// ParseBudgetObject reads a JSON object of service to amount. Amounts may
// be numbers or strings such as "₹50,000".
func ParseBudgetObject(text string) (map[string]int, bool) {
	raw, err := llm.ParseJSON(text, llm.Object)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case float64:
			out[k] = int(t)
		case string:
			if n, ok := ParseAmount(t); ok {
				out[k] = n
			}
		}
	}
	return out, len(out) > 0
}

var amountRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?(?:\s*(?:lakhs?|[kKL])\b)?`)

// ParseAmount reads the first amount in s, honouring Indian digit grouping
// and "k"/"lakh" suffixes.
func ParseAmount(s string) (int, bool) {
	m := amountRe.FindString(s)
	if m == "" {
		return 0, false
	}
	mult := 1.0
	num := strings.TrimSpace(m)
	switch {
	case strings.HasSuffix(strings.ToLower(num), "lakhs"):
		mult, num = 100000, num[:len(num)-5]
	case strings.HasSuffix(strings.ToLower(num), "lakh"):
		mult, num = 100000, num[:len(num)-4]
	case strings.HasSuffix(num, "L"):
		mult, num = 100000, num[:len(num)-1]
	case strings.HasSuffix(strings.ToLower(num), "k"):
		mult, num = 1000, num[:len(num)-1]
	}
	num = strings.ReplaceAll(strings.TrimSpace(num), ",", "")
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return int(f * mult), true
}

// ParseBudgetPairs finds "service ... number" on the same line for each
// known service.
func ParseBudgetPairs(text string, services []string) map[string]int {
	out := make(map[string]int)
	lines := strings.Split(text, "\n")
	for _, s := range services {
		needle := strings.ToLower(s)
		for _, line := range lines {
			l := strings.ToLower(line)
			i := strings.Index(l, needle)
			if i < 0 {
				continue
			}
			if n, ok := ParseAmount(line[i+len(needle):]); ok && n > 0 {
				out[s] = n
				break
			}
		}
	}
	return out
}

// Rescale scales budgets proportionally so they sum to total exactly. The
// rounding remainder goes to the largest line. With a zero sum the total is
// split equally.
func Rescale(lines []model.ServiceLine, total int) []model.ServiceLine {
	out := append([]model.ServiceLine(nil), lines...)
	if len(out) == 0 || total <= 0 {
		return out
	}
	sum := model.SumBudgets(out)
	if sum <= 0 {
		for i := range out {
			out[i].Budget = total / len(out)
		}
	} else {
		for i := range out {
			out[i].Budget = int(int64(out[i].Budget) * int64(total) / int64(sum))
		}
	}
	rem := total - model.SumBudgets(out)
	if rem != 0 {
		idx := make([]int, len(out))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return out[idx[a]].Budget > out[idx[b]].Budget })
		out[idx[0]].Budget += rem
	}
	return out
}
