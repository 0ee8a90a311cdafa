package enrich

import (
	"regexp"

	"github.com/sells-group/event-planner/internal/model"
)

// phoneRe matches Indian mobiles (with or without +91/0), STD landlines
// and generic international numbers.
var phoneRe = regexp.MustCompile(
	`(?:\+91[\s-]?|\b0)?[6-9]\d{4}[\s-]?\d{5}\b` +
		`|\b0\d{2,4}[\s-]\d{6,8}\b` +
		`|\+\d{1,3}[\s-]?\(?\d{1,4}\)?[\s-]?\d{3,4}[\s-]?\d{3,5}\b` +
		`|\b1800[\s-]?\d{3}[\s-]?\d{4}\b`,
)

// FindPhone returns the first phone number in text in normalised form, or
// "" when none is found.
func FindPhone(text string) string {
	for _, m := range phoneRe.FindAllString(text, 10) {
		if c := model.NormalizeContact(m); c != "" {
			return c
		}
	}
	return ""
}
