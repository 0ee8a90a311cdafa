package model

import (
	"strings"
	"unicode"
)

// Provider is a real-world vendor or venue produced by discovery. Name is
// required; every other field is optional and empty when unknown.
type Provider struct {
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	Contact     string `json:"contact,omitempty"`
	Price       string `json:"price,omitempty"`
	Rating      string `json:"rating,omitempty"`
	Description string `json:"description,omitempty"`
	Website     string `json:"website,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	MapURL      string `json:"map_url,omitempty"`
	ServiceType string `json:"service_type,omitempty"`

	// IsHeader marks a presentational record that delimits a section of a
	// result list. Headers carry only Name.
	IsHeader bool `json:"isHeader,omitempty"`
	// Defaulted marks an entry synthesised from a known template rather
	// than found in search results.
	Defaulted bool `json:"defaulted,omitempty"`
}

// Header returns a section header record.
func Header(title string) Provider {
	return Provider{Name: title, IsHeader: true}
}

// Completeness counts the populated optional fields. Used for ranking.
func (p Provider) Completeness() int {
	n := 0
	for _, v := range []string{p.Name, p.Address, p.Contact, p.Price, p.Rating, p.Description, p.Website, p.SourceURL, p.MapURL} {
		if v != "" {
			n++
		}
	}
	return n
}

// Normalize trims every field, rewrites Contact to its canonical form and
// blanks sentinel values the LLM uses for "unknown".
func (p *Provider) Normalize() {
	fields := []*string{&p.Name, &p.Address, &p.Contact, &p.Price, &p.Rating, &p.Description, &p.Website, &p.SourceURL, &p.MapURL, &p.ServiceType}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
		if isNullish(*f) {
			*f = ""
		}
	}
	p.Contact = NormalizeContact(p.Contact)
}

func isNullish(s string) bool {
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "na", "not available", "unknown", "not found", "-":
		return true
	}
	return false
}

// MinContactDigits is the minimum number of digits a contact number needs
// to be kept.
const MinContactDigits = 8

// NormalizeContact reduces s to the characters [0-9+-() ] and collapses
// runs of spaces. When s lists several values separated by "/", ",", ";" or
// "|", the first one with at least MinContactDigits digits is kept, so a
// leading label such as "Phone," is skipped. Returns "" when no value
// qualifies.
func NormalizeContact(s string) string {
	for _, part := range strings.FieldsFunc(s, isContactSeparator) {
		if n, digits := phoneChars(part); digits >= MinContactDigits {
			return n
		}
	}
	return ""
}

func isContactSeparator(r rune) bool {
	return r == '/' || r == ',' || r == ';' || r == '|'
}

// phoneChars keeps the phone characters of s and counts its digits.
func phoneChars(s string) (string, int) {
	var b strings.Builder
	digits := 0
	lastSpace := true
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
			lastSpace = false
		case r == '+' || r == '-' || r == '(' || r == ')':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || r == '.':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String()), digits
}

// ValidContact reports whether s is already in normalized contact form.
func ValidContact(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == '(' || r == ')' || r == ' ':
		default:
			return false
		}
	}
	return digits >= MinContactDigits
}
