package plan

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults lists essential services per event family.
type Defaults struct {
	Families []Family `yaml:"families"`
	Fallback []string `yaml:"fallback"`
}

// Family is one event family.
type Family struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Services []string `yaml:"services"`
}

// ParseDefaults decodes a defaults document.
func ParseDefaults(data []byte) (*Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, eris.Wrap(err, "plan: parse defaults")
	}
	if len(d.Fallback) == 0 {
		return nil, eris.New("plan: defaults need a fallback list")
	}
	return &d, nil
}

var builtinDefaults = func() *Defaults {
	d, err := ParseDefaults(defaultsYAML)
	if err != nil {
		panic(err)
	}
	return d
}()

// ServicesFor returns the default services for an event category.
func (d *Defaults) ServicesFor(category string) []string {
	c := strings.ToLower(category)
	for _, f := range d.Families {
		for _, kw := range f.Keywords {
			if strings.Contains(c, kw) {
				return append([]string(nil), f.Services...)
			}
		}
	}
	return append([]string(nil), d.Fallback...)
}
