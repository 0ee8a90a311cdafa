package strategy

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog holds the per-kind site lists and the known online decorators.
type Catalog struct {
	Strategies       map[string]Profile `yaml:"strategies"`
	OnlineDecorators []OnlineRetailer   `yaml:"online_decorators"`
}

// Profile is the data half of a strategy.
type Profile struct {
	Sites         []string `yaml:"sites"`
	Terms         []string `yaml:"terms"`
	Limit         int      `yaml:"limit"`
	PriceFallback string   `yaml:"price_fallback"`
}

// OnlineRetailer is a known online decoration service. URL may contain a
// {city} placeholder.
type OnlineRetailer struct {
	Name        string `yaml:"name"`
	Domain      string `yaml:"domain"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// DefaultURL fills the {city} placeholder with a slug of location.
func (r OnlineRetailer) DefaultURL(location string) string {
	return strings.ReplaceAll(r.URL, "{city}", citySlug(location))
}

func citySlug(location string) string {
	s := strings.ToLower(strings.TrimSpace(location))
	if i := strings.Index(s, ","); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return strings.Join(strings.Fields(s), "-")
}

// ParseCatalog decodes a catalog and checks every kind has a profile.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "strategy: parse catalog")
	}
	for _, k := range Kinds {
		p, ok := c.Strategies[k.String()]
		if !ok {
			return nil, eris.Errorf("strategy: catalog missing %q", k)
		}
		if len(p.Sites) == 0 || len(p.Terms) == 0 {
			return nil, eris.Errorf("strategy: %q needs sites and terms", k)
		}
		if p.Limit <= 0 {
			p.Limit = DefaultLimit
			c.Strategies[k.String()] = p
		}
	}
	return &c, nil
}

var builtin = mustCatalog()

func mustCatalog() *Catalog {
	c, err := ParseCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}
