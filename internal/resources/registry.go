// Package resources holds the static, per-energy-type configuration that
// drives controllers, synthetic fallbacks, and report theming.
package resources

import (
	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/models"
)

// RGB is a color triple in 0-255.
type RGB [3]int

// Scheme is the PDF color scheme for a resource type.
type Scheme struct {
	Header RGB // table header and section bars
	AltRow RGB // alternating table row tint
	Accent RGB // rules and highlights
}

// SampleProfile shapes synthetic fallback data:
// value(i) = Base + Noise*rand() + i*Multiplier.
type SampleProfile struct {
	Base       float64
	Multiplier float64
	Noise      float64
}

// Config describes one resource type. Values are immutable after registry
// construction; callers receive copies.
type Config struct {
	Key             string
	DisplayName     string
	Endpoint        string
	ThemeColor      RGB
	Scheme          Scheme
	Recommendations [4]string
	Sources         [4]string
	Sample          SampleProfile
	ExtraFields     []Field
}

func (c Config) clone() Config {
	out := c
	out.ExtraFields = append([]Field(nil), c.ExtraFields...)
	return out
}

// Field is an optional extended payload column.
type Field string

const (
	FieldNonRenewable Field = "non_renewable"
	FieldPopulation   Field = "population"
	FieldGDP          Field = "gdp"
)

// Label is the human-readable column header.
func (f Field) Label() string {
	switch f {
	case FieldNonRenewable:
		return "Non-Renewable Energy (GWh)"
	case FieldPopulation:
		return "Population"
	case FieldGDP:
		return "GDP"
	default:
		return string(f)
	}
}

// Value extracts the field from a record; nil when absent.
func (f Field) Value(r models.GenerationRecord) *float64 {
	switch f {
	case FieldNonRenewable:
		return r.NonRenewable
	case FieldPopulation:
		return r.Population
	case FieldGDP:
		return r.GDP
	default:
		return nil
	}
}

// Registry maps resource-type keys to their Config.
type Registry struct {
	configs map[string]Config
	keys    []string
}

// New builds a registry from the given configs. Later duplicates win.
func New(configs ...Config) *Registry {
	r := &Registry{configs: make(map[string]Config, len(configs))}
	for _, cfg := range configs {
		if _, exists := r.configs[cfg.Key]; !exists {
			r.keys = append(r.keys, cfg.Key)
		}
		r.configs[cfg.Key] = cfg.clone()
	}
	return r
}

// Get returns the config for key, or an UnknownResourceType error.
func (r *Registry) Get(key string) (Config, error) {
	cfg, ok := r.configs[key]
	if !ok {
		return Config{}, internalerrors.UnknownResourceType(key)
	}
	return cfg.clone(), nil
}

// Keys lists the registered keys in registration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len is the number of registered types.
func (r *Registry) Len() int {
	return len(r.configs)
}
