package controller

import (
	"fmt"

	"github.com/rcourtman/energy-reports/internal/backend"
	"github.com/rcourtman/energy-reports/internal/resources"
)

// Factory builds one isolated controller per resource type.
type Factory struct {
	Registry *resources.Registry
	Backends func(resources.Config) Backend
	Synth    Synthesizer
	Options  Options
}

// NewFactory wires controllers to the prediction API client.
func NewFactory(registry *resources.Registry, client *backend.Client, synth Synthesizer, opts Options) *Factory {
	return &Factory{
		Registry: registry,
		Backends: ClientBackends(client),
		Synth:    synth,
		Options:  opts,
	}
}

// ClientBackends adapts an API client to per-type backends.
func ClientBackends(client *backend.Client) func(resources.Config) Backend {
	return func(cfg resources.Config) Backend {
		return client.Resource(cfg)
	}
}

// New builds a fresh controller for key. Every call returns a new instance
// with its own state.
func (f *Factory) New(key string) (*Controller, error) {
	if f.Registry == nil || f.Backends == nil {
		return nil, fmt.Errorf("controller factory is not configured")
	}
	cfg, err := f.Registry.Get(key)
	if err != nil {
		return nil, err
	}
	return New(cfg, f.Backends(cfg), f.Synth, f.Options), nil
}

// All builds one controller per registered type, in registry order.
func (f *Factory) All() ([]*Controller, error) {
	if f.Registry == nil {
		return nil, fmt.Errorf("controller factory is not configured")
	}
	keys := f.Registry.Keys()
	out := make([]*Controller, 0, len(keys))
	for _, key := range keys {
		c, err := f.New(key)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
