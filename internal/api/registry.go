package api

import (
	"fmt"

	"erp-shipping/config"

	"github.com/sirupsen/logrus"
)

// Registry resolves a service_provider tag to its client
type Registry struct {
	providers []Provider
	byName    map[string]Provider
}

// NewRegistry builds the three carrier clients from a configuration snapshot.
// The order is the order quotes are requested in.
func NewRegistry(cfg *config.CarriersConfig, logger *logrus.Logger) *Registry {
	return NewRegistryOf(
		NewLetMeShipClient(cfg.LetMeShip, logger),
		NewPacklinkClient(cfg.Packlink, logger),
		NewSendCloudClient(cfg.SendCloud, logger),
	)
}

// NewRegistryOf builds a registry over arbitrary providers
func NewRegistryOf(providers ...Provider) *Registry {
	r := &Registry{
		providers: providers,
		byName:    make(map[string]Provider, len(providers)),
	}
	for _, p := range providers {
		r.byName[p.Name()] = p
	}
	return r
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// All returns the providers in registration order
func (r *Registry) All() []Provider {
	return r.providers
}
