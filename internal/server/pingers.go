package server

import (
	"context"
	"fmt"
)

// funcPinger adapts a ping function to the Pinger interface.
type funcPinger struct {
	name string
	ping func(ctx context.Context) error
}

// NewPinger returns a Pinger named name that calls ping. It is used for the
// index store, the embedding backend and Qdrant, each of which exposes a
// Ping method of this shape.
func NewPinger(name string, ping func(ctx context.Context) error) Pinger {
	return &funcPinger{name: name, ping: ping}
}

// Name returns the dependency label used in readiness responses.
func (p *funcPinger) Name() string { return p.name }

// Ping runs the probe and prefixes failures with the dependency name.
func (p *funcPinger) Ping(ctx context.Context) error {
	if err := p.ping(ctx); err != nil {
		return fmt.Errorf("%s unreachable: %w", p.name, err)
	}
	return nil
}
