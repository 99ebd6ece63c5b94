package gateway

import (
	"fmt"
	"strings"

	"github.com/fatflowers/paygate/pkg/types"
)

// ModeActive asks the selector for the configured active gateway.
const ModeActive = "active"

// Selector resolves which gateway an invoice request should use. The active
// gateway is fixed at construction.
type Selector struct {
	active   types.Gateway
	gateways map[types.Gateway]Gateway
}

// NewSelector fails when active names no registered gateway.
func NewSelector(active string, gws ...Gateway) (*Selector, error) {
	s := &Selector{gateways: make(map[types.Gateway]Gateway, len(gws))}
	for _, g := range gws {
		s.gateways[g.Name()] = g
	}
	name, ok := types.ParseGateway(active)
	if !ok {
		return nil, fmt.Errorf("%w: active gateway %q", ErrUnknownGateway, active)
	}
	if _, ok := s.gateways[name]; !ok {
		return nil, fmt.Errorf("%w: active gateway %q is not registered", ErrUnknownGateway, active)
	}
	s.active = name
	return s, nil
}

func (s *Selector) Active() types.Gateway { return s.active }

// Resolve maps a requested mode to a gateway name. An empty mode or
// ModeActive yields the active gateway.
func (s *Selector) Resolve(mode string) (types.Gateway, error) {
	m := strings.TrimSpace(mode)
	if m == "" || strings.EqualFold(m, ModeActive) {
		return s.active, nil
	}
	name, ok := types.ParseGateway(m)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGateway, mode)
	}
	if _, ok := s.gateways[name]; !ok {
		return "", fmt.Errorf("%w: %q is not registered", ErrUnknownGateway, mode)
	}
	return name, nil
}

// Gateway returns the implementation registered under name.
func (s *Selector) Gateway(name types.Gateway) (Gateway, error) {
	g, ok := s.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, name)
	}
	return g, nil
}

// Select resolves mode and returns the matching implementation.
func (s *Selector) Select(mode string) (Gateway, error) {
	name, err := s.Resolve(mode)
	if err != nil {
		return nil, err
	}
	return s.Gateway(name)
}
