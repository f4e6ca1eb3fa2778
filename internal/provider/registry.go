package provider

import (
	"fmt"

	"github.com/mkaplan/mixsmith/internal/domain"
)

// Registry holds the configured providers and the role-based routing
// rule.
type Registry struct {
	providers map[string]MusicProvider
}

// NewRegistry creates a registry over the given providers.
func NewRegistry(providers ...MusicProvider) *Registry {
	r := &Registry{providers: make(map[string]MusicProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Capabilities().Name] = p
	}
	return r
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (MusicProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// heroRoles are the slots routed to the higher-quality provider.
var heroRoles = map[string]bool{
	domain.RoleIntro: true,
	domain.RolePeak:  true,
	domain.RoleOutro: true,
}

// DefaultForRole is the role-based routing rule: hero roles go to
// elevenlabs, everything else to stable_audio.
func DefaultForRole(role string) string {
	if heroRoles[role] {
		return "elevenlabs"
	}
	return "stable_audio"
}

// Route picks primary and fallback providers for a slot. An explicit
// provider choice on the slot wins; otherwise the role decides. The
// fallback is always the other provider.
func (r *Registry) Route(slot *domain.TrackSlot) (primary, fallback MusicProvider, err error) {
	name := slot.Provider
	if name == "" {
		name = DefaultForRole(slot.Role)
	}

	primary, err = r.Get(name)
	if err != nil {
		return nil, nil, err
	}

	other := "stable_audio"
	if name == "stable_audio" {
		other = "elevenlabs"
	}
	// Single-provider registry has no fallback.
	fallback = r.providers[other]
	return primary, fallback, nil
}
