// Package core ties a provider name to its quote source and swap executor.
// Provider names coming from config or quote results are normalized before
// lookup so "Uniswap V3", "uniswap-v3" and "uniswap_v3" all dispatch to the
// same venue.
package core

import (
	"strings"

	"github.com/gabesan21/trading-web3/internal/quote"
	"github.com/gabesan21/trading-web3/internal/swap"
)

type VenueID string

const (
	VenueUniswapV3 VenueID = "uniswapv3"
	VenueOpenOcean VenueID = "openocean"
	VenueCowSwap   VenueID = "cowswap"
)

// Normalize lowercases a provider name and strips spaces, hyphens and
// underscores.
func Normalize(name string) VenueID {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return VenueID(r.Replace(strings.ToLower(strings.TrimSpace(name))))
}

// Venue bundles the two capabilities of one DEX backend.
type Venue struct {
	ID       VenueID
	Source   quote.Source
	Executor swap.Executor
}

// Registry is an explicitly constructed venue map; built once at startup
// and passed down, never a package-level global.
type Registry struct {
	venues map[VenueID]*Venue
	order  []VenueID
}

func NewRegistry() *Registry {
	return &Registry{venues: make(map[VenueID]*Venue)}
}

func (r *Registry) Register(v *Venue) {
	if _, exists := r.venues[v.ID]; !exists {
		r.order = append(r.order, v.ID)
	}
	r.venues[v.ID] = v
}

func (r *Registry) Get(name string) (*Venue, bool) {
	v, ok := r.venues[Normalize(string(name))]
	return v, ok
}

// Enabled returns the registered venues among ids, in the given order,
// silently skipping unknown names.
func (r *Registry) Enabled(ids []string) []*Venue {
	out := make([]*Venue, 0, len(ids))
	for _, id := range ids {
		if v, ok := r.Get(id); ok {
			out = append(out, v)
		}
	}
	return out
}
