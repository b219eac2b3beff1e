package ratelimit

import (
	"fmt"
	"time"
)

// LimitConfig caps a client at Max requests per sliding Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps each scope to the limits enforced for it.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy returns the limits used by the server.
// Visit capture is called by landing handlers on every redirect hit, so it
// gets the most headroom; link issuance and event pushes are writes.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]LimitConfig{
			ScopeGlobal: {
				{Window: time.Minute, Max: 3000},
			},
			ScopeRead: {
				{Window: time.Minute, Max: 600},
			},
			ScopeWrite: {
				{Window: time.Minute, Max: 60},
				{Window: time.Hour, Max: 1000},
			},
			ScopeVisit: {
				{Window: time.Minute, Max: 2000},
			},
		},
	}
}

// Validate rejects non-positive windows or maxima.
func (p *Policy) Validate() error {
	for scope, limits := range p.Limits {
		for _, limit := range limits {
			if limit.Window <= 0 || limit.Max <= 0 {
				return fmt.Errorf("invalid limit for scope %s: %d per %s", scope, limit.Max, limit.Window)
			}
		}
	}

	return nil
}
