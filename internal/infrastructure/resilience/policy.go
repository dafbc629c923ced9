package resilience

import (
	"strings"
	"time"
)

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32

	// Policies override retry settings for operations whose name starts with
	// the map key. The longest matching prefix wins.
	Policies map[string]RetryPolicy
}

// RetryPolicy is the retry part of Config scoped to a group of operations.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	base := RetryPolicy{
		MaxAttempts:    out.RetryMaxAttempts,
		InitialBackoff: out.RetryInitialBackoff,
		MaxBackoff:     out.RetryMaxBackoff,
		Multiplier:     out.RetryMultiplier,
	}.normalize(RetryPolicy{
		MaxAttempts:    def.RetryMaxAttempts,
		InitialBackoff: def.RetryInitialBackoff,
		MaxBackoff:     def.RetryMaxBackoff,
		Multiplier:     def.RetryMultiplier,
	})
	out.RetryMaxAttempts = base.MaxAttempts
	out.RetryInitialBackoff = base.InitialBackoff
	out.RetryMaxBackoff = base.MaxBackoff
	out.RetryMultiplier = base.Multiplier

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	if len(c.Policies) > 0 {
		out.Policies = make(map[string]RetryPolicy, len(c.Policies))
		for prefix, p := range c.Policies {
			out.Policies[prefix] = p.normalize(base)
		}
	}
	return out
}

func (p RetryPolicy) normalize(fallback RetryPolicy) RetryPolicy {
	out := p
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = fallback.MaxAttempts
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = fallback.InitialBackoff
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = fallback.MaxBackoff
	}
	if out.MaxBackoff < out.InitialBackoff {
		out.MaxBackoff = out.InitialBackoff
	}
	if out.Multiplier < 1.0 {
		out.Multiplier = fallback.Multiplier
	}
	return out
}

func (c Config) policyFor(operation string) RetryPolicy {
	best := ""
	policy := RetryPolicy{
		MaxAttempts:    c.RetryMaxAttempts,
		InitialBackoff: c.RetryInitialBackoff,
		MaxBackoff:     c.RetryMaxBackoff,
		Multiplier:     c.RetryMultiplier,
	}
	for prefix, p := range c.Policies {
		if strings.HasPrefix(operation, prefix) && len(prefix) > len(best) {
			best = prefix
			policy = p
		}
	}
	return policy
}
