// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"strings"
	"time"
)

// Tier defines a rate limit tier with its limiter.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// Config holds rate limiters for the three traffic classes. Every request
// is keyed by client IP; there is no authentication layer.
type Config struct {
	Write   Tier // mutating document, folder, graph and gc requests
	Analyze Tier // analysis requests hitting the upstream provider
	Read    Tier // everything else
}

// Rates are the per-minute request budgets used to build a Config.
type Rates struct {
	WritePerMin   int
	AnalyzePerMin int
	ReadPerMin    int
}

// NewConfig builds limiters from per-minute budgets. Burst is a tenth of
// the budget, with a floor of one so a single request always fits.
func NewConfig(r Rates) *Config {
	burst := func(n int) int {
		return max(n/10, 1)
	}
	return &Config{
		Write: Tier{
			Name:    "write",
			Limiter: NewLimiter(r.WritePerMin, time.Minute, burst(r.WritePerMin)),
		},
		Analyze: Tier{
			Name:    "analyze",
			Limiter: NewLimiter(r.AnalyzePerMin, time.Minute, burst(r.AnalyzePerMin)),
		},
		Read: Tier{
			Name:    "read",
			Limiter: NewLimiter(r.ReadPerMin, time.Minute, burst(r.ReadPerMin)),
		},
	}
}

// Match returns the tier for a request, or nil for paths that should not
// be rate limited.
func (c *Config) Match(method, path string) *Tier {
	if c == nil {
		return nil
	}
	// Skip health check
	if path == "/api/health" {
		return nil
	}
	if strings.HasSuffix(path, "/analyze") {
		return &c.Analyze
	}
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return &c.Write
	}
	return &c.Read
}

// Close stops the limiters' cleanup goroutines.
func (c *Config) Close() {
	c.Write.Limiter.Close()
	c.Analyze.Limiter.Close()
	c.Read.Limiter.Close()
}
