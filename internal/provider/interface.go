// Package provider wraps the external music generation services. Each
// provider is a thin request/response client; the only logic worth
// noting lives in the role-based routing and the one-shot quota
// fallback used by the acquirer.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrQuota signals that the provider refused the request for
	// quota/billing reasons. The acquirer retries such a slot exactly
	// once against the fallback provider.
	ErrQuota = errors.New("provider quota exceeded")
)

// Capabilities describes one provider's constraints and cost model.
type Capabilities struct {
	Name          string
	MinDurationMs int
	MaxDurationMs int
	// Exactly one of these is non-zero.
	CostPerTrack float64
	CostPerMs    float64
}

// Cost estimates the cost of one generation at the given duration.
func (c Capabilities) Cost(durationMs int) float64 {
	if c.CostPerTrack > 0 {
		return c.CostPerTrack
	}
	return c.CostPerMs * float64(durationMs)
}

// ClampDuration fits a requested duration into the provider's bounds.
func (c Capabilities) ClampDuration(durationMs int) int {
	if durationMs < c.MinDurationMs {
		return c.MinDurationMs
	}
	if durationMs > c.MaxDurationMs {
		return c.MaxDurationMs
	}
	return durationMs
}

// Request describes one track to generate.
type Request struct {
	Prompt     string
	DurationMs int
	Title      string
	Role       string
	BPM        float64
	Energy     int
}

// Result is the raw audio plus provider-reported metadata.
type Result struct {
	Audio      []byte
	DurationMs int
	Provider   string
}

// MusicProvider generates one track per call.
type MusicProvider interface {
	Capabilities() Capabilities
	Generate(ctx context.Context, req Request) (*Result, error)
}
