// Package planner turns a concept into a validated SessionPlan by
// combining the library index with the planning oracle.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkaplan/mixsmith/config"
	"github.com/mkaplan/mixsmith/internal/domain"
	"github.com/mkaplan/mixsmith/internal/oracle"
	"github.com/mkaplan/mixsmith/internal/provider"
)

// durationTolerance is the allowed deviation between the plan's total
// slot duration and the requested session duration (±10%).
const durationTolerance = 0.10

// ContentIndex is the slice of the library the planner needs.
type ContentIndex interface {
	Query(ctx context.Context, genre string, excludeDays, limit int) ([]domain.TrackMetadata, error)
}

// Options for one planning call.
type Options struct {
	Concept               string
	TargetDurationMinutes int
	ExcludeDays           int
	AllowLibraryReuse     bool
}

// Planner orchestrates index and oracle into a validated plan.
type Planner struct {
	index          ContentIndex
	oracle         oracle.Oracle
	costs          map[string]config.ProviderCost
	candidateLimit int
}

// New creates a Planner. costs is the static per-provider cost table.
func New(index ContentIndex, orc oracle.Oracle, costs map[string]config.ProviderCost, candidateLimit int) *Planner {
	return &Planner{
		index:          index,
		oracle:         orc,
		costs:          costs,
		candidateLimit: candidateLimit,
	}
}

// Plan builds and validates a session plan for the concept. Oracle
// transport failures propagate; a structurally invalid proposal fails
// with an error wrapping domain.ErrInvalidPlan that names the offending
// field. There is no internal retry.
func (p *Planner) Plan(ctx context.Context, opts Options) (*domain.SessionPlan, error) {
	if opts.Concept == "" {
		return nil, &domain.FieldError{Field: "concept", Reason: "missing concept"}
	}
	if opts.TargetDurationMinutes <= 0 {
		return nil, &domain.FieldError{Field: "target_duration_minutes", Reason: "must be positive"}
	}

	genre, bpmLow, bpmHigh := oracle.InferConcept(opts.Concept)

	var candidates []domain.TrackMetadata
	if opts.AllowLibraryReuse {
		var err error
		candidates, err = p.index.Query(ctx, genre, opts.ExcludeDays, p.candidateLimit)
		if err != nil {
			return nil, fmt.Errorf("library query failed: %w", err)
		}
	}
	// An empty candidate list is not an error: every slot simply
	// becomes a generation request.

	proposal, err := p.oracle.Propose(ctx, oracle.PlanRequest{
		Concept:               opts.Concept,
		Genre:                 genre,
		Candidates:            candidates,
		TargetDurationMinutes: opts.TargetDurationMinutes,
		BPMHintLow:            bpmLow,
		BPMHintHigh:           bpmHigh,
	})
	if err != nil {
		return nil, err
	}

	if err := p.validate(proposal, candidates); err != nil {
		return nil, err
	}

	proposal.EstimatedCostUSD = p.estimateCost(proposal)

	slog.Info("session plan ready",
		"genre", proposal.Genre,
		"slots", len(proposal.Slots),
		"reused", len(proposal.LibrarySlots()),
		"generated", len(proposal.GenerateSlots()),
		"estimated_cost_usd", proposal.EstimatedCostUSD,
	)
	return proposal, nil
}

// validate enforces every plan invariant on the oracle's proposal:
// structural checks, candidate membership for reused tracks, and the
// total-duration tolerance band.
func (p *Planner) validate(plan *domain.SessionPlan, candidates []domain.TrackMetadata) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.TrackID] = true
	}
	for i := range plan.Slots {
		s := &plan.Slots[i]
		if s.Source == domain.SourceLibrary && !known[s.TrackID] {
			return &domain.FieldError{
				Field:  fmt.Sprintf("slots[%d].track_id", i),
				Reason: fmt.Sprintf("track %s is not in the candidate list", s.TrackID),
			}
		}
	}

	target := plan.TargetDurationMinutes * 60 * 1000
	total := plan.TotalDurationMs()
	band := int(float64(target) * durationTolerance)
	if total < target-band || total > target+band {
		return &domain.FieldError{
			Field: "slots",
			Reason: fmt.Sprintf("total duration %dms outside tolerance band %dms ± %dms",
				total, target, band),
		}
	}

	return nil
}

// estimateCost sums the static cost table over the generate slots.
// Reused library tracks cost nothing.
func (p *Planner) estimateCost(plan *domain.SessionPlan) float64 {
	var total float64
	for i := range plan.Slots {
		s := &plan.Slots[i]
		if s.Source != domain.SourceGenerate {
			continue
		}
		name := s.Provider
		if name == "" {
			name = provider.DefaultForRole(s.Role)
		}
		cost, ok := p.costs[name]
		if !ok {
			continue
		}
		if cost.CostPerTrack > 0 {
			total += cost.CostPerTrack
		} else {
			total += cost.CostPerMs * float64(s.DurationMs)
		}
	}
	return total
}
