// Package oracle wraps the external planning model behind a small
// request/response contract so the planner can be tested against a
// deterministic stub.
package oracle

import (
	"context"
	"errors"

	"github.com/mkaplan/mixsmith/internal/domain"
)

// ErrRejected is returned when the model refuses the request as invalid
// or unsafe. Callers surface this as a planning failure, not a
// transport error.
var ErrRejected = errors.New("planning request rejected")

// PlanRequest is the input contract for a planning call.
type PlanRequest struct {
	Concept               string                 `json:"concept"`
	Genre                 string                 `json:"genre"`
	Candidates            []domain.TrackMetadata `json:"candidate_tracks"`
	TargetDurationMinutes int                    `json:"target_duration_minutes"`
	BPMHintLow            float64                `json:"bpm_hint_low"`
	BPMHintHigh           float64                `json:"bpm_hint_high"`
}

// Oracle proposes an ordered slot sequence for a concept. The proposal
// is unvalidated; the planner enforces all plan invariants afterwards.
type Oracle interface {
	Propose(ctx context.Context, req PlanRequest) (*domain.SessionPlan, error)
}
