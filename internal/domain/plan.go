package domain

import (
	"errors"
	"fmt"
)

// Hard bounds on a single slot's duration.
const (
	MinSlotDurationMs = 2 * 60 * 1000
	MaxSlotDurationMs = 8 * 60 * 1000
)

const (
	SourceLibrary  = "library"
	SourceGenerate = "generate"
)

var ErrInvalidPlan = errors.New("invalid session plan")

// FieldError reports which part of a plan failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidPlan, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidPlan
}

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// GenerationRequest describes a track to be newly generated. Pure data.
type GenerationRequest struct {
	Genre       string   `json:"genre"`
	Subgenre    string   `json:"subgenre,omitempty"`
	Mood        string   `json:"mood,omitempty"`
	Instruments []string `json:"instruments,omitempty"`
	Exclude     []string `json:"exclude,omitempty"`
	Prompt      string   `json:"prompt"`
}

// TrackSlot is one position in a planned session. It is filled either by
// a library track reference or by a generation request, never both.
type TrackSlot struct {
	Order         int     `json:"order"`
	Role          string  `json:"role"`
	Title         string  `json:"title"`
	DurationMs    int     `json:"duration_ms"`
	MinDurationMs int     `json:"min_duration_ms"`
	MaxDurationMs int     `json:"max_duration_ms"`
	TargetBPM     float64 `json:"bpm_target"`
	Energy        int     `json:"energy"`
	Source        string  `json:"source"`

	// Exactly one of these is set, depending on Source.
	TrackID    string             `json:"track_id,omitempty"`
	Generation *GenerationRequest `json:"generation,omitempty"`

	// Provider name for generate slots; resolved by routing when empty.
	Provider string `json:"provider,omitempty"`
}

// Validate checks the slot's structural invariants.
func (s *TrackSlot) Validate() error {
	prefix := fmt.Sprintf("slots[%d]", s.Order)

	if s.Role == "" {
		return fieldErr(prefix+".role", "missing role")
	}
	if s.MinDurationMs > s.MaxDurationMs {
		return fieldErr(prefix+".duration", "min %dms exceeds max %dms", s.MinDurationMs, s.MaxDurationMs)
	}
	for _, d := range []int{s.MinDurationMs, s.MaxDurationMs, s.DurationMs} {
		if d < MinSlotDurationMs || d > MaxSlotDurationMs {
			return fieldErr(prefix+".duration", "%dms outside hard bound [%d, %d]", d, MinSlotDurationMs, MaxSlotDurationMs)
		}
	}
	if s.DurationMs < s.MinDurationMs || s.DurationMs > s.MaxDurationMs {
		return fieldErr(prefix+".duration", "target %dms outside range [%d, %d]", s.DurationMs, s.MinDurationMs, s.MaxDurationMs)
	}
	if s.TargetBPM <= 0 {
		return fieldErr(prefix+".bpm_target", "must be positive, got %v", s.TargetBPM)
	}
	if s.Energy < 1 || s.Energy > 10 {
		return fieldErr(prefix+".energy", "must be 1-10, got %d", s.Energy)
	}

	switch s.Source {
	case SourceLibrary:
		if s.TrackID == "" {
			return fieldErr(prefix+".track_id", "library slot missing track reference")
		}
		if s.Generation != nil {
			return fieldErr(prefix+".generation", "library slot carries a generation request")
		}
	case SourceGenerate:
		if s.Generation == nil {
			return fieldErr(prefix+".generation", "generate slot missing generation request")
		}
		if s.TrackID != "" {
			return fieldErr(prefix+".track_id", "generate slot carries a track reference")
		}
		if s.Generation.Prompt == "" {
			return fieldErr(prefix+".generation.prompt", "missing prompt")
		}
	default:
		return fieldErr(prefix+".source", "unknown source %q", s.Source)
	}

	return nil
}

// SessionPlan is a complete, ordered plan for one session.
type SessionPlan struct {
	Concept               string      `json:"concept"`
	Genre                 string      `json:"genre"`
	TargetDurationMinutes int         `json:"target_duration_minutes"`
	BPMLow                float64     `json:"bpm_low"`
	BPMHigh               float64     `json:"bpm_high"`
	Slots                 []TrackSlot `json:"slots"`
	EstimatedCostUSD      float64     `json:"estimated_cost_usd"`
	ModelUsed             string      `json:"model_used,omitempty"`
}

// TotalDurationMs is the sum of the slots' target durations.
func (p *SessionPlan) TotalDurationMs() int {
	total := 0
	for i := range p.Slots {
		total += p.Slots[i].DurationMs
	}
	return total
}

// LibrarySlots returns the slots filled from the library, in order.
func (p *SessionPlan) LibrarySlots() []TrackSlot {
	var out []TrackSlot
	for _, s := range p.Slots {
		if s.Source == SourceLibrary {
			out = append(out, s)
		}
	}
	return out
}

// GenerateSlots returns the slots requiring new generation, in order.
func (p *SessionPlan) GenerateSlots() []TrackSlot {
	var out []TrackSlot
	for _, s := range p.Slots {
		if s.Source == SourceGenerate {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks every structural invariant of the plan: contiguous
// 1-based ordering, per-slot invariants, a coherent BPM range, and no
// library track referenced twice.
func (p *SessionPlan) Validate() error {
	if p.Genre == "" {
		return fieldErr("genre", "missing genre")
	}
	if p.TargetDurationMinutes <= 0 {
		return fieldErr("target_duration_minutes", "must be positive, got %d", p.TargetDurationMinutes)
	}
	if p.BPMLow <= 0 || p.BPMHigh <= 0 || p.BPMLow > p.BPMHigh {
		return fieldErr("bpm_range", "invalid range [%v, %v]", p.BPMLow, p.BPMHigh)
	}
	if len(p.Slots) == 0 {
		return fieldErr("slots", "plan has no slots")
	}

	seen := make(map[string]int, len(p.Slots))
	for i := range p.Slots {
		s := &p.Slots[i]
		if s.Order != i+1 {
			return fieldErr(fmt.Sprintf("slots[%d].order", i), "expected %d, got %d", i+1, s.Order)
		}
		if err := s.Validate(); err != nil {
			return err
		}
		if s.Source == SourceLibrary {
			if prev, ok := seen[s.TrackID]; ok {
				return fieldErr(fmt.Sprintf("slots[%d].track_id", i),
					"track %s already reused at slot %d", s.TrackID, prev)
			}
			seen[s.TrackID] = s.Order
		}
	}

	return nil
}
