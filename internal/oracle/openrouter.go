package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mkaplan/mixsmith/internal/domain"
)

const systemPrompt = `You are an expert DJ and music curator building long-form background
music mixes for video publishing. Given a concept, a target duration and
a list of candidate library tracks (free to reuse), produce a tracklist
that mixes existing tracks with new generation requests.

Rules:
- Reuse a library track only when its genre matches exactly and its BPM
  is within a few beats of the slot target.
- Keep a coherent energy arc across roles: intro, build, peak, sustain,
  cooldown, outro.
- Each new track needs a unique evocative title and a layered generation
  prompt (genre + BPM + instruments + mood + exclusions).
- Track durations are 2-8 minutes; the sum should land close to the
  target duration.
- Prefer stable_audio for new generation; elevenlabs only when a longer
  piece genuinely serves the set.

Respond with JSON only, no preamble:
{
  "bpm_range": [124, 130],
  "slots": [
    {
      "order": 1,
      "role": "intro",
      "title": "Existing Track Title",
      "duration_ms": 180000,
      "duration_range_ms": [160000, 200000],
      "bpm_target": 124,
      "energy": 3,
      "source": "library",
      "track_id": "abc123"
    },
    {
      "order": 2,
      "role": "build",
      "title": "Echoes of Tomorrow",
      "duration_ms": 180000,
      "bpm_target": 126,
      "energy": 5,
      "source": "generate",
      "provider": "stable_audio",
      "prompt": "Detailed layered generation prompt...",
      "mood": "hypnotic, driving",
      "instruments": ["deep kick", "filtered synth stabs"],
      "exclude": ["vocals", "melodic hooks"]
    }
  ]
}

If the request is invalid or unsafe, respond with {"error": "<reason>"}.`

// Client is the OpenRouter-backed Oracle implementation.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates an oracle client against an OpenAI-compatible
// endpoint (OpenRouter in production).
func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// Propose sends the planning request to the model and decodes its
// proposed slot sequence. The result is not validated here.
func (c *Client) Propose(ctx context.Context, req PlanRequest) (*domain.SessionPlan, error) {
	userPrompt, err := renderUserPrompt(req)
	if err != nil {
		return nil, err
	}

	slog.Info("requesting session plan", "model", c.model, "concept", req.Concept, "candidates", len(req.Candidates))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature:    0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("planning model call failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty response from planning model")
	}

	plan, err := DecodePlan(req, resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	plan.ModelUsed = c.model
	return plan, nil
}

func renderUserPrompt(req PlanRequest) (string, error) {
	type candidate struct {
		ID         string  `json:"id"`
		Title      string  `json:"title"`
		Genre      string  `json:"genre"`
		BPM        float64 `json:"bpm"`
		Energy     int     `json:"energy"`
		Role       string  `json:"role"`
		DurationMs int     `json:"duration_ms"`
		LastUsed   string  `json:"last_used"`
	}

	cands := make([]candidate, 0, len(req.Candidates))
	for _, t := range req.Candidates {
		lastUsed := "never"
		if t.LastUsedAt != nil {
			lastUsed = t.LastUsedAt.Format("2006-01-02")
		}
		cands = append(cands, candidate{
			ID: t.TrackID, Title: t.Title, Genre: t.Genre, BPM: t.BPM,
			Energy: t.Energy, Role: t.Role, DurationMs: t.DurationMs, LastUsed: lastUsed,
		})
	}

	candJSON, err := json.MarshalIndent(cands, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode candidates: %w", err)
	}

	return fmt.Sprintf(`CONCEPT: %q
GENRE: %s
BPM HINT: %.0f-%.0f
TARGET DURATION: ~%d minutes

CANDIDATE LIBRARY TRACKS (free to reuse):
%s

Create the plan. For each slot set "source" to "library" or "generate".`,
		req.Concept, req.Genre, req.BPMHintLow, req.BPMHintHigh,
		req.TargetDurationMinutes, candJSON), nil
}

type wireSlot struct {
	Order           int      `json:"order"`
	Role            string   `json:"role"`
	Title           string   `json:"title"`
	DurationMs      int      `json:"duration_ms"`
	DurationRangeMs []int    `json:"duration_range_ms"`
	BPMTarget       float64  `json:"bpm_target"`
	Energy          int      `json:"energy"`
	Source          string   `json:"source"`
	TrackID         string   `json:"track_id"`
	Provider        string   `json:"provider"`
	Prompt          string   `json:"prompt"`
	Subgenre        string   `json:"subgenre"`
	Mood            string   `json:"mood"`
	Instruments     []string `json:"instruments"`
	Exclude         []string `json:"exclude"`
}

type wirePlan struct {
	Error    string     `json:"error"`
	BPMRange []float64  `json:"bpm_range"`
	Slots    []wireSlot `json:"slots"`
}

// DecodePlan parses a model response into an unvalidated SessionPlan.
// Markdown code fences are tolerated; a reported error becomes
// ErrRejected.
func DecodePlan(req PlanRequest, content string) (*domain.SessionPlan, error) {
	content = stripFences(content)

	var wire wirePlan
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return nil, fmt.Errorf("invalid JSON from planning model: %w", err)
	}
	if wire.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, wire.Error)
	}

	plan := &domain.SessionPlan{
		Concept:               req.Concept,
		Genre:                 req.Genre,
		TargetDurationMinutes: req.TargetDurationMinutes,
		BPMLow:                req.BPMHintLow,
		BPMHigh:               req.BPMHintHigh,
	}
	if len(wire.BPMRange) == 2 {
		plan.BPMLow, plan.BPMHigh = wire.BPMRange[0], wire.BPMRange[1]
	}

	for _, ws := range wire.Slots {
		slot := domain.TrackSlot{
			Order:      ws.Order,
			Role:       ws.Role,
			Title:      ws.Title,
			DurationMs: ws.DurationMs,
			TargetBPM:  ws.BPMTarget,
			Energy:     ws.Energy,
			Source:     ws.Source,
			Provider:   ws.Provider,
		}

		if len(ws.DurationRangeMs) == 2 {
			slot.MinDurationMs, slot.MaxDurationMs = ws.DurationRangeMs[0], ws.DurationRangeMs[1]
		} else {
			slot.MinDurationMs, slot.MaxDurationMs = defaultRange(ws.DurationMs)
		}

		switch ws.Source {
		case domain.SourceLibrary:
			slot.TrackID = ws.TrackID
		case domain.SourceGenerate:
			slot.Generation = &domain.GenerationRequest{
				Genre:       req.Genre,
				Subgenre:    ws.Subgenre,
				Mood:        ws.Mood,
				Instruments: ws.Instruments,
				Exclude:     ws.Exclude,
				Prompt:      ws.Prompt,
			}
		}

		plan.Slots = append(plan.Slots, slot)
	}

	return plan, nil
}

// defaultRange derives a duration range when the model gives only a
// point target: ±10%, clamped to the hard slot bounds.
func defaultRange(durationMs int) (int, int) {
	min := durationMs - durationMs/10
	max := durationMs + durationMs/10
	if min < domain.MinSlotDurationMs {
		min = domain.MinSlotDurationMs
	}
	if max > domain.MaxSlotDurationMs {
		max = domain.MaxSlotDurationMs
	}
	return min, max
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if idx := strings.Index(content, "\n"); idx != -1 {
		content = content[idx+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
