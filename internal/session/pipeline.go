package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mkaplan/mixsmith/config"
	"github.com/mkaplan/mixsmith/internal/acquire"
	"github.com/mkaplan/mixsmith/internal/audio"
	"github.com/mkaplan/mixsmith/internal/domain"
	"github.com/mkaplan/mixsmith/internal/mix"
	"github.com/mkaplan/mixsmith/internal/planner"
	"github.com/mkaplan/mixsmith/internal/storage"
)

// SessionPlanner proposes a validated plan for a concept.
type SessionPlanner interface {
	Plan(ctx context.Context, opts planner.Options) (*domain.SessionPlan, error)
}

// TrackAcquirer resolves a plan's slots to local audio files.
type TrackAcquirer interface {
	Acquire(ctx context.Context, plan *domain.SessionPlan, opts acquire.Options) ([]domain.AcquiredTrack, error)
}

// Catalog records generated and reused tracks in the library.
type Catalog interface {
	Save(ctx context.Context, track *domain.TrackMetadata, audioPath string) error
	Touch(ctx context.Context, genre, trackID string) error
}

// AudioEngine moves audio between files and in-memory clips.
type AudioEngine interface {
	Decode(ctx context.Context, inputPath string) (*audio.Clip, error)
	Encode(ctx context.Context, clip *audio.Clip, outputPath, bitrate string) error
}

// RunOptions for one end-to-end session.
type RunOptions struct {
	Concept               string
	TargetDurationMinutes int
	MaxConcurrentTasks    int
	ShowProgress          bool
}

// Session is the durable record of one completed run.
type Session struct {
	ID              string                 `json:"id"`
	Concept         string                 `json:"concept"`
	Genre           string                 `json:"genre"`
	Plan            *domain.SessionPlan    `json:"plan"`
	Tracks          []domain.AcquiredTrack `json:"tracks"`
	Entries         []mix.Entry            `json:"entries"`
	TotalDurationMs int                    `json:"total_duration_ms"`
	Tracklist       string                 `json:"-"`
	MixKey          string                 `json:"mix_key"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Pipeline runs plan, acquire, mix and persist as one unit. Nothing is
// written to storage until the mix has rendered, so a failed run leaves
// no partial session behind.
type Pipeline struct {
	planner  SessionPlanner
	acquirer TrackAcquirer
	catalog  Catalog
	engine   AudioEngine
	store    storage.Store
	cfg      *config.Config
}

func NewPipeline(
	sessionPlanner SessionPlanner,
	acquirer TrackAcquirer,
	catalog Catalog,
	engine AudioEngine,
	store storage.Store,
	cfg *config.Config,
) *Pipeline {
	return &Pipeline{
		planner:  sessionPlanner,
		acquirer: acquirer,
		catalog:  catalog,
		engine:   engine,
		store:    store,
		cfg:      cfg,
	}
}

// Run plans a session for the concept and renders it.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Session, error) {
	minutes := opts.TargetDurationMinutes
	if minutes <= 0 {
		minutes = p.cfg.Planner.DefaultDurationMinutes
	}

	plan, err := p.planner.Plan(ctx, planner.Options{
		Concept:               opts.Concept,
		TargetDurationMinutes: minutes,
		ExcludeDays:           p.cfg.Planner.ExcludeUsedWithinDays,
		AllowLibraryReuse:     p.cfg.Planner.AllowLibraryReuse,
	})
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	slog.Info("session planned",
		"concept", plan.Concept,
		"genre", plan.Genre,
		"slots", len(plan.Slots),
		"estimated_cost_usd", plan.EstimatedCostUSD,
	)

	return p.Render(ctx, plan, opts)
}

// Render takes an already validated plan through acquire, mix and
// persist.
func (p *Pipeline) Render(ctx context.Context, plan *domain.SessionPlan, opts RunOptions) (*Session, error) {
	sessionID := uuid.NewString()

	workDir := filepath.Join(p.cfg.Storage.TempDir, "sessions", sessionID)
	if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	tracks, err := p.acquirer.Acquire(ctx, plan, acquire.Options{
		WorkDir:            workDir,
		MaxConcurrentTasks: opts.MaxConcurrentTasks,
		ShowProgress:       opts.ShowProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("acquisition failed: %w", err)
	}

	mixTracks := make([]mix.Track, len(tracks))
	for i, t := range tracks {
		clip, err := p.engine.Decode(ctx, t.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t.Title, err)
		}
		mixTracks[i] = mix.Track{Title: t.Title, Clip: clip}
	}

	result, err := mix.Compose(mixTracks, mix.Options{
		CrossfadeMs: p.cfg.Mixer.CrossfadeMs,
		Normalize:   p.cfg.Mixer.Normalize,
		TargetDBFS:  p.cfg.Mixer.TargetDBFS,
	})
	if err != nil {
		return nil, fmt.Errorf("mix failed: %w", err)
	}

	mixPath := filepath.Join(workDir, "final_mix.mp3")
	if err := p.engine.Encode(ctx, result.Clip, mixPath, p.cfg.Mixer.Bitrate); err != nil {
		return nil, fmt.Errorf("encode failed: %w", err)
	}

	sess := &Session{
		ID:              sessionID,
		Concept:         plan.Concept,
		Genre:           plan.Genre,
		Plan:            plan,
		Tracks:          tracks,
		Entries:         result.Entries,
		TotalDurationMs: result.TotalDurationMs,
		Tracklist:       mix.RenderTracklist(result),
		MixKey:          MixKey(sessionID),
		CreatedAt:       time.Now().UTC(),
	}

	if err := p.persist(ctx, sess, mixPath); err != nil {
		return nil, err
	}

	slog.Info("session complete",
		"session_id", sess.ID,
		"tracks", len(sess.Tracks),
		"duration_ms", sess.TotalDurationMs,
		"mix_key", sess.MixKey,
	)
	return sess, nil
}

// persist uploads session artifacts and updates the library. It runs
// only after a successful render.
func (p *Pipeline) persist(ctx context.Context, sess *Session, mixPath string) error {
	for i := range sess.Tracks {
		t := &sess.Tracks[i]
		if t.Reused {
			if err := p.catalog.Touch(ctx, sess.Genre, t.TrackID); err != nil {
				return fmt.Errorf("failed to record reuse of %s: %w", t.TrackID, err)
			}
			continue
		}
		meta := newTrackMetadata(sess, t)
		if err := p.catalog.Save(ctx, meta, t.AudioPath); err != nil {
			return fmt.Errorf("failed to store track %s: %w", t.TrackID, err)
		}
	}

	planData, err := json.MarshalIndent(sess.Plan, "", "  ")
	if err != nil {
		return err
	}
	if err := p.store.Put(ctx, PlanKey(sess.ID), planData, "application/json"); err != nil {
		return fmt.Errorf("failed to store plan: %w", err)
	}

	if err := p.store.Upload(ctx, mixPath, sess.MixKey, "audio/mpeg"); err != nil {
		return fmt.Errorf("failed to store mix: %w", err)
	}

	if err := p.store.Put(ctx, TracklistKey(sess.ID), []byte(sess.Tracklist), "text/plain"); err != nil {
		return fmt.Errorf("failed to store tracklist: %w", err)
	}

	manifest, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	if err := p.store.Put(ctx, ManifestKey(sess.ID), manifest, "application/json"); err != nil {
		return fmt.Errorf("failed to store manifest: %w", err)
	}

	return nil
}

// newTrackMetadata builds the library record for a freshly generated
// track.
func newTrackMetadata(sess *Session, t *domain.AcquiredTrack) *domain.TrackMetadata {
	meta := &domain.TrackMetadata{
		TrackID:    t.TrackID,
		Title:      t.Title,
		Genre:      sess.Genre,
		BPM:        t.BPM,
		DurationMs: t.DurationMs,
		Energy:     t.Slot.Energy,
		Role:       t.Slot.Role,
		Provider:   t.Provider,
		SessionID:  sess.ID,
		CreatedAt:  sess.CreatedAt,
	}
	if gen := t.Slot.Generation; gen != nil {
		meta.Subgenre = gen.Subgenre
		meta.Prompt = gen.Prompt
		sum := sha256.Sum256([]byte(gen.Prompt))
		meta.PromptHash = hex.EncodeToString(sum[:])
	}
	return meta
}
