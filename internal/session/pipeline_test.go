package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaplan/mixsmith/config"
	"github.com/mkaplan/mixsmith/internal/acquire"
	"github.com/mkaplan/mixsmith/internal/audio"
	"github.com/mkaplan/mixsmith/internal/domain"
	"github.com/mkaplan/mixsmith/internal/planner"
	"github.com/mkaplan/mixsmith/internal/storage"
)

type stubPlanner struct {
	plan *domain.SessionPlan
	err  error
}

func (s *stubPlanner) Plan(ctx context.Context, opts planner.Options) (*domain.SessionPlan, error) {
	return s.plan, s.err
}

type stubAcquirer struct {
	tracks []domain.AcquiredTrack
	err    error
}

func (s *stubAcquirer) Acquire(ctx context.Context, plan *domain.SessionPlan, opts acquire.Options) ([]domain.AcquiredTrack, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.AcquiredTrack, len(s.tracks))
	copy(out, s.tracks)
	for i := range out {
		path := fmt.Sprintf("%s/%02d.mp3", opts.WorkDir, i+1)
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			return nil, err
		}
		out[i].AudioPath = path
	}
	return out, nil
}

type stubCatalog struct {
	saved   []domain.TrackMetadata
	touched []string
	err     error
}

func (s *stubCatalog) Save(ctx context.Context, track *domain.TrackMetadata, audioPath string) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, *track)
	return nil
}

func (s *stubCatalog) Touch(ctx context.Context, genre, trackID string) error {
	if s.err != nil {
		return s.err
	}
	s.touched = append(s.touched, trackID)
	return nil
}

// stubEngine synthesizes fixed-length tone clips instead of shelling
// out to ffmpeg.
type stubEngine struct {
	durationMs int
	decodeErr  error
	encodeErr  error
}

func (s *stubEngine) Decode(ctx context.Context, inputPath string) (*audio.Clip, error) {
	if s.decodeErr != nil {
		return nil, s.decodeErr
	}
	c := audio.NewClip(0, audio.DefaultSampleRate, audio.DefaultChannels)
	c.Samples = make([]float32, c.FramesForMs(s.durationMs)*c.Channels)
	for i := range c.Samples {
		c.Samples[i] = 0.5
	}
	return c, nil
}

func (s *stubEngine) Encode(ctx context.Context, clip *audio.Clip, outputPath, bitrate string) error {
	if s.encodeErr != nil {
		return s.encodeErr
	}
	return os.WriteFile(outputPath, []byte("mp3"), 0o644)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{TempDir: t.TempDir()},
		Planner: config.PlannerConfig{DefaultDurationMinutes: 60, ExcludeUsedWithinDays: 7},
		Mixer:   config.MixerConfig{CrossfadeMs: 5000, Normalize: true, TargetDBFS: -1.0, Bitrate: "320k"},
	}
}

func fixturePlan() *domain.SessionPlan {
	return &domain.SessionPlan{
		Concept:               "late night warehouse",
		Genre:                 "techno",
		TargetDurationMinutes: 10,
		Slots: []domain.TrackSlot{
			{Order: 1, Role: domain.RoleIntro, Title: "Opening", DurationMs: 180000, Source: domain.SourceGenerate,
				Generation: &domain.GenerationRequest{Genre: "techno", Prompt: "dark intro"}},
			{Order: 2, Role: domain.RoleSustain, Title: "Vault Cut", DurationMs: 180000, Source: domain.SourceLibrary, TrackID: "lib-1"},
		},
	}
}

func fixtureTracks(plan *domain.SessionPlan) []domain.AcquiredTrack {
	return []domain.AcquiredTrack{
		{Slot: plan.Slots[0], TrackID: "gen-1", Title: "Opening", DurationMs: 180000, BPM: 126, Provider: "elevenlabs", Reused: false},
		{Slot: plan.Slots[1], TrackID: "lib-1", Title: "Vault Cut", DurationMs: 180000, BPM: 127, Provider: "stable_audio", Reused: true},
	}
}

func newTestPipeline(t *testing.T, plan *domain.SessionPlan, cat *stubCatalog) (*Pipeline, storage.Store) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return NewPipeline(
		&stubPlanner{plan: plan},
		&stubAcquirer{tracks: fixtureTracks(plan)},
		cat,
		&stubEngine{durationMs: 30000},
		store,
		testConfig(t),
	), store
}

func TestPipelineRunPersistsArtifacts(t *testing.T) {
	plan := fixturePlan()
	cat := &stubCatalog{}
	p, store := newTestPipeline(t, plan, cat)

	sess, err := p.Run(context.Background(), RunOptions{Concept: plan.Concept})
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "techno", sess.Genre)
	// 30s + 30s with a 5s crossfade.
	assert.Equal(t, 55000, sess.TotalDurationMs)

	ctx := context.Background()
	for _, key := range []string{PlanKey(sess.ID), MixKey(sess.ID), TracklistKey(sess.ID), ManifestKey(sess.ID)} {
		ok, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
	}

	data, err := store.Get(ctx, ManifestKey(sess.ID))
	require.NoError(t, err)
	var loaded Session
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Len(t, loaded.Tracks, 2)

	text, err := store.Get(ctx, TracklistKey(sess.ID))
	require.NoError(t, err)
	assert.Contains(t, string(text), "00:00 - Opening")
	assert.Contains(t, string(text), "00:25 - Vault Cut")
}

func TestPipelineLibraryBookkeeping(t *testing.T) {
	plan := fixturePlan()
	cat := &stubCatalog{}
	p, _ := newTestPipeline(t, plan, cat)

	sess, err := p.Run(context.Background(), RunOptions{Concept: plan.Concept})
	require.NoError(t, err)

	// Generated tracks are saved, reused tracks only touched.
	require.Len(t, cat.saved, 1)
	assert.Equal(t, "gen-1", cat.saved[0].TrackID)
	assert.Equal(t, sess.ID, cat.saved[0].SessionID)
	assert.Equal(t, "dark intro", cat.saved[0].Prompt)
	assert.NotEmpty(t, cat.saved[0].PromptHash)

	assert.Equal(t, []string{"lib-1"}, cat.touched)
}

func TestPipelinePlannerFailure(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	p := NewPipeline(
		&stubPlanner{err: fmt.Errorf("oracle unreachable")},
		&stubAcquirer{},
		&stubCatalog{},
		&stubEngine{durationMs: 30000},
		store,
		testConfig(t),
	)

	_, err = p.Run(context.Background(), RunOptions{Concept: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planning failed")
}

func TestPipelineAcquireFailureLeavesNoArtifacts(t *testing.T) {
	plan := fixturePlan()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)
	p := NewPipeline(
		&stubPlanner{plan: plan},
		&stubAcquirer{err: fmt.Errorf("quota exhausted")},
		&stubCatalog{},
		&stubEngine{durationMs: 30000},
		store,
		testConfig(t),
	)

	_, err = p.Run(context.Background(), RunOptions{Concept: plan.Concept})
	require.Error(t, err)

	keys, err := store.List(context.Background(), "sessions/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPipelineEncodeFailureLeavesNoArtifacts(t *testing.T) {
	plan := fixturePlan()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	cat := &stubCatalog{}
	p := NewPipeline(
		&stubPlanner{plan: plan},
		&stubAcquirer{tracks: fixtureTracks(plan)},
		cat,
		&stubEngine{durationMs: 30000, encodeErr: fmt.Errorf("ffmpeg exploded")},
		store,
		testConfig(t),
	)

	_, err = p.Run(context.Background(), RunOptions{Concept: plan.Concept})
	require.Error(t, err)

	keys, err := store.List(context.Background(), "sessions/")
	require.NoError(t, err)
	assert.Empty(t, keys)
	// No usage bookkeeping on failure either.
	assert.Empty(t, cat.touched)
	assert.Empty(t, cat.saved)
}
