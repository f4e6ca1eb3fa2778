package acquire

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaplan/mixsmith/internal/domain"
	"github.com/mkaplan/mixsmith/internal/provider"
)

type fakeLibrary struct {
	mu     sync.Mutex
	tracks map[string]domain.TrackMetadata
	calls  int
	err    error
}

func (f *fakeLibrary) Fetch(ctx context.Context, genre, trackID, localPath string) (*domain.TrackMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	meta, ok := f.tracks[trackID]
	if !ok {
		return nil, fmt.Errorf("track %s not found", trackID)
	}
	if err := os.WriteFile(localPath, []byte("library-audio"), 0o644); err != nil {
		return nil, err
	}
	return &meta, nil
}

type fakeProvider struct {
	mu    sync.Mutex
	name  string
	calls int
	err   error
	audio []byte
}

func (f *fakeProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Name:          f.name,
		MinDurationMs: 10000,
		MaxDurationMs: 300000,
		CostPerMs:     0.000005,
	}
}

func (f *fakeProvider) Generate(ctx context.Context, req provider.Request) (*provider.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Result{
		Audio:      f.audio,
		DurationMs: req.DurationMs,
		Provider:   f.name,
	}, nil
}

func generateSlot(order int, role string) domain.TrackSlot {
	return domain.TrackSlot{
		Order:      order,
		Role:       role,
		Title:      fmt.Sprintf("Track %d", order),
		DurationMs: 180000,
		TargetBPM:  126,
		Energy:     5,
		Source:     domain.SourceGenerate,
		Generation: &domain.GenerationRequest{
			Genre:  "techno",
			Mood:   "hypnotic",
			Prompt: "driving warehouse techno",
		},
	}
}

func librarySlot(order int, trackID string) domain.TrackSlot {
	return domain.TrackSlot{
		Order:      order,
		Role:       domain.RoleSustain,
		Title:      "From The Vault",
		DurationMs: 180000,
		TargetBPM:  126,
		Energy:     5,
		Source:     domain.SourceLibrary,
		TrackID:    trackID,
	}
}

func testPlan(slots ...domain.TrackSlot) *domain.SessionPlan {
	return &domain.SessionPlan{
		Concept: "late night warehouse",
		Genre:   "techno",
		Slots:   slots,
	}
}

func TestAcquireGenerateAndLibrary(t *testing.T) {
	lib := &fakeLibrary{tracks: map[string]domain.TrackMetadata{
		"lib-1": {TrackID: "lib-1", Title: "From The Vault", Genre: "techno", DurationMs: 200000, BPM: 127, Provider: "stable_audio"},
	}}
	eleven := &fakeProvider{name: "elevenlabs", audio: []byte("gen-audio")}
	stable := &fakeProvider{name: "stable_audio", audio: []byte("gen-audio")}
	acq := NewAcquirer(lib, provider.NewRegistry(eleven, stable))

	plan := testPlan(
		generateSlot(1, domain.RoleIntro),
		librarySlot(2, "lib-1"),
		generateSlot(3, domain.RoleBuild),
	)

	tracks, err := acq.Acquire(context.Background(), plan, Options{WorkDir: t.TempDir(), MaxConcurrentTasks: 2})
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	// Results keep slot order regardless of completion order.
	assert.Equal(t, 1, tracks[0].Slot.Order)
	assert.Equal(t, 2, tracks[1].Slot.Order)
	assert.Equal(t, 3, tracks[2].Slot.Order)

	// Role routing: intro went to elevenlabs, build to stable_audio.
	assert.Equal(t, "elevenlabs", tracks[0].Provider)
	assert.Equal(t, "stable_audio", tracks[2].Provider)

	assert.True(t, tracks[1].Reused)
	assert.Equal(t, "lib-1", tracks[1].TrackID)
	assert.Equal(t, 200000, tracks[1].DurationMs)

	assert.False(t, tracks[0].Reused)
	assert.NotEmpty(t, tracks[0].TrackID)
	data, err := os.ReadFile(tracks[0].AudioPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("gen-audio"), data)
}

func TestAcquireQuotaFallbackOnce(t *testing.T) {
	eleven := &fakeProvider{name: "elevenlabs", err: provider.ErrQuota}
	stable := &fakeProvider{name: "stable_audio", audio: []byte("fallback-audio")}
	acq := NewAcquirer(&fakeLibrary{}, provider.NewRegistry(eleven, stable))

	plan := testPlan(generateSlot(1, domain.RoleIntro))

	tracks, err := acq.Acquire(context.Background(), plan, Options{WorkDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, 1, eleven.calls)
	assert.Equal(t, 1, stable.calls)
	assert.Equal(t, "stable_audio", tracks[0].Provider)
}

func TestAcquireBothProvidersExhausted(t *testing.T) {
	eleven := &fakeProvider{name: "elevenlabs", err: provider.ErrQuota}
	stable := &fakeProvider{name: "stable_audio", err: provider.ErrQuota}
	acq := NewAcquirer(&fakeLibrary{}, provider.NewRegistry(eleven, stable))

	plan := testPlan(generateSlot(1, domain.RoleIntro))

	_, err := acq.Acquire(context.Background(), plan, Options{WorkDir: t.TempDir()})
	require.ErrorIs(t, err, provider.ErrQuota)

	// One attempt each, never a second round.
	assert.Equal(t, 1, eleven.calls)
	assert.Equal(t, 1, stable.calls)
}

func TestAcquireNonQuotaErrorSkipsFallback(t *testing.T) {
	eleven := &fakeProvider{name: "elevenlabs", err: fmt.Errorf("bad request")}
	stable := &fakeProvider{name: "stable_audio", audio: []byte("x")}
	acq := NewAcquirer(&fakeLibrary{}, provider.NewRegistry(eleven, stable))

	plan := testPlan(generateSlot(1, domain.RoleIntro))

	_, err := acq.Acquire(context.Background(), plan, Options{WorkDir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, 0, stable.calls)
}

func TestAcquireLibraryFailureFailsRun(t *testing.T) {
	lib := &fakeLibrary{err: fmt.Errorf("storage unreachable")}
	acq := NewAcquirer(lib, provider.NewRegistry(
		&fakeProvider{name: "elevenlabs", audio: []byte("x")},
		&fakeProvider{name: "stable_audio", audio: []byte("x")},
	))

	plan := testPlan(librarySlot(1, "lib-1"))

	_, err := acq.Acquire(context.Background(), plan, Options{WorkDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slot 1")
}

func TestAcquireCancelledContext(t *testing.T) {
	eleven := &fakeProvider{name: "elevenlabs", audio: []byte("x")}
	stable := &fakeProvider{name: "stable_audio", audio: []byte("x")}
	lib := &fakeLibrary{tracks: map[string]domain.TrackMetadata{
		"lib-1": {TrackID: "lib-1", Title: "From The Vault", Genre: "techno", DurationMs: 200000},
	}}
	acq := NewAcquirer(lib, provider.NewRegistry(eleven, stable))

	plan := testPlan(
		generateSlot(1, domain.RoleIntro),
		librarySlot(2, "lib-1"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled run must fail, never return zero-valued tracks.
	_, err := acq.Acquire(ctx, plan, Options{WorkDir: t.TempDir()})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAcquireEmptyPlan(t *testing.T) {
	acq := NewAcquirer(&fakeLibrary{}, provider.NewRegistry())
	_, err := acq.Acquire(context.Background(), testPlan(), Options{WorkDir: t.TempDir()})
	assert.Error(t, err)
}

func TestRenderPrompt(t *testing.T) {
	slot := generateSlot(1, domain.RolePeak)
	slot.Generation.Subgenre = "hard techno"
	slot.Generation.Instruments = []string{"TR-909", "acid bass"}
	slot.Generation.Exclude = []string{"vocals"}

	prompt := renderPrompt(&slot)
	assert.Contains(t, prompt, "driving warehouse techno")
	assert.Contains(t, prompt, "hard techno techno")
	assert.Contains(t, prompt, "hypnotic")
	assert.Contains(t, prompt, "TR-909, acid bass")
	assert.Contains(t, prompt, "Avoid: vocals")
	assert.Contains(t, prompt, "126 BPM")
}
