package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"github.com/mkaplan/mixsmith/internal/domain"
	"github.com/mkaplan/mixsmith/internal/provider"
)

// Library fetches previously stored tracks to local disk.
type Library interface {
	Fetch(ctx context.Context, genre, trackID, localPath string) (*domain.TrackMetadata, error)
}

// Options control one acquisition run.
type Options struct {
	// WorkDir receives one audio file per slot.
	WorkDir string
	// MaxConcurrentTasks bounds in-flight provider calls and downloads.
	MaxConcurrentTasks int
	// ShowProgress renders a progress bar on stdout.
	ShowProgress bool
}

// Acquirer resolves every slot of a plan to audio on local disk. Library
// slots are downloaded, generate slots are synthesized by a provider.
type Acquirer struct {
	library  Library
	registry *provider.Registry
}

func NewAcquirer(library Library, registry *provider.Registry) *Acquirer {
	return &Acquirer{library: library, registry: registry}
}

// Acquire fans out over the plan's slots. The first failure cancels all
// in-flight work and fails the run; on success the returned tracks are
// in slot order.
func (a *Acquirer) Acquire(ctx context.Context, plan *domain.SessionPlan, opts Options) ([]domain.AcquiredTrack, error) {
	if len(plan.Slots) == 0 {
		return nil, fmt.Errorf("plan has no slots")
	}
	if err := os.MkdirAll(opts.WorkDir, os.ModePerm); err != nil {
		return nil, err
	}

	maxTasks := opts.MaxConcurrentTasks
	if maxTasks <= 0 {
		maxTasks = 4
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.NewOptions(
			len(plan.Slots),
			progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionFullWidth(),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan][1/2][reset] Acquiring tracks..."),
		)
	}

	results := make([]domain.AcquiredTrack, len(plan.Slots))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxTasks)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	for i := range plan.Slots {
		wg.Add(1)
		go func(i int, slot *domain.TrackSlot) {
			defer func() {
				if bar != nil {
					bar.Add(1)
				}
				wg.Done()
			}()

			select {
			case <-ctx.Done():
				return
			default:
			}

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-semaphore }()

			track, err := a.acquireSlot(ctx, plan, slot, opts.WorkDir)
			if err != nil {
				select {
				case errCh <- fmt.Errorf("slot %d (%s): %w", slot.Order, slot.Title, err):
					cancel()
				default:
				}
				return
			}
			results[i] = *track
		}(i, &plan.Slots[i])
	}

	go func() {
		wg.Wait()
		close(errCh)
	}()

	if err := <-errCh; err != nil {
		return nil, err
	}
	// Workers bail out silently when the run is cancelled from outside;
	// that must not look like a successful acquisition.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func (a *Acquirer) acquireSlot(ctx context.Context, plan *domain.SessionPlan, slot *domain.TrackSlot, workDir string) (*domain.AcquiredTrack, error) {
	switch slot.Source {
	case domain.SourceLibrary:
		return a.fetchLibrary(ctx, plan, slot, workDir)
	case domain.SourceGenerate:
		return a.generate(ctx, slot, workDir)
	default:
		return nil, fmt.Errorf("unknown source %q", slot.Source)
	}
}

func (a *Acquirer) fetchLibrary(ctx context.Context, plan *domain.SessionPlan, slot *domain.TrackSlot, workDir string) (*domain.AcquiredTrack, error) {
	localPath := slotPath(workDir, slot, slot.TrackID)

	meta, err := a.library.Fetch(ctx, plan.Genre, slot.TrackID, localPath)
	if err != nil {
		return nil, err
	}

	slog.Debug("reusing library track", "track_id", meta.TrackID, "title", meta.Title)

	return &domain.AcquiredTrack{
		Slot:       *slot,
		TrackID:    meta.TrackID,
		Title:      meta.Title,
		AudioPath:  localPath,
		DurationMs: meta.DurationMs,
		BPM:        meta.BPM,
		MusicalKey: meta.MusicalKey,
		Provider:   meta.Provider,
		Reused:     true,
	}, nil
}

func (a *Acquirer) generate(ctx context.Context, slot *domain.TrackSlot, workDir string) (*domain.AcquiredTrack, error) {
	primary, fallback, err := a.registry.Route(slot)
	if err != nil {
		return nil, err
	}

	result, err := a.generateWith(ctx, primary, slot)
	if err != nil {
		// A quota failure gets exactly one retry on the other provider.
		if !errors.Is(err, provider.ErrQuota) || fallback == nil {
			return nil, err
		}
		slog.Warn("provider quota exhausted, trying fallback",
			"primary", primary.Capabilities().Name,
			"fallback", fallback.Capabilities().Name,
			"slot", slot.Order,
		)
		result, err = a.generateWith(ctx, fallback, slot)
		if err != nil {
			return nil, err
		}
	}

	trackID := uuid.NewString()
	localPath := slotPath(workDir, slot, trackID)
	if err := os.WriteFile(localPath, result.Audio, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write audio: %w", err)
	}

	return &domain.AcquiredTrack{
		Slot:       *slot,
		TrackID:    trackID,
		Title:      slot.Title,
		AudioPath:  localPath,
		DurationMs: result.DurationMs,
		BPM:        slot.TargetBPM,
		Provider:   result.Provider,
		Reused:     false,
	}, nil
}

func (a *Acquirer) generateWith(ctx context.Context, p provider.MusicProvider, slot *domain.TrackSlot) (*provider.Result, error) {
	caps := p.Capabilities()

	req := provider.Request{
		Prompt:     renderPrompt(slot),
		DurationMs: caps.ClampDuration(slot.DurationMs),
		Title:      slot.Title,
		Role:       slot.Role,
		BPM:        slot.TargetBPM,
		Energy:     slot.Energy,
	}

	return p.Generate(ctx, req)
}

// renderPrompt turns a slot's generation request into provider prompt
// text. The plan's free-form prompt leads; structured fields follow so
// every provider sees the same description.
func renderPrompt(slot *domain.TrackSlot) string {
	gen := slot.Generation
	if gen == nil {
		return slot.Title
	}

	var b strings.Builder
	b.WriteString(gen.Prompt)
	if gen.Subgenre != "" {
		fmt.Fprintf(&b, " Style: %s %s.", gen.Subgenre, gen.Genre)
	} else if gen.Genre != "" {
		fmt.Fprintf(&b, " Style: %s.", gen.Genre)
	}
	if gen.Mood != "" {
		fmt.Fprintf(&b, " Mood: %s.", gen.Mood)
	}
	if len(gen.Instruments) > 0 {
		fmt.Fprintf(&b, " Instruments: %s.", strings.Join(gen.Instruments, ", "))
	}
	if len(gen.Exclude) > 0 {
		fmt.Fprintf(&b, " Avoid: %s.", strings.Join(gen.Exclude, ", "))
	}
	if slot.TargetBPM > 0 {
		fmt.Fprintf(&b, " Tempo: %.0f BPM.", slot.TargetBPM)
	}
	return b.String()
}

func slotPath(workDir string, slot *domain.TrackSlot, trackID string) string {
	name := fmt.Sprintf("%02d - %s.mp3", slot.Order, sanitizeTitle(slot.Title))
	if slot.Title == "" {
		name = fmt.Sprintf("%02d - %s.mp3", slot.Order, trackID)
	}
	return filepath.Join(workDir, name)
}

func sanitizeTitle(title string) string {
	replacer := strings.NewReplacer("/", "-", ":", "-", "\"", "'", "?", "", "\\", "-", "|", "-")
	return replacer.Replace(title)
}
