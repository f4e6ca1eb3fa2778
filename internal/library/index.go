// Package library maintains the remote track library: querying candidate
// tracks for the planner and recording usage when a session reuses one.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mkaplan/mixsmith/internal/domain"
	"github.com/mkaplan/mixsmith/internal/storage"
)

// Index queries the remote library for candidate tracks.
type Index struct {
	store storage.Store
	now   func() time.Time
}

// NewIndex creates an Index backed by the given store.
func NewIndex(store storage.Store) *Index {
	return &Index{store: store, now: time.Now}
}

// Query returns candidate tracks for a genre, excluding tracks used
// within excludeDays of the query time, capped at limit. Ordering is
// deterministic for a fixed catalogue snapshot: quality rating
// descending, then usage count ascending, ties broken by track id.
// A track last used exactly excludeDays ago is still excluded.
func (ix *Index) Query(ctx context.Context, genre string, excludeDays, limit int) ([]domain.TrackMetadata, error) {
	prefix := GenrePrefix(genre)
	keys, err := ix.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}

	cutoff := ix.now().AddDate(0, 0, -excludeDays)

	var candidates []domain.TrackMetadata
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}

		data, err := ix.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata %s: %w", key, err)
		}

		var track domain.TrackMetadata
		if err := json.Unmarshal(data, &track); err != nil {
			// A corrupt sidecar should not poison the whole query.
			slog.Warn("skipping unparsable track metadata", "key", key, "error", err)
			continue
		}

		if track.Genre != genre {
			continue
		}
		if track.LastUsedAt != nil && !track.LastUsedAt.Before(cutoff) {
			slog.Debug("skipping recently used track", "track_id", track.TrackID, "last_used_at", track.LastUsedAt)
			continue
		}

		candidates = append(candidates, track)
	}

	sort.Slice(candidates, func(i, j int) bool {
		qi, qj := quality(&candidates[i]), quality(&candidates[j])
		if qi != qj {
			return qi > qj
		}
		if candidates[i].UsageCount != candidates[j].UsageCount {
			return candidates[i].UsageCount < candidates[j].UsageCount
		}
		return candidates[i].TrackID < candidates[j].TrackID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	slog.Info("library query complete", "genre", genre, "candidates", len(candidates))
	return candidates, nil
}

func quality(t *domain.TrackMetadata) int {
	if t.Quality == nil {
		return 0
	}
	return *t.Quality
}

// MarkUsed bumps a track's usage counters and rewrites its sidecar.
// Called once per reused track after a successful mix.
func (ix *Index) MarkUsed(ctx context.Context, track *domain.TrackMetadata) error {
	track.MarkUsed(ix.now())

	data, err := json.MarshalIndent(track, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for %s: %w", track.TrackID, err)
	}

	key := MetadataKey(track.Genre, track.TrackID)
	if err := ix.store.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("failed to update metadata %s: %w", key, err)
	}
	return nil
}

// Touch reloads a track's sidecar and records a reuse by ID.
func (ix *Index) Touch(ctx context.Context, genre, trackID string) error {
	data, err := ix.store.Get(ctx, MetadataKey(genre, trackID))
	if err != nil {
		return fmt.Errorf("failed to read metadata for %s: %w", trackID, err)
	}

	var track domain.TrackMetadata
	if err := json.Unmarshal(data, &track); err != nil {
		return fmt.Errorf("invalid metadata for %s: %w", trackID, err)
	}

	return ix.MarkUsed(ctx, &track)
}

// Save uploads a newly generated track and its metadata sidecar.
func (ix *Index) Save(ctx context.Context, track *domain.TrackMetadata, audioPath string) error {
	audioKey := AudioKey(track.Genre, track.TrackID)
	metaKey := MetadataKey(track.Genre, track.TrackID)

	if err := ix.store.Upload(ctx, audioPath, audioKey, "audio/mpeg"); err != nil {
		return fmt.Errorf("failed to upload audio for %s: %w", track.TrackID, err)
	}

	track.AudioKey = audioKey
	track.MetadataKey = metaKey

	data, err := json.MarshalIndent(track, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for %s: %w", track.TrackID, err)
	}
	if err := ix.store.Put(ctx, metaKey, data, "application/json"); err != nil {
		return fmt.Errorf("failed to upload metadata for %s: %w", track.TrackID, err)
	}

	slog.Info("track saved to library", "track_id", track.TrackID, "key", audioKey)
	return nil
}

// Fetch downloads a library track's audio to localPath and returns its
// metadata.
func (ix *Index) Fetch(ctx context.Context, genre, trackID, localPath string) (*domain.TrackMetadata, error) {
	data, err := ix.store.Get(ctx, MetadataKey(genre, trackID))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata for %s: %w", trackID, err)
	}

	var track domain.TrackMetadata
	if err := json.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("invalid metadata for %s: %w", trackID, err)
	}

	if err := ix.store.Download(ctx, AudioKey(genre, trackID), localPath); err != nil {
		return nil, fmt.Errorf("failed to download audio for %s: %w", trackID, err)
	}

	return &track, nil
}
