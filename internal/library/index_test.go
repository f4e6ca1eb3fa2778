package library

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaplan/mixsmith/internal/domain"
	"github.com/mkaplan/mixsmith/internal/storage"
)

var queryTime = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestIndex(t *testing.T) (*Index, storage.Store) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ix := NewIndex(store)
	ix.now = func() time.Time { return queryTime }
	return ix, store
}

func putTrack(t *testing.T, store storage.Store, track domain.TrackMetadata) {
	t.Helper()
	data, err := json.Marshal(track)
	require.NoError(t, err)
	err = store.Put(context.Background(), MetadataKey(track.Genre, track.TrackID), data, "application/json")
	require.NoError(t, err)
}

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestQueryFiltersByRecency(t *testing.T) {
	ix, store := newTestIndex(t)

	putTrack(t, store, domain.TrackMetadata{
		TrackID: "fresh", Genre: "techno", LastUsedAt: nil,
	})
	putTrack(t, store, domain.TrackMetadata{
		TrackID: "stale", Genre: "techno",
		LastUsedAt: timePtr(queryTime.AddDate(0, 0, -10)),
	})
	putTrack(t, store, domain.TrackMetadata{
		TrackID: "recent", Genre: "techno",
		LastUsedAt: timePtr(queryTime.AddDate(0, 0, -2)),
	})

	got, err := ix.Query(context.Background(), "techno", 7, 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, tr := range got {
		ids = append(ids, tr.TrackID)
	}
	assert.ElementsMatch(t, []string{"fresh", "stale"}, ids)
}

func TestQueryRecencyBoundary(t *testing.T) {
	// A track used exactly excludeDays ago is still excluded; one
	// second older is eligible.
	ix, store := newTestIndex(t)

	putTrack(t, store, domain.TrackMetadata{
		TrackID: "exactly", Genre: "techno",
		LastUsedAt: timePtr(queryTime.AddDate(0, 0, -7)),
	})
	putTrack(t, store, domain.TrackMetadata{
		TrackID: "older", Genre: "techno",
		LastUsedAt: timePtr(queryTime.AddDate(0, 0, -7).Add(-time.Second)),
	})

	got, err := ix.Query(context.Background(), "techno", 7, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "older", got[0].TrackID)
}

func TestQueryOrderingDeterministic(t *testing.T) {
	ix, store := newTestIndex(t)

	putTrack(t, store, domain.TrackMetadata{TrackID: "bbb", Genre: "techno", Quality: intPtr(4), UsageCount: 2})
	putTrack(t, store, domain.TrackMetadata{TrackID: "aaa", Genre: "techno", Quality: intPtr(4), UsageCount: 2})
	putTrack(t, store, domain.TrackMetadata{TrackID: "ccc", Genre: "techno", Quality: intPtr(5), UsageCount: 9})
	putTrack(t, store, domain.TrackMetadata{TrackID: "ddd", Genre: "techno", Quality: intPtr(4), UsageCount: 0})

	for i := 0; i < 3; i++ {
		got, err := ix.Query(context.Background(), "techno", 7, 0)
		require.NoError(t, err)
		require.Len(t, got, 4)

		// Quality desc, then usage asc, then id.
		assert.Equal(t, "ccc", got[0].TrackID)
		assert.Equal(t, "ddd", got[1].TrackID)
		assert.Equal(t, "aaa", got[2].TrackID)
		assert.Equal(t, "bbb", got[3].TrackID)
	}
}

func TestQueryLimit(t *testing.T) {
	ix, store := newTestIndex(t)

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		putTrack(t, store, domain.TrackMetadata{TrackID: id, Genre: "techno"})
	}

	got, err := ix.Query(context.Background(), "techno", 7, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestQueryEmptyCatalogue(t *testing.T) {
	ix, _ := newTestIndex(t)

	got, err := ix.Query(context.Background(), "ambient", 7, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuerySkipsCorruptSidecar(t *testing.T) {
	ix, store := newTestIndex(t)

	putTrack(t, store, domain.TrackMetadata{TrackID: "good", Genre: "techno"})
	err := store.Put(context.Background(), MetadataKey("techno", "bad"), []byte("{not json"), "application/json")
	require.NoError(t, err)

	got, err := ix.Query(context.Background(), "techno", 7, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].TrackID)
}

func TestMarkUsedRewritesSidecar(t *testing.T) {
	ix, store := newTestIndex(t)

	track := domain.TrackMetadata{TrackID: "abc123", Genre: "techno", UsageCount: 1}
	putTrack(t, store, track)

	require.NoError(t, ix.MarkUsed(context.Background(), &track))
	assert.Equal(t, 2, track.UsageCount)

	data, err := store.Get(context.Background(), MetadataKey("techno", "abc123"))
	require.NoError(t, err)

	var stored domain.TrackMetadata
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, 2, stored.UsageCount)
	require.NotNil(t, stored.LastUsedAt)
	assert.True(t, stored.LastUsedAt.Equal(queryTime))
}
