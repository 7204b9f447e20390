package medvox

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gchahal1982/medvox/blobstore"
	"github.com/gchahal1982/medvox/geom"
	"github.com/gchahal1982/medvox/object"
	"github.com/gchahal1982/medvox/query"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	for _, level := range []int{0, 3} {
		ctx := context.Background()
		store := blobstore.NewMemoryStore()

		idx := Hybrid(testBounds()).CompressionLevel(level).MustBuild()

		lesion := makeObj("lesion", mgl64.Vec3{10, 10, 10}, 2)
		lesion.Payload = object.LesionPayload{DiameterMM: 12, Malignancy: 0.7}
		require.True(t, idx.Insert(lesion))
		require.True(t, idx.Insert(makeObj("other", mgl64.Vec3{80, 80, 80}, 3)))

		require.NoError(t, idx.Snapshot(ctx, store, "study-1"))
		idx.Close()

		restored, err := Restore(ctx, store, "study-1", Hybrid(testBounds()))
		require.NoError(t, err)
		defer restored.Close()

		assert.Equal(t, 2, restored.Stats().TotalObjects)

		res, err := restored.Query(query.Point(mgl64.Vec3{10, 10, 10}))
		require.NoError(t, err)
		require.Len(t, res.Objects, 1)

		payload, ok := res.Objects[0].Payload.(object.LesionPayload)
		require.True(t, ok, "payload type survives the round trip, level %d", level)
		assert.InDelta(t, 0.7, payload.Malignancy, 1e-9)
	}
}

func TestRestoreMissingSnapshot(t *testing.T) {
	_, err := Restore(context.Background(), blobstore.NewMemoryStore(), "nope", Hybrid(testBounds()))
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestRestoreCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	tests := []struct {
		name string
		blob []byte
	}{
		{"garbage", []byte("not a snapshot")},
		{"bad version", []byte("MVOX\x09\x00{}")},
		{"bad compression", []byte("MVOX\x01\x07{}")},
		{"bad payload", []byte("MVOX\x01\x00not json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "bad", tt.blob))
			_, err := Restore(ctx, store, "bad", Hybrid(testBounds()))
			assert.ErrorIs(t, err, ErrSnapshotCorrupt)
		})
	}
}

func TestRestoreRejectsShrunkenBounds(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	idx := Hybrid(testBounds()).MustBuild()
	require.True(t, idx.Insert(makeObj("far", mgl64.Vec3{90, 90, 90}, 2)))
	require.NoError(t, idx.Snapshot(ctx, store, "study-1"))
	idx.Close()

	small := geom.New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 10, 10})
	_, err := Restore(ctx, store, "study-1", Hybrid(small))
	assert.Error(t, err)
}
