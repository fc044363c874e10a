package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sferrors "github.com/sfxvault/sfxvault/internal/errors"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_UnwritablePathIsDatabaseError(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "no", "such", "dir", "catalog.db"))
	require.Error(t, err)

	var verr *sferrors.VaultError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, sferrors.ErrCodeDatabase, verr.Code)
	assert.Equal(t, sferrors.CategoryIO, verr.Category)
}

func sampleSounds() []*Sound {
	return []*Sound{
		{
			ID: "sfx-0000001", Name: "metal impact heavy", Path: "impacts/metal_heavy_01.wav",
			Category: "impacts", Tags: []string{"metal", "heavy"}, DurationSecs: 2.4,
			SampleRate: 48000, Channels: 2, SizeBytes: 460800, AddedAt: 1700000000,
		},
		{
			ID: "sfx-0000002", Name: "rain loop light", Path: "ambience/rain_light.wav",
			Category: "ambience", Tags: []string{"rain", "loop"}, DurationSecs: 94.0,
			SampleRate: 48000, Channels: 2, SizeBytes: 18054000, AddedAt: 1700000100,
		},
		{
			ID: "sfx-0000003", Name: "explosion distant", Path: "explosions/distant_01.wav",
			Category: "explosions", Tags: []string{"explosion"}, DurationSecs: 5.1,
			SampleRate: 44100, Channels: 1, SizeBytes: 450000, AddedAt: 1700000200,
		},
	}
}

func TestStore_SaveAndGetSounds(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSounds(ctx, sampleSounds()))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Order follows the requested IDs, missing IDs are skipped.
	got, err := s.GetSounds(ctx, []string{"sfx-0000003", "sfx-0000001", "sfx-missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "explosion distant", got[0].Name)
	assert.Equal(t, []string{"metal", "heavy"}, got[1].Tags)
}

func TestStore_SaveSoundsUpserts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sounds := sampleSounds()
	require.NoError(t, s.SaveSounds(ctx, sounds))

	sounds[0].Name = "metal impact heavy v2"
	sounds[0].Tags = []string{"metal", "heavy", "v2"}
	require.NoError(t, s.SaveSounds(ctx, sounds[:1]))

	got, err := s.GetSounds(ctx, []string{"sfx-0000001"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "metal impact heavy v2", got[0].Name)
	assert.Equal(t, []string{"metal", "heavy", "v2"}, got[0].Tags)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_DeleteSounds(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSounds(ctx, sampleSounds()))
	require.NoError(t, s.SaveEmbeddings(ctx, "static-hash-384",
		[]string{"sfx-0000001"}, [][]float32{{0.1, 0.2}}))

	require.NoError(t, s.DeleteSounds(ctx, []string{"sfx-0000001"}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, _, err := s.LoadEmbeddings(ctx, "static-hash-384")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_EmbeddingsRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSounds(ctx, sampleSounds()))

	vectors := [][]float32{
		{0.5, -0.25, 1.0},
		{0.0, 0.125, -3.5},
	}
	require.NoError(t, s.SaveEmbeddings(ctx, "static-hash-384",
		[]string{"sfx-0000001", "sfx-0000002"}, vectors))

	ids, got, err := s.LoadEmbeddings(ctx, "static-hash-384")
	require.NoError(t, err)
	require.Equal(t, []string{"sfx-0000001", "sfx-0000002"}, ids)
	assert.Equal(t, vectors, got)

	// Other models see nothing.
	ids, _, err = s.LoadEmbeddings(ctx, "other-model")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_AppState(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	v, err := s.GetState(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.SetState(ctx, "embed_model", "static-hash-384"))
	require.NoError(t, s.SetState(ctx, "embed_model", "static-hash-384-v2"))

	v, err = s.GetState(ctx, "embed_model")
	require.NoError(t, err)
	assert.Equal(t, "static-hash-384-v2", v)
}

func TestStore_MatchingIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSounds(ctx, sampleSounds()))

	where, args, err := FilterSQL("duration:>3s")
	require.NoError(t, err)

	ids, err := s.MatchingIDs(ctx, where, args)
	require.NoError(t, err)
	assert.Equal(t, []string{"sfx-0000002", "sfx-0000003"}, ids)
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0, 1, -1, 0.5, 3.14159, -2.5e10}
	out := decodeVector(encodeVector(in))
	assert.Equal(t, in, out)
}
