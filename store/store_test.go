package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/o0olele/breadcrumbs-go/math64"
	"github.com/o0olele/breadcrumbs-go/route"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestSaveLoad(t *testing.T) {
	s := openInMemory(t)

	blob, err := s.Load("singleplayer")
	require.NoError(t, err)
	assert.Nil(t, blob)

	_, err = s.Get("singleplayer")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save("singleplayer", []byte("one")))
	require.NoError(t, s.Save("play.example.com_25565", []byte("two")))
	require.NoError(t, s.Save("singleplayer", []byte("three")))

	blob, err = s.Load("singleplayer")
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), blob)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"singleplayer", "play.example.com_25565"}, keys)

	require.NoError(t, s.Delete("singleplayer"))
	_, err = s.Get("singleplayer")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Logger = zaptest.NewLogger(t)

	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Save("singleplayer", []byte("persistent")))
	require.NoError(t, s.Close())

	s, err = Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	blob, err := s.Load("singleplayer")
	require.NoError(t, err)
	assert.Equal(t, []byte("persistent"), blob)
}

func TestControllerRoundTrip(t *testing.T) {
	s := openInMemory(t)

	obs := func(x float64, tick int64) route.Observation {
		pos := math64.Vector3{X: x, Y: 64}
		return route.Observation{Position: &pos, Tick: tick, Context: "minecraft:overworld", Alive: true}
	}

	c := route.NewController(route.DefaultOptions(), route.WithPersister(s))
	for i := 0; i < 5; i++ {
		c.Tick(obs(float64(i*10), int64(i)))
	}
	require.NoError(t, c.Flush())

	restored := route.NewController(route.DefaultOptions(), route.WithPersister(s))
	restored.Tick(obs(40, 5))
	assert.Equal(t, c.Trail(), restored.Trail())
}
