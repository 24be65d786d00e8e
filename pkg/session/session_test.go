package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"venuebot/pkg/venue"
)

var sample = venue.SearchResult{
	{Name: "Joe's Pizza", Address: "123 Main St", Lat: 40.7, Lng: -74, Tips: []venue.Tip{{Text: "slice", PhotoURL: "https://img/1.jpg"}}},
	{Name: "Deli Corner", Phone: venue.NoPhone},
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), server
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"redis": func(t *testing.T) Store {
			store, _ := newRedisStore(t)
			return store
		},
	}

	for name, build := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := build(t)

			_, err := store.Load(ctx, 1)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Save(ctx, 1, sample))
			got, err := store.Load(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, sample, got)

			// A new search replaces the previous one.
			replacement := venue.SearchResult{{Name: "Noodle Bar"}}
			require.NoError(t, store.Save(ctx, 1, replacement))
			got, err = store.Load(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, replacement, got)

			// Sessions are isolated per chat.
			_, err = store.Load(ctx, 2)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Save(ctx, 3, nil))
			got, err = store.Load(ctx, 3)
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestRedisStoreLayout(t *testing.T) {
	store, server := newRedisStore(t)

	require.NoError(t, store.Save(context.Background(), 42, sample[:1]))

	raw := server.HGet("users:42", "answers")
	require.Contains(t, raw, `"name":"Joe's Pizza"`)
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, server := newRedisStore(t)
	server.SetError("LOADING dataset in memory")

	err := store.Save(context.Background(), 1, sample)
	require.Error(t, err)

	_, err = store.Load(context.Background(), 1)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestRedisStoreCorruptValue(t *testing.T) {
	store, server := newRedisStore(t)
	server.HSet("users:5", "answers", "{not json")

	_, err := store.Load(context.Background(), 5)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 1, sample))
	got, err := store.Load(ctx, 1)
	require.NoError(t, err)

	got[0].Name = "mutated"
	got[0].Tips[0].Text = "mutated"

	again, err := store.Load(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Joe's Pizza", again[0].Name)
	require.Equal(t, "slice", again[0].Tips[0].Text)
}
