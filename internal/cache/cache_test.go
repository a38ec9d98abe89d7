package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func testContext() context.Context {
	return logging.EnsureLogger(context.Background())
}

func TestSetAndGet(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("key", payload{Name: "garbage", Count: 3}, time.Minute, "test"))

	var got payload
	found, err := c.Get("key", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "garbage", got.Name)
	assert.Equal(t, 3, got.Count)

	found, err = c.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetSkipsStaleEntries(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("key", payload{Name: "old"}, -time.Minute, "test"))

	var got payload
	found, err := c.Get("key", &got)
	require.NoError(t, err)
	assert.False(t, found, "Get must not return expired entries")

	found, err = c.GetStale("key", &got)
	require.NoError(t, err)
	assert.True(t, found, "GetStale returns them anyway")
	assert.Equal(t, "old", got.Name)
}

func TestGetOrFetch_FetchesOnMiss(t *testing.T) {
	c := New()
	calls := 0

	var got payload
	stale, err := c.GetOrFetch(testContext(), "key", time.Minute, "test", &got,
		func(ctx context.Context) (interface{}, error) {
			calls++
			return payload{Name: "fresh", Count: 1}, nil
		})
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, "fresh", got.Name)
	assert.Equal(t, 1, calls)

	// Second read is a cache hit.
	stale, err = c.GetOrFetch(testContext(), "key", time.Minute, "test", &got,
		func(ctx context.Context) (interface{}, error) {
			calls++
			return nil, errors.New("should not be called")
		})
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetch_ServesStaleOnFetchFailure(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("key", payload{Name: "stale-but-usable"}, -time.Minute, "test"))

	var got payload
	stale, err := c.GetOrFetch(testContext(), "key", time.Minute, "test", &got,
		func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("upstream down")
		})
	require.NoError(t, err, "stale data beats a hard failure")
	assert.True(t, stale)
	assert.Equal(t, "stale-but-usable", got.Name)
}

func TestGetOrFetch_PropagatesFailureWithoutFallback(t *testing.T) {
	c := New()

	var got payload
	_, err := c.GetOrFetch(testContext(), "key", time.Minute, "test", &got,
		func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("upstream down")
		})
	assert.EqualError(t, err, "upstream down")
}

func TestCleanupStale(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("fresh", payload{}, time.Minute, "test"))
	require.NoError(t, c.Set("stale1", payload{}, -time.Minute, "test"))
	require.NoError(t, c.Set("stale2", payload{}, -time.Hour, "test"))

	assert.Equal(t, 2, c.CleanupStale())
	assert.ElementsMatch(t, []string{"fresh"}, c.Keys())
}

func TestStats(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("fresh", payload{}, time.Minute, "test"))
	require.NoError(t, c.Set("stale", payload{}, -time.Minute, "test"))

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)
	assert.Equal(t, 1, stats.StaleEntries)
}
