package services

import (
	"context"
	"sync"
	"testing"

	"example.com/pacific/relief/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIfEmptyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, store := setupDB(t)
	seeder := NewSeeder(store, nil)

	seeded, err := seeder.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	events, err := store.Events.Count(ctx)
	require.NoError(t, err)
	requests, err := store.Requests.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, events)
	assert.EqualValues(t, 12, requests)

	seeded, err = seeder.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	eventsAgain, err := store.Events.Count(ctx)
	require.NoError(t, err)
	requestsAgain, err := store.Requests.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, events, eventsAgain)
	assert.Equal(t, requests, requestsAgain)
}

func TestSeedSkipsWhenEventsExist(t *testing.T) {
	ctx := context.Background()
	_, store := setupDB(t)

	svc := NewReliefService(store, nil, nil, nil, nil, 0)
	_, err := svc.CreateEvent(ctx, models.EventInput{Name: "Existing", Region: "Samoa"})
	require.NoError(t, err)

	seeded, err := NewSeeder(store, nil).SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	requests, err := store.Requests.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, requests)
}

func TestSeedConcurrentCallersSeedOnce(t *testing.T) {
	ctx := context.Background()
	_, store := setupDB(t)

	const callers = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		errs    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seeded, err := NewSeeder(store, nil).SeedIfEmpty(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if seeded {
				winners++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, winners)

	events, err := store.Events.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, events)
}

func TestSeedDataReferencesSeededEvents(t *testing.T) {
	ctx := context.Background()
	_, store := setupDB(t)

	_, err := NewSeeder(store, nil).SeedIfEmpty(ctx)
	require.NoError(t, err)

	events, err := store.Events.List(ctx)
	require.NoError(t, err)

	perEvent := map[string]int{}
	for _, e := range events {
		requests, err := store.Requests.List(ctx, e.ID)
		require.NoError(t, err)
		perEvent[e.Name] = len(requests)
		for _, r := range requests {
			require.NotNil(t, r.AssigneeName)
			require.NotNil(t, r.AssigneeTeam)
		}
	}

	assert.Equal(t, map[string]int{
		"Vanuatu Earthquake Response - Port Vila (Dec 2024)":            4,
		"PNG Enga Landslide Response - Mulitaka (May 2024)":             5,
		"Vanuatu Cyclone Lola Early Recovery - Sanma and Penama (2024)": 3,
	}, perEvent)
}
