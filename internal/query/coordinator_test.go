package query_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_Search(t *testing.T) {
	coord := query.NewCoordinator(query.DefaultEngine, func(ctx context.Context) ([]models.Problem, error) {
		return problems.Fixtures(), nil
	})

	result, err := coord.Search(context.Background(), query.FilterSpec{Urgency: query.BandHigh}, query.SortPotential)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "5"}, ids(result))
}

func TestCoordinator_LoaderError(t *testing.T) {
	coord := query.NewCoordinator(query.DefaultEngine, func(ctx context.Context) ([]models.Problem, error) {
		return nil, errors.New("upstream unavailable")
	})

	_, err := coord.Search(context.Background(), query.FilterSpec{}, query.SortNewest)
	assert.EqualError(t, err, "upstream unavailable")
}

func TestCoordinator_LastRequestWins(t *testing.T) {
	var calls int32
	firstStarted := make(chan struct{})
	firstCancelled := make(chan struct{})

	coord := query.NewCoordinator(query.DefaultEngine, func(ctx context.Context) ([]models.Problem, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(firstStarted)
			<-ctx.Done()
			close(firstCancelled)
			return nil, ctx.Err()
		}
		return problems.Fixtures(), nil
	})

	type outcome struct {
		result []models.Problem
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		result, err := coord.Search(context.Background(), query.FilterSpec{Text: "crm"}, query.SortNewest)
		first <- outcome{result, err}
	}()

	<-firstStarted
	result, err := coord.Search(context.Background(), query.FilterSpec{Text: "email"}, query.SortNewest)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "5"}, ids(result))

	select {
	case <-firstCancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("first search was not cancelled")
	}

	got := <-first
	assert.ErrorIs(t, got.err, query.ErrSuperseded)
	assert.Nil(t, got.result)
}

func TestCoordinator_StaleResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32

	// the first loader ignores cancellation and returns late
	coord := query.NewCoordinator(query.DefaultEngine, func(ctx context.Context) ([]models.Problem, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return problems.Fixtures(), nil
		}
		return problems.Fixtures(), nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := coord.Search(context.Background(), query.FilterSpec{}, query.SortNewest)
		done <- err
	}()

	<-started
	_, err := coord.Search(context.Background(), query.FilterSpec{}, query.SortUrgency)
	require.NoError(t, err)

	close(release)
	assert.ErrorIs(t, <-done, query.ErrSuperseded)
}
