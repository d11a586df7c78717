//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	authcore "github.com/fintrackr/authcore"
)

func TestRefreshRaceSingleWinner(t *testing.T) {
	ctx := context.Background()
	engine, capture := newIntegrationEngine(t)

	refresh := activeSession(t, engine, capture, "race@example.com", "correct-horse-battery")

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Refresh(ctx, refresh)
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, authcore.ErrTokenInvalid):
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
}
