package pipeline

import (
	"context"
	"sync"

	"github.com/ngmihq/ngmi/internal/store"
)

// triple identifies one (user, job, resume) combination.
type triple struct {
	userID   int64
	jobID    int64
	resumeID int64
}

// flight is one in-progress evaluation. finish writes app and err before
// closing done, so followers that wake from wait read them safely.
type flight struct {
	done chan struct{}
	app  *store.Application
	err  error
}

func (f *flight) wait(ctx context.Context) (*store.Application, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return f.app, f.err
	}
}

// flightTable tracks in-process evaluations by triple.
type flightTable struct {
	mu      sync.Mutex
	flights map[triple]*flight
}

func newFlightTable() *flightTable {
	return &flightTable{flights: make(map[triple]*flight)}
}

// begin returns the flight for key and whether the caller is its leader.
// The leader must call finish exactly once.
func (t *flightTable) begin(key triple) (*flight, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f, ok := t.flights[key]; ok {
		return f, false
	}

	f := &flight{done: make(chan struct{})}
	t.flights[key] = f
	return f, true
}

// finish records the outcome, removes the flight and releases followers.
func (t *flightTable) finish(key triple, f *flight, app *store.Application, err error) {
	f.app = app
	f.err = err

	t.mu.Lock()
	delete(t.flights, key)
	t.mu.Unlock()

	close(f.done)
}
