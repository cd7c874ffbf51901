package refresh

import (
	"context"
	"sync"
)

// Turn orders the work callers do after a shared refresh, such as replaying
// the request that hit a 401. Turns of one refresh are chained in arrival
// order: the leader first, then each waiter in the order it queued.
//
// Every Turn returned by [Coordinator.Do] must be released with Done, also
// when the caller gives up, or later callers block until their ctx ends.
// A nil *Turn is valid and never blocks.
type Turn struct {
	prev <-chan struct{}
	done chan struct{}
	once sync.Once
}

var closedTurn = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func newTurn(prev <-chan struct{}) *Turn {
	if prev == nil {
		prev = closedTurn
	}
	return &Turn{prev: prev, done: make(chan struct{})}
}

// Wait blocks until every earlier caller released its turn or ctx ends.
func (t *Turn) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	select {
	case <-t.prev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done releases the next caller once every earlier caller has released too.
// It may be called more than once.
func (t *Turn) Done() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		select {
		case <-t.prev:
			close(t.done)
		default:
			go func() {
				<-t.prev
				close(t.done)
			}()
		}
	})
}
