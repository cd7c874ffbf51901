package refresh

import (
	"context"
	"errors"
	"sync"
)

// Tokens is the pair produced by a successful refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Func performs one refresh. It runs only in the leader.
type Func func(ctx context.Context) (Tokens, error)

type outcome struct {
	tokens Tokens
	err    error
}

// Coordinator deduplicates concurrent refreshes.
//
// The zero value is ready to use. A Coordinator must not be copied after first use.
type Coordinator struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan outcome
	// tail is the done channel of the last turn handed out for the
	// refresh in flight.
	tail  chan struct{}
	stats Stats
}

// Stats counts coordinator activity since construction.
type Stats struct {
	// Refreshes counts refreshes started; Waiters counts callers that joined one.
	Refreshes uint64
	Waiters   uint64
	Succeeded uint64
	Failed    uint64
	// Panicked counts failures where fn panicked. They are also in Failed.
	Panicked uint64
}

// Result describes how a call to [Coordinator.Do] was served.
type Result struct {
	Tokens Tokens
	// Leader is true for the caller that executed fn.
	Leader bool
	// Turn orders follow-up work by arrival. The caller must call Turn.Done.
	Turn *Turn
}

// Do runs fn if no refresh is in flight, otherwise waits for the in-flight one.
//
// Only the leader's ctx is passed to fn. A waiter whose ctx ends stops waiting and
// returns ctx.Err(); the refresh itself continues for everyone else. The
// returned Turn is set on every path, errors included.
func (c *Coordinator) Do(ctx context.Context, fn Func) (Result, error) {
	c.mu.Lock()
	if c.inFlight {
		ch := make(chan outcome, 1)
		c.waiters = append(c.waiters, ch)
		turn := newTurn(c.tail)
		c.tail = turn.done
		c.stats.Waiters++
		c.mu.Unlock()

		select {
		case out := <-ch:
			return Result{Tokens: out.tokens, Turn: turn}, out.err
		case <-ctx.Done():
			turn.Done()
			return Result{}, ctx.Err()
		}
	}
	c.inFlight = true
	turn := newTurn(nil)
	c.tail = turn.done
	c.stats.Refreshes++
	c.mu.Unlock()

	tokens, err := c.run(ctx, fn)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.tail = nil
	c.inFlight = false
	if err == nil {
		c.stats.Succeeded++
	} else {
		c.stats.Failed++
		var pe *PanicError
		if errors.As(err, &pe) {
			c.stats.Panicked++
		}
	}
	c.mu.Unlock()

	out := outcome{tokens: tokens, err: err}
	for _, ch := range waiters {
		ch <- out
	}

	return Result{Tokens: tokens, Leader: true, Turn: turn}, err
}

func (c *Coordinator) run(ctx context.Context, fn Func) (tokens Tokens, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(ctx)
}

// InFlight reports whether a refresh is currently running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Pending returns the number of queued waiters.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Stats returns a copy of the activity counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
