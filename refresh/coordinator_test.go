package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingRefresh returns a Func that signals on started and blocks until release is closed.
func blockingRefresh(calls *atomic.Int32, started chan<- struct{}, release <-chan struct{}, tokens Tokens, err error) Func {
	return func(context.Context) (Tokens, error) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return tokens, err
	}
}

func waitForPending(t *testing.T, c *Coordinator, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Pending() == n
	}, 2*time.Second, time.Millisecond)
}

func TestCoordinator_SingleRefreshForConcurrentCallers(t *testing.T) {
	var c Coordinator
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	want := Tokens{AccessToken: "T2", RefreshToken: "R2"}
	fn := blockingRefresh(&calls, started, release, want, nil)

	const n = 12
	results := make(chan Result, n)
	errs := make(chan error, n)

	go func() {
		res, err := c.Do(context.Background(), fn)
		results <- res
		errs <- err
	}()
	<-started

	var wg sync.WaitGroup
	for i := 0; i < n-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Do(context.Background(), fn)
			results <- res
			errs <- err
		}()
	}
	waitForPending(t, &c, n-1)
	assert.True(t, c.InFlight())

	close(release)
	wg.Wait()

	leaders := 0
	for i := 0; i < n; i++ {
		res := <-results
		require.NoError(t, <-errs)
		assert.Equal(t, want, res.Tokens)
		if res.Leader {
			leaders++
		}
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, leaders)
	assert.False(t, c.InFlight())
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, Stats{Refreshes: 1, Waiters: n - 1, Succeeded: 1}, c.Stats())
}

func TestCoordinator_FailureRejectsEveryWaiter(t *testing.T) {
	var c Coordinator
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	refreshErr := errors.New("refresh rejected")
	fn := blockingRefresh(&calls, started, release, Tokens{}, refreshErr)

	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Do(context.Background(), fn)
		leaderErr <- err
	}()
	<-started

	const waiters = 5
	waiterErrs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			_, err := c.Do(context.Background(), fn)
			waiterErrs <- err
		}()
	}
	waitForPending(t, &c, waiters)
	close(release)

	assert.ErrorIs(t, <-leaderErr, refreshErr)
	for i := 0; i < waiters; i++ {
		assert.ErrorIs(t, <-waiterErrs, refreshErr)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Stats{Refreshes: 1, Waiters: waiters, Failed: 1}, c.Stats())
}

func TestCoordinator_QueuedWaitersAllResolved(t *testing.T) {
	var c Coordinator
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	fn := blockingRefresh(&calls, started, release, Tokens{AccessToken: "T", RefreshToken: "R"}, nil)

	go func() { _, _ = c.Do(context.Background(), fn) }()
	<-started

	const waiters = 6
	done := make([]chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		done[i] = make(chan struct{})
		go func(i int) {
			_, _ = c.Do(context.Background(), fn)
			close(done[i])
		}(i)
		waitForPending(t, &c, i+1)
	}

	close(release)
	for i := 0; i < waiters; i++ {
		<-done[i]
	}
	assert.Equal(t, 0, c.Pending())
}

func TestCoordinator_WaiterContextCancellation(t *testing.T) {
	var c Coordinator
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	fn := blockingRefresh(&calls, started, release, Tokens{AccessToken: "T", RefreshToken: "R"}, nil)

	leaderDone := make(chan error, 1)
	go func() {
		_, err := c.Do(context.Background(), fn)
		leaderDone <- err
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	waiterErr := make(chan error, 1)
	go func() {
		_, err := c.Do(ctx, fn)
		waiterErr <- err
	}()
	waitForPending(t, &c, 1)

	cancel()
	assert.ErrorIs(t, <-waiterErr, context.Canceled)

	close(release)
	assert.NoError(t, <-leaderDone)
	assert.False(t, c.InFlight())
}

func TestCoordinator_SequentialCallsRefreshEachTime(t *testing.T) {
	var c Coordinator
	var calls atomic.Int32
	fn := func(context.Context) (Tokens, error) {
		calls.Add(1)
		return Tokens{AccessToken: "T", RefreshToken: "R"}, nil
	}

	for i := 0; i < 3; i++ {
		res, err := c.Do(context.Background(), fn)
		require.NoError(t, err)
		assert.True(t, res.Leader)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestCoordinator_PanicReleasesFlight(t *testing.T) {
	var c Coordinator

	_, err := c.Do(context.Background(), func(context.Context) (Tokens, error) {
		panic("boom")
	})

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.False(t, c.InFlight())
	assert.Equal(t, Stats{Refreshes: 1, Failed: 1, Panicked: 1}, c.Stats())
}

func TestCoordinator_TurnsFollowArrivalOrder(t *testing.T) {
	var c Coordinator
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	fn := blockingRefresh(&calls, started, release, Tokens{AccessToken: "T", RefreshToken: "R"}, nil)

	var mu sync.Mutex
	var order []int
	work := func(i int, res Result) {
		defer res.Turn.Done()
		assert.NoError(t, res.Turn.Wait(context.Background()))
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
	}

	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		res, err := c.Do(context.Background(), fn)
		assert.NoError(t, err)
		work(-1, res)
	}()
	<-started

	const waiters = 10
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Do(context.Background(), fn)
			assert.NoError(t, err)
			work(i, res)
		}(i)
		waitForPending(t, &c, i+1)
	}

	close(release)
	<-leaderDone
	wg.Wait()

	want := []int{-1}
	for i := 0; i < waiters; i++ {
		want = append(want, i)
	}
	assert.Equal(t, want, order)
}

func TestCoordinator_CancelledWaiterPassesItsTurn(t *testing.T) {
	var c Coordinator
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	fn := blockingRefresh(&calls, started, release, Tokens{AccessToken: "T", RefreshToken: "R"}, nil)

	leader := make(chan Result, 1)
	go func() {
		res, _ := c.Do(context.Background(), fn)
		leader <- res
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := c.Do(ctx, fn)
		cancelled <- err
	}()
	waitForPending(t, &c, 1)

	last := make(chan Result, 1)
	go func() {
		res, _ := c.Do(context.Background(), fn)
		last <- res
	}()
	waitForPending(t, &c, 2)

	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)
	close(release)

	(<-leader).Turn.Done()
	res := <-last
	waitCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	assert.NoError(t, res.Turn.Wait(waitCtx))
	res.Turn.Done()
}

func TestTurn_NilNeverBlocks(t *testing.T) {
	var turn *Turn
	assert.NoError(t, turn.Wait(context.Background()))
	turn.Done()
}
