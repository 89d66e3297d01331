package replay_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookviz-go/replay"
)

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, 0) }

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) replay.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// fireLast invokes the most recently armed timer callback, whether or
// not it was stopped — simulating a tick already scheduled to fire.
func (c *fakeClock) fireLast() {
	c.mu.Lock()
	var t *fakeTimer
	if len(c.timers) > 0 {
		t = c.timers[len(c.timers)-1]
	}
	c.mu.Unlock()
	if t != nil {
		t.fn()
	}
}

func (c *fakeClock) armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// windowFetcher serves a synthetic window of total frames, paginated.
// Per-symbol totals let tests tell two queries' responses apart.
type windowFetcher struct {
	mu     sync.Mutex
	total  int
	perSym map[string]int
	calls  []int // requested offsets
	gate   chan struct{}
	failAt int // offset that errors once; -1 disables
}

func newWindowFetcher(total int) *windowFetcher {
	return &windowFetcher{total: total, failAt: -1}
}

func (f *windowFetcher) FetchPage(ctx context.Context, q replay.Query, offset int) (*replay.Page, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.calls = append(f.calls, offset)
	fail := f.failAt == offset
	if fail {
		f.failAt = -1
	}
	total := f.total
	if t, ok := f.perSym[q.Symbol]; ok {
		total = t
	}
	f.mu.Unlock()
	if fail {
		return nil, context.DeadlineExceeded
	}

	n := q.Limit
	if offset+n > total {
		n = total - offset
	}
	if n < 0 {
		n = 0
	}
	frames := make([]replay.Frame, n)
	for i := range frames {
		frames[i] = replay.Frame{Ts: int64(offset+i) * 1000, MidPrice: 100}
	}
	return &replay.Page{
		TotalInRange: total,
		Offset:       offset,
		Limit:        q.Limit,
		Returned:     n,
		HasMore:      offset+n < total,
		Frames:       frames,
	}, nil
}

func (f *windowFetcher) offsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.calls))
	copy(out, f.calls)
	return out
}

func newTestPlayer(t *testing.T, fetcher replay.PageFetcher, clock replay.Clock) *replay.Player {
	t.Helper()
	p, err := replay.NewPlayer(replay.PlayerConfig{
		Fetcher: fetcher,
		Clock:   clock,
		Speed:   50 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func waitState(t *testing.T, p *replay.Player, want replay.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.State() == want
	}, time.Second, time.Millisecond, "state = %s, want %s", p.State(), want)
}

func TestNewPlayerRequiresFetcher(t *testing.T) {
	_, err := replay.NewPlayer(replay.PlayerConfig{})
	assert.Error(t, err)
}

func TestSubmitIdempotent(t *testing.T) {
	f := newWindowFetcher(120)
	p := newTestPlayer(t, f, &fakeClock{})

	q := replay.Query{Symbol: "NVDA", Date: "2026-02-02", Limit: 50}
	require.NoError(t, p.Submit(q))
	waitState(t, p, replay.StatePaused)
	first1, ok := p.Current()
	require.True(t, ok)
	_, total1 := p.Position()

	require.NoError(t, p.Submit(q))
	waitState(t, p, replay.StatePaused)
	first2, ok := p.Current()
	require.True(t, ok)
	_, total2 := p.Position()

	assert.Equal(t, first1, first2, "identical query must yield identical first frame")
	assert.Equal(t, total1, total2)
	assert.Equal(t, 120, total1)
}

func TestEmptyWindowExhausted(t *testing.T) {
	f := newWindowFetcher(0)
	p := newTestPlayer(t, f, &fakeClock{})

	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StateExhausted)
	_, ok := p.Current()
	assert.False(t, ok)
}

func TestStepForwardPagination(t *testing.T) {
	f := newWindowFetcher(120)
	p := newTestPlayer(t, f, &fakeClock{})

	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StatePaused)

	step := func() {
		require.NoError(t, p.StepForward())
		waitState(t, p, replay.StatePaused) // rides out page loads
	}

	// 50 steps: 49 within page one, the 50th crosses into page two
	for i := 0; i < 50; i++ {
		step()
	}
	assert.Equal(t, []int{0, 50}, f.offsets(), "exactly one page-advance fetch at offset 50")
	idx, total := p.Position()
	assert.Equal(t, 50, idx)
	assert.Equal(t, 120, total)

	// 120 steps total land on the last frame, paused, no further fetch
	for i := 50; i < 120; i++ {
		step()
	}
	assert.Equal(t, []int{0, 50, 100}, f.offsets())
	idx, _ = p.Position()
	assert.Equal(t, 119, idx, "cursor parked on the 120th frame")
	assert.Equal(t, replay.StatePaused, p.State())
	assert.True(t, p.AtEnd())

	// stepping at the end of the window is a no-op
	require.NoError(t, p.StepForward())
	assert.Equal(t, []int{0, 50, 100}, f.offsets())
	idx, _ = p.Position()
	assert.Equal(t, 119, idx)
}

func TestPlaybackAdvancesAndPaginates(t *testing.T) {
	f := newWindowFetcher(120)
	clock := &fakeClock{}
	p := newTestPlayer(t, f, clock)

	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StatePaused)
	require.NoError(t, p.Play())
	assert.Equal(t, replay.StatePlaying, p.State())

	// drive ticks through page one
	for i := 0; i < 49; i++ {
		clock.fireLast()
	}
	idx, _ := p.Position()
	assert.Equal(t, 49, idx)

	// boundary tick: page advance, play intent preserved
	clock.fireLast()
	waitState(t, p, replay.StatePlaying)
	idx, _ = p.Position()
	assert.Equal(t, 50, idx)
	assert.Equal(t, []int{0, 50}, f.offsets())
}

func TestPlaybackStopsAtWindowEnd(t *testing.T) {
	f := newWindowFetcher(3)
	clock := &fakeClock{}
	p := newTestPlayer(t, f, clock)

	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StatePaused)
	require.NoError(t, p.Play())

	clock.fireLast()
	clock.fireLast()
	assert.Equal(t, replay.StatePlaying, p.State())

	// tick on the final frame clears play intent
	clock.fireLast()
	assert.Equal(t, replay.StatePaused, p.State())
	idx, _ := p.Position()
	assert.Equal(t, 2, idx)
}

func TestStaleResponseDiscarded(t *testing.T) {
	slow := newWindowFetcher(10)
	slow.perSym = map[string]int{"OLD": 99, "NEW": 10}
	slow.gate = make(chan struct{})
	p := newTestPlayer(t, slow, &fakeClock{})

	// first query hangs in flight
	require.NoError(t, p.Submit(replay.Query{Symbol: "OLD", Limit: 50}))
	assert.Equal(t, replay.StateLoading, p.State())

	// second query supersedes it; release both fetches
	require.NoError(t, p.Submit(replay.Query{Symbol: "NEW", Limit: 50}))
	close(slow.gate)
	waitState(t, p, replay.StatePaused)

	// whichever order the responses landed in, only NEW applies
	_, ok := p.Current()
	require.True(t, ok)
	idx, total := p.Position()
	assert.Equal(t, 0, idx)
	assert.Equal(t, 10, total, "stale OLD window (total 99) must never apply")

	// give the stale response time to arrive; state must not churn
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, replay.StatePaused, p.State())
}

func TestPauseCancelsScheduledTick(t *testing.T) {
	f := newWindowFetcher(10)
	clock := &fakeClock{}
	p := newTestPlayer(t, f, clock)

	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StatePaused)
	require.NoError(t, p.Play())
	require.NoError(t, p.Pause())

	before, _ := p.Position()
	// the tick was already scheduled; firing it must not advance
	clock.fireLast()
	after, _ := p.Position()
	assert.Equal(t, before, after, "cancelled timer advanced a stale cursor")
	assert.Equal(t, replay.StatePaused, p.State())
}

func TestManualStepPausesPlayback(t *testing.T) {
	f := newWindowFetcher(10)
	clock := &fakeClock{}
	p := newTestPlayer(t, f, clock)

	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StatePaused)
	require.NoError(t, p.Play())
	require.NoError(t, p.StepForward())
	assert.Equal(t, replay.StatePaused, p.State())

	require.NoError(t, p.Play())
	require.NoError(t, p.StepBack())
	assert.Equal(t, replay.StatePaused, p.State())
}

func TestStepBackClampsAtPageStart(t *testing.T) {
	f := newWindowFetcher(120)
	p := newTestPlayer(t, f, &fakeClock{})

	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StatePaused)

	require.NoError(t, p.StepBack())
	idx, _ := p.Position()
	assert.Equal(t, 0, idx, "clamped at frame 0, no backward fetch")
	assert.Equal(t, []int{0}, f.offsets())

	// after crossing into page two, backing up stops at the page start
	for i := 0; i < 50; i++ {
		require.NoError(t, p.StepForward())
		waitState(t, p, replay.StatePaused)
	}
	require.NoError(t, p.StepBack())
	require.NoError(t, p.StepBack())
	idx, _ = p.Position()
	assert.Equal(t, 50, idx)
	assert.Equal(t, []int{0, 50}, f.offsets())
}

func TestSetSpeedReArmsWithoutMovingCursor(t *testing.T) {
	f := newWindowFetcher(10)
	clock := &fakeClock{}
	p := newTestPlayer(t, f, clock)

	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StatePaused)
	require.NoError(t, p.Play())
	clock.fireLast()
	before, _ := p.Position()
	armedBefore := clock.armed()

	require.NoError(t, p.SetSpeed(20*time.Millisecond))
	after, _ := p.Position()
	assert.Equal(t, before, after)
	assert.Equal(t, armedBefore+1, clock.armed(), "timer re-armed at new speed")
	assert.Equal(t, replay.StatePlaying, p.State())

	assert.Error(t, p.SetSpeed(0))
}

func TestFetchFailureFreezesState(t *testing.T) {
	f := newWindowFetcher(120)
	p := newTestPlayer(t, f, &fakeClock{})

	// initial load failure: back to idle
	f.failAt = 0
	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StateIdle)
	_, ok := p.Current()
	assert.False(t, ok)

	// page-advance failure: paused on the held page, cursor frozen
	require.NoError(t, p.Submit(replay.Query{Symbol: "NVDA", Limit: 50}))
	waitState(t, p, replay.StatePaused)
	for i := 0; i < 49; i++ {
		require.NoError(t, p.StepForward())
	}
	f.failAt = 50
	require.NoError(t, p.StepForward())
	waitState(t, p, replay.StatePaused)
	idx, _ := p.Position()
	assert.Equal(t, 49, idx, "cursor unchanged after failed page advance")

	// the next step retries the fetch and succeeds
	require.NoError(t, p.StepForward())
	waitState(t, p, replay.StatePaused)
	idx, _ = p.Position()
	assert.Equal(t, 50, idx)
}

func TestClosedPlayerRejectsOperations(t *testing.T) {
	f := newWindowFetcher(10)
	p := newTestPlayer(t, f, &fakeClock{})
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.Submit(replay.Query{Symbol: "NVDA"}), replay.ErrClosed)
	assert.ErrorIs(t, p.Play(), replay.ErrClosed)
	assert.ErrorIs(t, p.Pause(), replay.ErrClosed)
	assert.ErrorIs(t, p.StepForward(), replay.ErrClosed)
	assert.ErrorIs(t, p.StepBack(), replay.ErrClosed)
	assert.NoError(t, p.Close(), "Close is idempotent")
}
