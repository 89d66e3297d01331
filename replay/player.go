package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookviz-go/metrics"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("replay: player closed")

// DefaultPageLimit is applied when a query omits its page size.
const DefaultPageLimit = 50

// Query identifies one replay window. Submitting a query with any
// field changed abandons whatever is in flight for the old one.
type Query struct {
	Symbol string
	Date   string
	FromTs string
	ToTs   string
	Limit  int
}

// PageFetcher loads one page of frames for a query. Implemented by
// gateway.Client; tests substitute fakes.
type PageFetcher interface {
	FetchPage(ctx context.Context, q Query, offset int) (*Page, error)
}

// PlayerConfig configures a Player. Fetcher is required; everything
// else has defaults.
type PlayerConfig struct {
	Fetcher PageFetcher
	Clock   Clock
	Logger  *zap.Logger
	Speed   time.Duration
	Context context.Context
}

// Player steps through a paginated frame sequence. It holds at most
// one page in memory plus a cursor into it; all methods are safe for
// concurrent use but the machine itself is strictly sequential — one
// in-flight fetch, one timer.
type Player struct {
	fetcher PageFetcher
	clock   Clock
	log     *zap.Logger
	ctx     context.Context

	mu         sync.Mutex
	state      State
	query      Query
	token      uuid.UUID
	page       *Page
	pageOffset int
	cursor     int
	speed      time.Duration
	playIntent bool
	timer      Timer
	closed     bool
}

// NewPlayer validates cfg and returns an idle player.
func NewPlayer(cfg PlayerConfig) (*Player, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("replay: fetcher is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 200 * time.Millisecond
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	return &Player{
		fetcher: cfg.Fetcher,
		clock:   cfg.Clock,
		log:     cfg.Logger,
		ctx:     cfg.Context,
		state:   StateIdle,
		speed:   cfg.Speed,
	}, nil
}

// Submit abandons any current window and starts loading the first page
// of q. The cursor resets to frame 0 of the fresh page.
func (p *Player) Submit(q Query) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	p.stopTimerLocked()
	p.playIntent = false
	p.query = q
	p.page = nil
	p.pageOffset = 0
	p.cursor = 0
	p.setStateLocked(StateIdle)
	p.beginFetchLocked(0)
	return nil
}

// Play resumes timed advancement. Only meaningful when paused on a
// page; otherwise it is a no-op.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.state != StatePaused || p.page == nil {
		return nil
	}
	p.playIntent = true
	p.setStateLocked(StatePlaying)
	p.armTimerLocked()
	return nil
}

// Pause stops timed advancement. The timer is cancelled synchronously;
// a tick already scheduled can no longer move the cursor.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.playIntent = false
	p.stopTimerLocked()
	if p.state == StatePlaying {
		p.setStateLocked(StatePaused)
	}
	return nil
}

// StepForward advances one frame, pausing playback. At the end of a
// page with more frames available it starts the next page fetch; at
// the end of the window it stays put.
func (p *Player) StepForward() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.pauseForManualStepLocked()
	if p.state != StatePaused || p.page == nil {
		return nil
	}
	if p.cursor < len(p.page.Frames)-1 {
		p.cursor++
		metrics.FramesAdvanced.Inc()
		return nil
	}
	if p.page.HasMore {
		p.beginFetchLocked(p.pageOffset + p.query.Limit)
	}
	return nil
}

// StepBack moves one frame back within the current page, clamped at
// frame 0. No backward pagination: crossing below the page start does
// not re-fetch the previous page. Pauses playback.
func (p *Player) StepBack() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.pauseForManualStepLocked()
	if p.cursor > 0 {
		p.cursor--
	}
	return nil
}

// SetSpeed changes the tick interval. A running timer is re-armed at
// the new interval without moving the cursor.
func (p *Player) SetSpeed(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if d <= 0 {
		return fmt.Errorf("replay: speed must be positive, got %v", d)
	}
	p.speed = d
	if p.state == StatePlaying {
		p.stopTimerLocked()
		p.armTimerLocked()
	}
	return nil
}

// Close cancels the timer and invalidates the player. In-flight
// responses arriving afterwards are discarded.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.stopTimerLocked()
	p.playIntent = false
	p.closed = true
	return nil
}

// State returns the current machine state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns a copy of the selected frame, or false when no page
// is held.
func (p *Player) Current() (Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page == nil || p.cursor >= len(p.page.Frames) {
		return Frame{}, false
	}
	return p.page.Frames[p.cursor], true
}

// Position returns the zero-based absolute frame index within the
// window and the window's total frame count.
func (p *Player) Position() (index, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page == nil {
		return 0, 0
	}
	return p.pageOffset + p.cursor, p.page.TotalInRange
}

// AtEnd reports whether the cursor sits on the last frame of the last
// page.
func (p *Player) AtEnd() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page != nil && !p.page.HasMore && p.cursor >= len(p.page.Frames)-1
}

func (p *Player) pauseForManualStepLocked() {
	p.playIntent = false
	p.stopTimerLocked()
	if p.state == StatePlaying {
		p.setStateLocked(StatePaused)
	}
}

// beginFetchLocked issues an asynchronous page load tagged with a
// fresh token. Any response carrying an older token is stale and gets
// dropped on arrival.
func (p *Player) beginFetchLocked(offset int) {
	tok := uuid.New()
	p.token = tok
	p.setStateLocked(StateLoading)
	q := p.query
	p.log.Debug("page fetch",
		zap.String("token", tok.String()),
		zap.String("symbol", q.Symbol),
		zap.Int("offset", offset),
	)
	go func() {
		page, err := p.fetcher.FetchPage(p.ctx, q, offset)
		p.deliver(tok, offset, page, err)
	}()
}

func (p *Player) deliver(tok uuid.UUID, offset int, page *Page, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || tok != p.token {
		metrics.StaleResponsesDropped.Inc()
		p.log.Debug("stale page response discarded", zap.String("token", tok.String()))
		return
	}
	if err != nil {
		// prior state survives a failed fetch: frozen cursor, no frame
		// change; play intent is cleared so nothing advances blindly
		p.playIntent = false
		if p.page == nil {
			p.setStateLocked(StateIdle)
		} else {
			p.setStateLocked(StatePaused)
		}
		p.log.Warn("page fetch failed",
			zap.Error(err),
			zap.String("symbol", p.query.Symbol),
			zap.Int("offset", offset),
		)
		return
	}
	metrics.PagesLoaded.Inc()
	if len(page.Frames) == 0 {
		if offset == 0 {
			// empty window
			p.page = page
			p.cursor = 0
			p.pageOffset = 0
			p.setStateLocked(StateExhausted)
			return
		}
		// backend promised more but had none: stop at the held page
		p.setStateLocked(StatePaused)
		return
	}
	p.page = page
	p.pageOffset = offset
	p.cursor = 0
	if p.playIntent {
		p.setStateLocked(StatePlaying)
		p.armTimerLocked()
		return
	}
	p.setStateLocked(StatePaused)
}

// tick is the timer callback. A tick that fires after the state left
// PLAYING finds the check below and does nothing, so cancellation is
// effective even against an already-scheduled fire.
func (p *Player) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.state != StatePlaying || p.page == nil {
		return
	}
	if p.cursor < len(p.page.Frames)-1 {
		p.cursor++
		metrics.FramesAdvanced.Inc()
		p.armTimerLocked()
		return
	}
	if p.page.HasMore {
		p.playIntent = true
		p.timer = nil
		p.beginFetchLocked(p.pageOffset + p.query.Limit)
		return
	}
	// end of window
	p.playIntent = false
	p.timer = nil
	p.setStateLocked(StatePaused)
}

func (p *Player) armTimerLocked() {
	p.timer = p.clock.AfterFunc(p.speed, p.tick)
}

func (p *Player) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Player) setStateLocked(to State) {
	if err := validateTransition(p.state, to); err != nil {
		// transitions are internal; a violation is a programming error
		p.log.Error("state machine violation", zap.Error(err))
		return
	}
	p.state = to
}
