// Package app drives the realtime match session: it owns the live channel,
// interprets server pushes, runs the per-question countdown, and exposes a
// read-only snapshot of the session state to presentation.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"mindmaze-client/internal/domain"
	"mindmaze-client/internal/protocol"
)

const (
	// resultDisplayWindow is how long a confirmed answer outcome stays
	// visible before clearing back to an empty submission.
	resultDisplayWindow = 1500 * time.Millisecond
	// messageClearDelay is how long a match_failed banner stays up.
	messageClearDelay = 3 * time.Second
	countdownInterval = time.Second
)

// Channel is one live match connection. Implemented by transport/ws.
type Channel interface {
	Send(ev protocol.ClientEvent)
	Events() <-chan protocol.ServerEvent
	States() <-chan domain.ConnState
	Close()
}

// DialFunc opens the channel addressed by a username.
type DialFunc func(ctx context.Context, username string) (Channel, error)

// SessionStore persists the Identity record across process restarts.
// A corrupt stored record is treated as absent and removed by Load.
type SessionStore interface {
	Load(ctx context.Context) (domain.Identity, bool, error)
	Save(ctx context.Context, identity domain.Identity) error
	Clear(ctx context.Context) error
}

// Fetcher pulls read-only aggregate data from the API. Invalidate drops any
// cached data so the next pull is fresh.
type Fetcher interface {
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	Stats(ctx context.Context) (domain.Stats, error)
	Invalidate()
}

// Snapshot is a copy of the session state bundle. Presentation reads
// snapshots; only the controller loop writes the underlying state.
type Snapshot struct {
	Identity    *domain.Identity
	View        domain.View
	Game        domain.GameRound
	Lobby       domain.LobbyState
	Submission  domain.Submission
	Countdown   int
	Message     string
	Conn        domain.ConnState
	Stats       domain.Stats
	Leaderboard []domain.LeaderboardEntry
}

// Controller schedules every state transition onto one loop goroutine:
// inbound channel events, countdown ticks, and user actions all run on the
// same serial queue, so transitions never race and no per-field locking is
// needed. I/O (dialing, persistence, pull requests) runs off-loop and posts
// its result back as an action.
type Controller struct {
	dial  DialFunc
	store SessionStore
	fetch Fetcher
	clock clockwork.Clock
	log   zerolog.Logger

	actions chan func()
	done    chan struct{}

	// Loop-owned; touched only from run.
	m           *machine
	leaderboard []domain.LeaderboardEntry
	ch          Channel
	events      <-chan protocol.ServerEvent
	states      <-chan domain.ConnState
	ticker      clockwork.Ticker
	tickCh      <-chan time.Time
	resultTimer clockwork.Timer
	resultCh    <-chan time.Time
	msgTimer    clockwork.Timer
	msgCh       <-chan time.Time
	runCtx      context.Context

	snapMu sync.RWMutex
	snap   Snapshot
}

func NewController(dial DialFunc, store SessionStore, fetch Fetcher, clock clockwork.Clock, log zerolog.Logger) *Controller {
	c := &Controller{
		dial:    dial,
		store:   store,
		fetch:   fetch,
		clock:   clock,
		log:     log,
		actions: make(chan func(), 32),
		done:    make(chan struct{}),
	}
	c.m = newMachine(log, c.sendOutbound)
	return c
}

// Run seeds the session from the store, then processes events until ctx is
// cancelled. It blocks; run it under an errgroup or as a goroutine.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	defer close(c.done)

	if identity, ok, err := c.store.Load(ctx); err != nil {
		c.log.Warn().Err(err).Msg("load persisted session")
	} else if ok {
		id := identity
		c.m.identity = &id
		c.beginDial(id.Username)
	}
	c.refreshLeaderboardAsync()
	c.refreshStatsAsync()
	c.publish()

	for {
		select {
		case <-ctx.Done():
			c.teardownChannel()
			return nil
		case fn := <-c.actions:
			fn()
		case ev, ok := <-c.events:
			if !ok {
				c.events = nil
				break
			}
			c.apply(c.m.handleEvent(ev))
		case state, ok := <-c.states:
			if !ok {
				c.states = nil
				break
			}
			c.m.setConn(state)
		case <-c.tickCh:
			c.apply(c.m.tick())
		case <-c.resultCh:
			c.resultCh = nil
			c.resultTimer = nil
			c.m.clearResult()
		case <-c.msgCh:
			c.msgCh = nil
			c.msgTimer = nil
			c.m.clearMessage()
		}
		c.publish()
	}
}

// Snapshot returns the current state bundle by value.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// Login adopts a freshly authenticated identity: the previous channel (if
// any) is closed with its in-flight state discarded, the record is
// persisted, and a new channel is dialed.
func (c *Controller) Login(identity domain.Identity) {
	c.do(func() {
		c.teardownChannel()
		id := identity
		c.m.reset(&id)
		go func() {
			if err := c.store.Save(c.runCtx, identity); err != nil {
				c.log.Warn().Err(err).Msg("persist session")
			}
		}()
		c.beginDial(id.Username)
	})
}

// Logout clears the identity, closes the channel, and returns to the menu.
func (c *Controller) Logout() {
	c.do(func() {
		c.teardownChannel()
		c.m.reset(nil)
		go func() {
			if err := c.store.Clear(c.runCtx); err != nil {
				c.log.Warn().Err(err).Msg("clear persisted session")
			}
		}()
	})
}

func (c *Controller) StartSearch() { c.do(c.m.startSearch) }

func (c *Controller) SelectCategory(categoryID int) {
	c.do(func() { c.m.selectCategory(categoryID) })
}

func (c *Controller) SubmitAnswer(text string) {
	c.do(func() { c.m.submitAnswer(text) })
}

func (c *Controller) CancelSearch() { c.do(c.m.cancelSearch) }
func (c *Controller) ReturnHome()   { c.do(c.m.returnHome) }

// PlayAgain goes straight back to category selection from a finished round.
func (c *Controller) PlayAgain() { c.do(c.m.startSearch) }

func (c *Controller) RefreshLeaderboard() { c.do(c.refreshLeaderboardAsync) }
func (c *Controller) RefreshStats()       { c.do(c.refreshStatsAsync) }

// do schedules fn onto the loop. Dropped once the controller has stopped.
func (c *Controller) do(fn func()) {
	select {
	case c.actions <- fn:
	case <-c.done:
	}
}

func (c *Controller) sendOutbound(ev protocol.ClientEvent) {
	if c.ch != nil {
		c.ch.Send(ev)
	}
}

func (c *Controller) beginDial(username string) {
	ctx := c.runCtx
	go func() {
		ch, err := c.dial(ctx, username)
		if err != nil {
			c.log.Warn().Err(err).Str("username", username).Msg("channel dial failed")
			c.do(func() { c.m.setConn(domain.ConnError) })
			return
		}
		c.do(func() {
			// An identity change while dialing wins; discard the late channel.
			if c.m.identity == nil || c.m.identity.Username != username {
				ch.Close()
				return
			}
			c.teardownChannel()
			c.ch = ch
			c.events = ch.Events()
			c.states = ch.States()
		})
	}()
}

func (c *Controller) teardownChannel() {
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
		c.events = nil
		c.states = nil
	}
	c.stopTicker()
	c.stopResultTimer()
	c.stopMsgTimer()
}

func (c *Controller) apply(eff effects) {
	if eff.stopCountdown {
		c.stopTicker()
	}
	if eff.startCountdown {
		c.stopTicker()
		// A new question invalidates any outcome still on display.
		c.stopResultTimer()
		c.ticker = c.clock.NewTicker(countdownInterval)
		c.tickCh = c.ticker.Chan()
	}
	if eff.clearResultLater {
		c.stopResultTimer()
		c.resultTimer = c.clock.NewTimer(resultDisplayWindow)
		c.resultCh = c.resultTimer.Chan()
	}
	if eff.clearMessageLater {
		c.stopMsgTimer()
		c.msgTimer = c.clock.NewTimer(messageClearDelay)
		c.msgCh = c.msgTimer.Chan()
	}
	if eff.saveSession && c.m.identity != nil {
		identity := *c.m.identity
		go func() {
			if err := c.store.Save(c.runCtx, identity); err != nil {
				c.log.Warn().Err(err).Msg("persist updated score")
			}
		}()
	}
	if eff.refreshLeaderboard {
		// Scores just changed server-side; cached data is stale.
		c.fetch.Invalidate()
		c.refreshLeaderboardAsync()
	}
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
		c.tickCh = nil
	}
}

func (c *Controller) stopResultTimer() {
	if c.resultTimer != nil {
		stopAndDrainTimer(c.resultTimer)
		c.resultTimer = nil
		c.resultCh = nil
	}
}

func (c *Controller) stopMsgTimer() {
	if c.msgTimer != nil {
		stopAndDrainTimer(c.msgTimer)
		c.msgTimer = nil
		c.msgCh = nil
	}
}

// stopAndDrainTimer stops a timer and drains an already-fired channel so a
// stale expiry can never be observed later.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

// refreshLeaderboardAsync pulls the scoreboard off-loop and posts the result
// back. Fetch failures are logged and the previous data is kept.
func (c *Controller) refreshLeaderboardAsync() {
	ctx := c.runCtx
	go func() {
		entries, err := c.fetch.Leaderboard(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("leaderboard fetch failed")
			return
		}
		c.do(func() { c.leaderboard = entries })
	}()
}

func (c *Controller) refreshStatsAsync() {
	ctx := c.runCtx
	go func() {
		stats, err := c.fetch.Stats(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("stats fetch failed")
			return
		}
		c.do(func() { c.m.stats = stats })
	}()
}

func (c *Controller) publish() {
	snap := Snapshot{
		View:        c.m.view,
		Game:        c.m.game,
		Lobby:       c.m.lobby,
		Submission:  c.m.submission,
		Countdown:   c.m.countdown,
		Message:     c.m.message,
		Conn:        c.m.conn,
		Stats:       c.m.stats,
		Leaderboard: c.leaderboard,
	}
	if c.m.identity != nil {
		id := *c.m.identity
		snap.Identity = &id
	}
	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()
}
