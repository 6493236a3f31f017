package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"mindmaze-client/internal/domain"
	"mindmaze-client/internal/protocol"
)

type fakeChannel struct {
	mu     sync.Mutex
	sent   []protocol.ClientEvent
	closed bool
	events chan protocol.ServerEvent
	states chan domain.ConnState
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		events: make(chan protocol.ServerEvent, 16),
		states: make(chan domain.ConnState, 4),
	}
}

func (f *fakeChannel) Send(ev protocol.ClientEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.sent = append(f.sent, ev)
}

func (f *fakeChannel) Events() <-chan protocol.ServerEvent { return f.events }
func (f *fakeChannel) States() <-chan domain.ConnState     { return f.states }

func (f *fakeChannel) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeChannel) sends() []protocol.ClientEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.ClientEvent, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeChannel) push(ev protocol.ServerEvent) { f.events <- ev }

type fakeStore struct {
	mu      sync.Mutex
	saved   []domain.Identity
	seeded  *domain.Identity
	cleared int
}

func (s *fakeStore) Load(context.Context) (domain.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seeded == nil {
		return domain.Identity{}, false, nil
	}
	return *s.seeded, true, nil
}

func (s *fakeStore) Save(_ context.Context, identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, identity)
	return nil
}

func (s *fakeStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	return nil
}

func (s *fakeStore) lastSaved() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return domain.Identity{}, false
	}
	return s.saved[len(s.saved)-1], true
}

func (s *fakeStore) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

type fakeFetcher struct {
	mu               sync.Mutex
	leaderboardCalls int
	statsCalls       int
	board            []domain.LeaderboardEntry
}

func (f *fakeFetcher) Leaderboard(context.Context) ([]domain.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaderboardCalls++
	return f.board, nil
}

func (f *fakeFetcher) Stats(context.Context) (domain.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	return domain.Stats{TotalUsers: 1}, nil
}

func (f *fakeFetcher) Invalidate() {}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaderboardCalls
}

type fixture struct {
	ctrl    *Controller
	ch      *fakeChannel
	store   *fakeStore
	fetcher *fakeFetcher
	clock   *clockwork.FakeClock
	cancel  context.CancelFunc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ch := newFakeChannel()
	store := &fakeStore{}
	fetcher := &fakeFetcher{board: []domain.LeaderboardEntry{{Username: "alice", Score: 100}}}
	clock := clockwork.NewFakeClock()

	dial := func(ctx context.Context, username string) (Channel, error) {
		ch.states <- domain.ConnConnected
		return ch, nil
	}
	ctrl := NewController(dial, store, fetcher, clock, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = ctrl.Run(ctx) }()
	t.Cleanup(cancel)

	return &fixture{ctrl: ctrl, ch: ch, store: store, fetcher: fetcher, clock: clock, cancel: cancel}
}

func (fx *fixture) login(t *testing.T) {
	t.Helper()
	fx.ctrl.Login(domain.Identity{UserID: "u1", Username: "alice", Score: 100})
	waitFor(t, "channel connected", func() bool {
		s := fx.ctrl.Snapshot()
		return s.Identity != nil && s.Conn == domain.ConnConnected
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCategoryPickSendsSingleFindMatch(t *testing.T) {
	fx := newFixture(t)
	fx.login(t)

	fx.ctrl.StartSearch()
	waitFor(t, "categorySelect", func() bool {
		return fx.ctrl.Snapshot().View == domain.ViewCategorySelect
	})

	fx.ctrl.SelectCategory(3)
	waitFor(t, "find_match sent", func() bool { return len(fx.ch.sends()) == 1 })

	fm, ok := fx.ch.sends()[0].(protocol.FindMatch)
	if !ok || fm.Category != 3 {
		t.Fatalf("expected find_match category 3, got %#v", fx.ch.sends()[0])
	}
	if fx.ctrl.Snapshot().View != domain.ViewCategorySelect {
		t.Fatalf("view must not change until a push arrives")
	}
}

func TestCountdownExpiryForcesOneEmptySubmit(t *testing.T) {
	fx := newFixture(t)
	fx.login(t)

	fx.ch.push(protocol.NewQuestion{Question: "Q?", Duration: 2})
	waitFor(t, "active with countdown 2", func() bool {
		s := fx.ctrl.Snapshot()
		return s.View == domain.ViewActive && s.Countdown == 2
	})

	fx.clock.Advance(countdownInterval)
	waitFor(t, "countdown 1", func() bool { return fx.ctrl.Snapshot().Countdown == 1 })

	fx.clock.Advance(countdownInterval)
	waitFor(t, "forced empty submit", func() bool { return len(fx.ch.sends()) == 1 })

	if sa := fx.ch.sends()[0].(protocol.SubmitAnswer); sa.Answer != "" {
		t.Fatalf("expected empty forced submit, got %q", sa.Answer)
	}
	if got := fx.ctrl.Snapshot().Countdown; got != 0 {
		t.Fatalf("expected countdown frozen at 0, got %d", got)
	}

	// The ticker is stopped at zero; more wall time must not resend.
	fx.clock.Advance(5 * countdownInterval)
	time.Sleep(20 * time.Millisecond)
	if got := len(fx.ch.sends()); got != 1 {
		t.Fatalf("expected exactly one forced submit, got %d", got)
	}
}

func TestAnswerOutcomeClearsAfterDisplayWindow(t *testing.T) {
	fx := newFixture(t)
	fx.login(t)

	fx.ch.push(protocol.NewQuestion{Question: "Q?", Duration: 30})
	waitFor(t, "active", func() bool { return fx.ctrl.Snapshot().View == domain.ViewActive })

	fx.ctrl.SubmitAnswer("Paris")
	waitFor(t, "pending submission", func() bool {
		return fx.ctrl.Snapshot().Submission.Outcome == domain.OutcomePending
	})

	fx.ch.push(protocol.AnswerResult{Correct: true, Score: 10})
	waitFor(t, "confirmed outcome", func() bool {
		s := fx.ctrl.Snapshot().Submission
		return s.Outcome == domain.OutcomeCorrect && s.Awarded == 10
	})

	fx.clock.Advance(resultDisplayWindow)
	waitFor(t, "outcome cleared", func() bool {
		return fx.ctrl.Snapshot().Submission.Outcome == domain.OutcomeNone
	})
	if fx.ctrl.Snapshot().View != domain.ViewActive {
		t.Fatalf("clearing the outcome must not change the view")
	}
}

func TestGameEndOverwritesScoreAndRefreshesLeaderboard(t *testing.T) {
	fx := newFixture(t)
	fx.login(t)
	waitFor(t, "initial leaderboard", func() bool { return fx.fetcher.calls() >= 1 })
	before := fx.fetcher.calls()

	total := 140
	fx.ch.push(protocol.GameEnd{
		Results: []domain.PlayerResult{
			{Username: "alice", Score: 40, NewTotalScore: &total},
			{Username: "bob", Score: 30},
		},
		Winner: "alice",
	})

	waitFor(t, "finished with updated score", func() bool {
		s := fx.ctrl.Snapshot()
		return s.View == domain.ViewFinished && s.Identity != nil && s.Identity.Score == 140
	})
	waitFor(t, "leaderboard refresh", func() bool { return fx.fetcher.calls() > before })
	waitFor(t, "score persisted", func() bool {
		saved, ok := fx.store.lastSaved()
		return ok && saved.Score == 140
	})
}

func TestMatchFailedMessageAutoClears(t *testing.T) {
	fx := newFixture(t)
	fx.login(t)

	fx.ch.push(protocol.MatchFailed{Message: "opponent left"})
	waitFor(t, "failure banner", func() bool {
		s := fx.ctrl.Snapshot()
		return s.View == domain.ViewCategorySelect && s.Message == "opponent left"
	})

	fx.clock.Advance(messageClearDelay)
	waitFor(t, "banner cleared", func() bool { return fx.ctrl.Snapshot().Message == "" })
}

func TestLogoutClosesChannelAndClearsStore(t *testing.T) {
	fx := newFixture(t)
	fx.login(t)

	fx.ctrl.Logout()
	waitFor(t, "logged out", func() bool {
		s := fx.ctrl.Snapshot()
		return s.Identity == nil && s.View == domain.ViewMenu
	})
	waitFor(t, "channel closed", fx.ch.isClosed)
	waitFor(t, "store cleared", func() bool { return fx.store.clearCount() == 1 })
}

func TestSeedsIdentityFromStoreOnStartup(t *testing.T) {
	ch := newFakeChannel()
	store := &fakeStore{seeded: &domain.Identity{UserID: "u1", Username: "carol", Score: 55}}
	fetcher := &fakeFetcher{}
	clock := clockwork.NewFakeClock()

	var dialedMu sync.Mutex
	var dialed []string
	dial := func(ctx context.Context, username string) (Channel, error) {
		dialedMu.Lock()
		dialed = append(dialed, username)
		dialedMu.Unlock()
		ch.states <- domain.ConnConnected
		return ch, nil
	}
	ctrl := NewController(dial, store, fetcher, clock, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ctrl.Run(ctx) }()

	waitFor(t, "seeded identity connected", func() bool {
		s := ctrl.Snapshot()
		return s.Identity != nil && s.Identity.Username == "carol" && s.Conn == domain.ConnConnected
	})
	dialedMu.Lock()
	defer dialedMu.Unlock()
	if len(dialed) != 1 || dialed[0] != "carol" {
		t.Fatalf("expected one dial for carol, got %v", dialed)
	}
}

func TestStatsPushIsOutOfBand(t *testing.T) {
	fx := newFixture(t)
	fx.login(t)

	fx.ch.push(protocol.WaitingUpdate{PlayerCount: 1, MaxPlayers: 8})
	waitFor(t, "waiting", func() bool { return fx.ctrl.Snapshot().View == domain.ViewWaiting })

	fx.ch.push(protocol.StatsUpdate{Stats: domain.Stats{ActiveGames: 3}})
	waitFor(t, "stats applied", func() bool { return fx.ctrl.Snapshot().Stats.ActiveGames == 3 })
	if fx.ctrl.Snapshot().View != domain.ViewWaiting {
		t.Fatalf("stats push must not change the view")
	}
}
