package app

import (
	"strings"

	"github.com/rs/zerolog"

	"mindmaze-client/internal/domain"
	"mindmaze-client/internal/protocol"
)

// effects are the deferred consequences of a transition that the controller
// executes outside the pure state update: timer lifecycle, persistence, and
// the leaderboard refresh.
type effects struct {
	startCountdown     bool
	stopCountdown      bool
	clearResultLater   bool
	clearMessageLater  bool
	saveSession        bool
	refreshLeaderboard bool
}

// machine is the match state machine context: the single bundle of
// view/game/lobby/submission/countdown state with exactly one writer (the
// controller loop). All transition methods are synchronous; network output
// goes through send, which is fire-and-forget.
type machine struct {
	log  zerolog.Logger
	send func(protocol.ClientEvent)

	identity   *domain.Identity
	view       domain.View
	game       domain.GameRound
	lobby      domain.LobbyState
	submission domain.Submission
	countdown  int
	message    string
	conn       domain.ConnState
	stats      domain.Stats
}

func newMachine(log zerolog.Logger, send func(protocol.ClientEvent)) *machine {
	return &machine{
		log:  log,
		send: send,
		view: domain.ViewMenu,
		conn: domain.ConnDisconnected,
	}
}

// reset returns the machine to the post-login menu for identity, discarding
// any round in flight. Stats survive; they are out-of-band.
func (m *machine) reset(identity *domain.Identity) {
	m.identity = identity
	m.view = domain.ViewMenu
	m.game = domain.GameRound{}
	m.lobby = domain.LobbyState{}
	m.submission = domain.Submission{}
	m.countdown = 0
	m.message = ""
}

// handleEvent applies one inbound frame. Events are applied strictly in
// arrival order; the server is authoritative for every transition here.
func (m *machine) handleEvent(ev protocol.ServerEvent) effects {
	var eff effects
	switch ev := ev.(type) {
	case protocol.StatsUpdate:
		// Out-of-band aggregate refresh, no view change.
		m.stats = ev.Stats

	case protocol.WaitingUpdate:
		eff.stopCountdown = m.view == domain.ViewActive
		m.view = domain.ViewWaiting
		m.lobby = domain.LobbyState{PlayerCount: ev.PlayerCount, MaxPlayers: ev.MaxPlayers}

	case protocol.NewQuestion:
		m.view = domain.ViewActive
		m.game.Question = ev.Question
		m.game.QuestionIndex = ev.QuestionIndex
		m.game.TotalQuestions = ev.TotalQuestions
		m.game.Duration = ev.Duration
		m.game.Results = nil
		m.game.Winner = ""
		m.submission = domain.Submission{}
		m.countdown = ev.Duration
		eff.startCountdown = true

	case protocol.AnswerResult:
		if m.submission.Outcome == domain.OutcomeCorrect || m.submission.Outcome == domain.OutcomeIncorrect {
			// Outcome already recorded for this question; a duplicate or
			// late result is a no-op.
			return eff
		}
		if ev.Correct {
			m.submission.Outcome = domain.OutcomeCorrect
			m.submission.Awarded = ev.Score
		} else {
			m.submission.Outcome = domain.OutcomeIncorrect
			m.submission.CorrectAnswer = ev.CorrectAnswer
		}
		eff.clearResultLater = true

	case protocol.PlayerFinished:
		eff.stopCountdown = m.view == domain.ViewActive
		m.view = domain.ViewWaiting
		m.message = ev.Message

	case protocol.GameEnd:
		eff.stopCountdown = m.view == domain.ViewActive
		m.message = ""
		m.view = domain.ViewFinished
		m.game.Results = ev.Results
		m.game.Winner = ev.Winner
		if m.identity != nil {
			for _, r := range ev.Results {
				if r.Username == m.identity.Username && r.NewTotalScore != nil {
					// The sole path by which the cumulative score changes.
					m.identity.Score = *r.NewTotalScore
					eff.saveSession = true
				}
			}
		}
		eff.refreshLeaderboard = true

	case protocol.MatchFailed:
		eff.stopCountdown = m.view == domain.ViewActive
		m.view = domain.ViewCategorySelect
		m.message = ev.Message
		eff.clearMessageLater = true

	default:
		m.log.Warn().Type("event", ev).Msg("unhandled server event")
	}
	return eff
}

// tick advances the countdown by one second. At zero the timer freezes, the
// ticker stops, and if nothing has been submitted for the question yet an
// empty answer goes out exactly once; the pending outcome it leaves behind
// is the guard against a second fire.
func (m *machine) tick() effects {
	var eff effects
	if m.view != domain.ViewActive {
		return eff
	}
	if m.countdown > 0 {
		m.countdown--
	}
	if m.countdown == 0 {
		eff.stopCountdown = true
		if m.submission.Outcome == domain.OutcomeNone && m.conn == domain.ConnConnected {
			m.send(protocol.SubmitAnswer{})
			m.submission.Outcome = domain.OutcomePending
		}
	}
	return eff
}

// clearResult ends the fixed display window after a confirmed outcome. A
// pending submission is left alone so a late result can still land.
func (m *machine) clearResult() {
	if m.submission.Outcome == domain.OutcomeCorrect || m.submission.Outcome == domain.OutcomeIncorrect {
		m.submission = domain.Submission{}
	}
}

func (m *machine) clearMessage() {
	m.message = ""
}

func (m *machine) setConn(state domain.ConnState) {
	m.conn = state
}

// startSearch moves into category selection from the menu or from a
// finished round ("play again").
func (m *machine) startSearch() {
	if m.view == domain.ViewMenu || m.view == domain.ViewFinished {
		m.view = domain.ViewCategorySelect
		m.lobby = domain.LobbyState{}
	}
}

// selectCategory asks the server for a match. No local transition happens;
// the server decides whether and when matchmaking begins.
func (m *machine) selectCategory(categoryID int) {
	if m.view != domain.ViewCategorySelect || m.conn != domain.ConnConnected {
		return
	}
	m.send(protocol.FindMatch{Category: categoryID})
}

// submitAnswer sends the player's trimmed answer. Ignored once an outcome
// is pending or recorded for the current question.
func (m *machine) submitAnswer(text string) {
	text = strings.TrimSpace(text)
	if text == "" || m.view != domain.ViewActive || m.conn != domain.ConnConnected {
		return
	}
	if m.submission.Outcome != domain.OutcomeNone {
		return
	}
	m.send(protocol.SubmitAnswer{Answer: text})
	m.submission.Answer = text
	m.submission.Outcome = domain.OutcomePending
}

// cancelSearch abandons matchmaking and forces category selection locally.
func (m *machine) cancelSearch() {
	if m.view != domain.ViewWaiting && m.view != domain.ViewCategorySelect {
		return
	}
	m.send(protocol.CancelSearch{})
	m.view = domain.ViewCategorySelect
	m.message = ""
}

func (m *machine) returnHome() {
	m.view = domain.ViewMenu
	m.message = ""
}
