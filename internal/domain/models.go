package domain

// Identity is the authenticated player's session record. Score is the
// cumulative total and is only authoritative after a server confirmation
// (see the game_end handling in internal/app).
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// View is the high-level phase the player is in. Exactly one value is
// active at a time and only the match state machine changes it.
type View string

const (
	ViewMenu           View = "menu"
	ViewCategorySelect View = "categorySelect"
	ViewWaiting        View = "waiting"
	ViewActive         View = "active"
	ViewFinished       View = "finished"
)

// GameRound holds the current (or most recent) match. Results and Winner
// are populated only once the round is finished.
type GameRound struct {
	Players        []string
	Question       string
	QuestionIndex  int
	TotalQuestions int
	Duration       int // per-question seconds
	Results        []PlayerResult
	Winner         string
}

// PlayerResult is one player's final line in a finished round.
// NewTotalScore is present only when the server recomputed the player's
// cumulative score.
type PlayerResult struct {
	Username      string `json:"username"`
	Score         int    `json:"score"`
	NewTotalScore *int   `json:"new_total_score,omitempty"`
}

// LobbyState tracks matchmaking progress. Updated from server pushes only.
type LobbyState struct {
	PlayerCount int
	MaxPlayers  int
}

// Outcome is the confirmation status of the player's in-flight answer.
type Outcome int

const (
	// OutcomeNone means nothing has been submitted for the current question.
	OutcomeNone Outcome = iota
	// OutcomePending means an answer was sent and no result has arrived yet.
	OutcomePending
	// OutcomeCorrect and OutcomeIncorrect are server-confirmed results.
	OutcomeCorrect
	OutcomeIncorrect
)

// Submission is the player's answer for the current question, at most one
// outcome per question. Cleared whenever a new question starts.
type Submission struct {
	Answer        string
	Outcome       Outcome
	Awarded       int    // points, when correct
	CorrectAnswer string // revealed answer, when incorrect
}

// ConnState reflects transport health only; it never implies match state.
type ConnState string

const (
	ConnConnected    ConnState = "connected"
	ConnDisconnected ConnState = "disconnected"
	ConnError        ConnState = "error"
)

// LeaderboardEntry is one row of the global scoreboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Stats are read-only aggregate counters pushed or pulled from the server.
type Stats struct {
	TotalUsers       int `json:"total_users"`
	ActiveGames      int `json:"active_games"`
	ConnectedPlayers int `json:"connected_players"`
}

// Category is a question category the player can search a match in.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
