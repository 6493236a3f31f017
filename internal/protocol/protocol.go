// Package protocol defines the JSON frames exchanged with the game server
// over the match channel. Inbound frames form a closed set of variants so
// dispatch in the state machine can be an exhaustive type switch instead of
// a stringly-typed fallthrough.
package protocol

import (
	"encoding/json"
	"fmt"

	"mindmaze-client/internal/domain"
)

// ServerEvent is one decoded frame pushed by the server. The marker method
// seals the set of variants to this package.
type ServerEvent interface {
	serverEvent()
}

// WaitingUpdate reports matchmaking lobby progress.
type WaitingUpdate struct {
	PlayerCount int `json:"player_count"`
	MaxPlayers  int `json:"max_players"`
}

// NewQuestion starts (or advances) the active round.
type NewQuestion struct {
	Question       string `json:"question"`
	QuestionIndex  int    `json:"question_index"`
	TotalQuestions int    `json:"total_questions"`
	Duration       int    `json:"duration"`
}

// AnswerResult confirms the player's submission for the current question.
// Score is set when correct, CorrectAnswer when incorrect.
type AnswerResult struct {
	Correct       bool   `json:"correct"`
	Score         int    `json:"score"`
	CorrectAnswer string `json:"correct_answer"`
}

// PlayerFinished tells the player they are done but others are still playing.
type PlayerFinished struct {
	Message string `json:"message"`
}

// GameEnd closes the round with final results and the winner.
type GameEnd struct {
	Results []domain.PlayerResult `json:"results"`
	Winner  string                `json:"winner"`
}

// MatchFailed aborts matchmaking or an in-progress match.
type MatchFailed struct {
	Message string `json:"message"`
}

// StatsUpdate is an out-of-band aggregate refresh; it never participates in
// match state transitions.
type StatsUpdate struct {
	Stats domain.Stats `json:"stats"`
}

func (WaitingUpdate) serverEvent()  {}
func (NewQuestion) serverEvent()    {}
func (AnswerResult) serverEvent()   {}
func (PlayerFinished) serverEvent() {}
func (GameEnd) serverEvent()        {}
func (MatchFailed) serverEvent()    {}
func (StatsUpdate) serverEvent()    {}

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one inbound frame. Unknown types and malformed payloads are
// errors; the caller drops such frames without touching state.
func Decode(data []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var (
		ev  ServerEvent
		err error
	)
	switch env.Type {
	case "waiting_update":
		var v WaitingUpdate
		err = json.Unmarshal(data, &v)
		ev = v
	case "new_question":
		var v NewQuestion
		err = json.Unmarshal(data, &v)
		ev = v
	case "answer_result":
		var v AnswerResult
		err = json.Unmarshal(data, &v)
		ev = v
	case "player_finished":
		var v PlayerFinished
		err = json.Unmarshal(data, &v)
		ev = v
	case "game_end":
		var v GameEnd
		err = json.Unmarshal(data, &v)
		ev = v
	case "match_failed":
		var v MatchFailed
		err = json.Unmarshal(data, &v)
		ev = v
	case "stats_update":
		var v StatsUpdate
		err = json.Unmarshal(data, &v)
		ev = v
	default:
		return nil, fmt.Errorf("unknown frame type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s frame: %w", env.Type, err)
	}
	return ev, nil
}

// ClientEvent is one outbound frame. All sends are fire-and-forget; no
// acknowledgement is awaited.
type ClientEvent interface {
	clientEvent()
	frameType() string
}

// FindMatch asks the server to start matchmaking in a category.
type FindMatch struct {
	Category int `json:"category"`
}

// SubmitAnswer carries the player's answer; empty means the countdown
// expired without a manual submission.
type SubmitAnswer struct {
	Answer string `json:"answer"`
}

// CancelSearch abandons matchmaking.
type CancelSearch struct{}

func (FindMatch) clientEvent()    {}
func (SubmitAnswer) clientEvent() {}
func (CancelSearch) clientEvent() {}

func (FindMatch) frameType() string    { return "find_match" }
func (SubmitAnswer) frameType() string { return "submit_answer" }
func (CancelSearch) frameType() string { return "cancel_search" }

// Encode serializes an outbound frame with its type discriminator.
func Encode(ev ClientEvent) ([]byte, error) {
	fields, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", ev.frameType(), err)
	}
	var m map[string]any
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", ev.frameType(), err)
	}
	if m == nil {
		m = map[string]any{}
	}
	m["type"] = ev.frameType()
	return json.Marshal(m)
}
