package main

// Messages coming from clients
type ClientMessage struct {
	Action string `json:"action"`         // "nome", "submit_white_card", "vote", "get_black_card"
	Nome   string `json:"nome,omitempty"` // nome
	Card   string `json:"card,omitempty"` // submit_white_card / vote
}

// GameStateMessage announces a phase change, or the current phase to a
// newly connected client.
type GameStateMessage struct {
	Action  string `json:"action"` // "game_state_update"
	State   string `json:"state"`  // "waiting_for_players", "starting_countdown", "in_game", "game_over"
	Message string `json:"message"`
}

// CountdownMessage is broadcast once per second while a game start is pending.
type CountdownMessage struct {
	Action  string `json:"action"` // "countdown"
	Seconds int    `json:"seconds"`
}

// HandMessage carries one player's full current hand.
type HandMessage struct {
	Action string   `json:"action"` // "nova_mao"
	Cartas []string `json:"cartas"`
}

// ScoresMessage carries every connected player's cumulative score.
type ScoresMessage struct {
	Action string         `json:"action"` // "scores_update"
	Scores map[string]int `json:"scores"` // display name -> score
}

// BlackCardMessage carries the current round's prompt.
type BlackCardMessage struct {
	Action string `json:"action"` // "black_card"
	Card   string `json:"card"`
}

// NextRoundMessage tells clients to clear their per-round view. It always
// precedes the new prompt.
type NextRoundMessage struct {
	Action string `json:"action"` // "next_round"
}

// SubmittedCountMessage is broadcast after each accepted submission.
type SubmittedCountMessage struct {
	Action string `json:"action"` // "white_card_submitted"
	Count  int    `json:"count"`
}

// StartVoteMessage carries this round's submissions, shuffled so clients
// cannot tell who submitted what.
type StartVoteMessage struct {
	Action string   `json:"action"` // "start_vote"
	Cards  []string `json:"cards"`
}

// RoundResultMessage announces the winning card and its submitter.
type RoundResultMessage struct {
	Action        string `json:"action"` // "round_result"
	WinnerCard    string `json:"winner_card"`
	WinnerAddress string `json:"winner_address"` // display name, or "Disconnected Player"
}

// GameOverMessage announces the game winner and their final score.
type GameOverMessage struct {
	Action string `json:"action"` // "game_over"
	Winner string `json:"winner"`
	Score  any    `json:"score"` // int, or "N/A" when the game ended without a winner
}

// ErrorMessage is sent to a single client for categorically invalid requests.
type ErrorMessage struct {
	Action string `json:"action"` // "error"
	Reason string `json:"reason"`
}

// RoomCodeMessage echoes this instance's room code to a new connection.
type RoomCodeMessage struct {
	Action string `json:"action"` // "codigo_sala"
	Sala   string `json:"sala"`
}
