// Cartas game session
//
// Each server process hosts a single room. Players connect over a websocket,
// receive a hand of response cards, and answer a shared prompt card each
// round; once every connected player has submitted, the submissions are
// shuffled and put to an anonymous vote. The submission with the most votes
// scores a point for its author, and the first player to reach the
// configured maximum wins.
//
// Features:
// - Game starts automatically via countdown once enough players joined
// - Countdown aborts cooperatively if the player count drops mid-count
// - Submission and vote thresholds track the live player count, so
//   departures never stall a round
// - Submissions are tallied by per-submission id, so two players handing in
//   the same card text never share votes
// - Ties are broken by uniform random choice among the tied submissions
// - After game over the session loops back to the waiting phase in place,
//   keeping connected players and their scores

package main

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Phase values double as the wire "state" strings.
type Phase string

const (
	PhaseWaiting   Phase = "waiting_for_players"
	PhaseCountdown Phase = "starting_countdown"
	PhaseInGame    Phase = "in_game"
	PhaseGameOver  Phase = "game_over"
)

// Player holds the volatile per-connection game state. It exists exactly as
// long as its connection is registered; scores do not survive a disconnect.
type Player struct {
	Nome      string
	Score     int
	Hand      []string
	Submitted bool
	Voted     bool
}

type submission struct {
	id     string
	client *Client
	card   string
}

// Session owns all room state. Every mutation runs under mu, so each handler
// executes as one atomic step; the only things that happen outside the lock
// are transport writes (on the per-client write pumps) and timer waits.
type Session struct {
	cfg  *Config
	deck *Deck

	mu      sync.Mutex
	phase   Phase
	players map[*Client]*Player

	blackCard   string
	submissions []*submission
	votes       map[string]int // submission id -> count
	voting      bool
	round       int // generation guard for delayed transitions

	countdown        *countdownTimer
	countdownSeconds int

	tick time.Duration // countdown tick interval, shortened in tests
}

func NewSession(cfg *Config, deck *Deck) *Session {
	return &Session{
		cfg:     cfg,
		deck:    deck,
		phase:   PhaseWaiting,
		players: make(map[*Client]*Player),
		votes:   make(map[string]int),
		tick:    time.Second,
	}
}

// Count returns the number of live players. Every "did everyone act" check
// compares against this, never against a count frozen at round start.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Register adds a new connection, deals it a hand, sends the snapshot a
// mid-game joiner needs to render, and re-evaluates the start quorum.
func (s *Session) Register(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Player{Hand: s.deck.DrawWhites(s.cfg.handSize)}
	s.players[c] = p

	log.Info().Str("client", c.addr).Int("players", len(s.players)).Msg("client connected")

	s.sendLocked(c, GameStateMessage{Action: "game_state_update", State: string(s.phase), Message: "Current state: " + string(s.phase)})
	s.sendLocked(c, HandMessage{Action: "nova_mao", Cartas: p.Hand})
	s.sendLocked(c, ScoresMessage{Action: "scores_update", Scores: s.scoresLocked()})
	s.sendLocked(c, RoomCodeMessage{Action: "codigo_sala", Sala: s.cfg.room})

	switch s.phase {
	case PhaseCountdown:
		s.sendLocked(c, CountdownMessage{Action: "countdown", Seconds: s.countdownSeconds})
	case PhaseInGame:
		if s.blackCard != "" {
			s.sendLocked(c, BlackCardMessage{Action: "black_card", Card: s.blackCard})
		}
	}

	if s.phase == PhaseWaiting && len(s.players) >= s.cfg.minPlayers {
		s.startCountdownLocked()
	}
}

// Unregister removes a connection and re-evaluates quorum: a countdown is
// cancelled, a running game below quorum is force-ended, and a round waiting
// on the departed player may complete.
func (s *Session) Unregister(c *Client) {
	s.mu.Lock()

	p, ok := s.players[c]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.players, c)
	close(c.send)

	log.Info().Str("client", c.addr).Str("player", p.Nome).Int("players", len(s.players)).Msg("client disconnected")

	var stopped *countdownTimer

	switch {
	case s.phase == PhaseCountdown && len(s.players) < s.cfg.minPlayers:
		stopped = s.countdown
		s.countdown = nil
		s.setPhaseLocked(PhaseWaiting, "Not enough players. Countdown stopped.")

	case s.phase == PhaseInGame && len(s.players) < s.cfg.minPlayers:
		s.endGameLocked(nil)

	case s.phase == PhaseInGame:
		s.reapDepartedLocked(c)
	}

	s.mu.Unlock()

	// Await cancellation outside the lock; the timer goroutine needs the
	// lock to observe the phase change and exit.
	if stopped != nil {
		stopped.stop()
		stopped.wait()
	}
}

// reapDepartedLocked settles a round that was waiting on a player who just
// left. Their pending submission is withdrawn; votes they already cast stand.
func (s *Session) reapDepartedLocked(c *Client) {
	if !s.voting {
		for i, sub := range s.submissions {
			if sub.client == c {
				s.submissions = append(s.submissions[:i], s.submissions[i+1:]...)
				s.broadcastLocked(SubmittedCountMessage{Action: "white_card_submitted", Count: len(s.submissions)})
				break
			}
		}
		if len(s.players) > 0 && len(s.submissions) >= len(s.players) {
			s.beginVotingLocked()
		}
		return
	}

	if s.sumVotesLocked() >= len(s.players) {
		s.resolveRoundLocked()
	}
}

// HandleMessage dispatches one inbound client message. Out-of-phase
// submissions and votes are dropped without a reply.
func (s *Session) HandleMessage(c *Client, msg ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[c]; !ok {
		return
	}

	switch msg.Action {
	case "nome":
		if msg.Nome != "" {
			s.players[c].Nome = msg.Nome
		}

	case "get_black_card":
		if s.blackCard != "" {
			s.sendLocked(c, BlackCardMessage{Action: "black_card", Card: s.blackCard})
		}

	case "submit_white_card":
		s.handleSubmissionLocked(c, msg.Card)

	case "vote":
		s.handleVoteLocked(c, msg.Card)

	default:
		// ignore unknown actions
	}
}

// Send queues a message for a single client with the same failure isolation
// as a broadcast.
func (s *Session) Send(c *Client, msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendLocked(c, msg)
}

// sendLocked queues a message without ever blocking on the transport. A full
// queue means the client stopped draining; the connection is closed and its
// read loop performs the actual cleanup, never the broadcaster.
func (s *Session) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		log.Warn().Str("client", c.addr).Msg("send queue full, dropping client")
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

func (s *Session) broadcastLocked(msg any) {
	for c := range s.players {
		s.sendLocked(c, msg)
	}
}

func (s *Session) scoresLocked() map[string]int {
	scores := make(map[string]int, len(s.players))
	for _, p := range s.players {
		scores[p.Nome] = p.Score
	}
	return scores
}

func (s *Session) setPhaseLocked(phase Phase, message string) {
	if s.phase == phase {
		return
	}
	s.phase = phase
	log.Info().Str("phase", string(phase)).Msg(message)
	s.broadcastLocked(GameStateMessage{Action: "game_state_update", State: string(phase), Message: message})
}

// startCountdownLocked arms the game-start timer. No-op outside the waiting
// phase or below quorum.
func (s *Session) startCountdownLocked() {
	if s.phase != PhaseWaiting || len(s.players) < s.cfg.minPlayers {
		return
	}

	// A stale timer can only be left over from a phase we already exited;
	// signalling it is enough, the phase guard keeps it inert.
	if s.countdown != nil {
		s.countdown.stop()
	}

	seconds := int(s.cfg.countdown / time.Second)
	s.setPhaseLocked(PhaseCountdown, fmt.Sprintf("Game starting in %d seconds...", seconds))
	s.countdownSeconds = seconds

	t := newCountdownTimer()
	s.countdown = t
	go s.runCountdown(t, seconds)
}

func (s *Session) startGameLocked() {
	s.setPhaseLocked(PhaseInGame, "Game started!")
	s.startNewRoundLocked()
}

// startNewRoundLocked resets round state, tops every hand back up to full
// size, and deals the next prompt. An empty prompt supply ends the game.
func (s *Session) startNewRoundLocked() {
	s.round++
	s.submissions = nil
	s.votes = make(map[string]int)
	s.voting = false

	for c, p := range s.players {
		p.Submitted = false
		p.Voted = false
		for len(p.Hand) < s.cfg.handSize {
			p.Hand = append(p.Hand, s.deck.DrawWhite())
		}
		s.sendLocked(c, HandMessage{Action: "nova_mao", Cartas: p.Hand})
	}

	if s.deck.Exhausted() {
		log.Warn().Msg("no prompt cards remain, ending game")
		s.endGameLocked(nil)
		return
	}

	s.blackCard = s.deck.DrawBlack()
	log.Info().Int("round", s.round).Str("card", s.blackCard).Msg("new round")

	// next_round first, so clients reset their stale per-round view before
	// seeing the new prompt.
	s.broadcastLocked(NextRoundMessage{Action: "next_round"})
	s.broadcastLocked(BlackCardMessage{Action: "black_card", Card: s.blackCard})
}

func (s *Session) handleSubmissionLocked(c *Client, card string) {
	p := s.players[c]

	if s.phase != PhaseInGame || s.voting || card == "" || p.Submitted {
		return
	}
	if !removeCard(&p.Hand, card) {
		return
	}

	p.Submitted = true
	s.submissions = append(s.submissions, &submission{
		id:     uuid.NewString(),
		client: c,
		card:   card,
	})

	log.Info().Str("player", p.Nome).Str("card", card).Int("submitted", len(s.submissions)).Msg("card submitted")
	s.broadcastLocked(SubmittedCountMessage{Action: "white_card_submitted", Count: len(s.submissions)})

	if len(s.submissions) >= len(s.players) {
		s.beginVotingLocked()
	}
}

// beginVotingLocked shuffles the submission order and opens the vote. The
// shuffled order is what clients see; the submitter mapping stays internal.
func (s *Session) beginVotingLocked() {
	rand.Shuffle(len(s.submissions), func(i, j int) {
		s.submissions[i], s.submissions[j] = s.submissions[j], s.submissions[i]
	})

	cards := make([]string, len(s.submissions))
	for i, sub := range s.submissions {
		cards[i] = sub.card
	}

	s.voting = true
	log.Info().Int("cards", len(cards)).Msg("voting started")
	s.broadcastLocked(StartVoteMessage{Action: "start_vote", Cards: cards})
}

func (s *Session) handleVoteLocked(c *Client, card string) {
	p := s.players[c]

	if s.phase != PhaseInGame || !s.voting || p.Voted {
		return
	}

	// Votes arrive as card text but are tallied by submission id. When two
	// players submitted the same text, the vote lands on whichever copy has
	// the fewest votes so far, so totals stay correct and no submission
	// absorbs another's votes.
	var target *submission
	for _, sub := range s.submissions {
		if sub.card != card {
			continue
		}
		if target == nil || s.votes[sub.id] < s.votes[target.id] {
			target = sub
		}
	}
	if target == nil {
		return
	}

	s.votes[target.id]++
	p.Voted = true

	log.Info().Str("player", p.Nome).Str("card", card).Int("votes", s.sumVotesLocked()).Msg("vote received")

	if s.sumVotesLocked() >= len(s.players) {
		s.resolveRoundLocked()
	}
}

func (s *Session) sumVotesLocked() int {
	total := 0
	for _, count := range s.votes {
		total += count
	}
	return total
}

// resolveRoundLocked picks the round winner, awards the point, and either
// ends the game or schedules the next round after the display pause.
func (s *Session) resolveRoundLocked() {
	winner := s.winningSubmissionLocked()
	if winner == nil {
		s.scheduleNextRoundLocked()
		return
	}

	p, connected := s.players[winner.client]
	if !connected {
		// The submitter left mid-vote. Report the card, award nothing.
		log.Info().Str("card", winner.card).Msg("round won by disconnected player")
		s.broadcastLocked(RoundResultMessage{Action: "round_result", WinnerCard: winner.card, WinnerAddress: "Disconnected Player"})
		s.broadcastLocked(ScoresMessage{Action: "scores_update", Scores: s.scoresLocked()})
		s.scheduleNextRoundLocked()
		return
	}

	p.Score++
	log.Info().Str("player", p.Nome).Str("card", winner.card).Int("score", p.Score).Msg("round won")

	s.broadcastLocked(RoundResultMessage{Action: "round_result", WinnerCard: winner.card, WinnerAddress: p.Nome})
	s.broadcastLocked(ScoresMessage{Action: "scores_update", Scores: s.scoresLocked()})

	if p.Score >= s.cfg.maxPoints {
		s.endGameLocked(winner.client)
		return
	}

	s.scheduleNextRoundLocked()
}

// winningSubmissionLocked returns the submission with the most votes, ties
// broken by uniform random choice among the tied submissions.
func (s *Session) winningSubmissionLocked() *submission {
	maxVotes := 0
	for _, count := range s.votes {
		if count > maxVotes {
			maxVotes = count
		}
	}
	if maxVotes == 0 {
		return nil
	}

	var tied []*submission
	for _, sub := range s.submissions {
		if s.votes[sub.id] == maxVotes {
			tied = append(tied, sub)
		}
	}

	return tied[rand.Intn(len(tied))]
}

// scheduleNextRoundLocked starts the next round after the result pause,
// unless the game moved on in the meantime.
func (s *Session) scheduleNextRoundLocked() {
	round := s.round
	time.AfterFunc(s.cfg.resultPause, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.phase == PhaseInGame && s.round == round {
			s.startNewRoundLocked()
		}
	})
}

// endGameLocked finishes the game, with or without a winner. Round state is
// cleared but players and scores survive; after the display pause the
// session either restarts the countdown or returns to waiting.
func (s *Session) endGameLocked(winner *Client) {
	if s.phase == PhaseGameOver {
		return
	}

	winnerName := "No winner"
	var winnerScore any = "N/A"
	if winner != nil {
		if p, ok := s.players[winner]; ok {
			winnerName = p.Nome
			winnerScore = p.Score
		}
	}

	s.broadcastLocked(ScoresMessage{Action: "scores_update", Scores: s.scoresLocked()})
	s.broadcastLocked(GameOverMessage{Action: "game_over", Winner: winnerName, Score: winnerScore})
	s.setPhaseLocked(PhaseGameOver, "Game over! Winner: "+winnerName)

	if s.countdown != nil {
		s.countdown.stop()
		s.countdown = nil
	}

	s.round++
	s.submissions = nil
	s.votes = make(map[string]int)
	s.voting = false
	s.blackCard = ""

	time.AfterFunc(s.cfg.gameOverPause, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.phase != PhaseGameOver {
			return
		}
		if len(s.players) >= s.cfg.minPlayers {
			s.phase = PhaseWaiting
			s.startCountdownLocked()
		} else {
			s.setPhaseLocked(PhaseWaiting, "Waiting for more players...")
		}
	})
}

// removeCard deletes the first occurrence of card from hand. Removing a card
// that is absent is a no-op, which also swallows duplicate submissions.
func removeCard(hand *[]string, card string) bool {
	for i, held := range *hand {
		if held == card {
			*hand = append((*hand)[:i], (*hand)[i+1:]...)
			return true
		}
	}
	return false
}
