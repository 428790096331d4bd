package main

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// countdownTimer is the cancellation handle for one game-start countdown.
// stop is safe to call repeatedly; wait blocks until the timer goroutine has
// fully exited, so a replacement timer can never overlap the old one.
type countdownTimer struct {
	cancel chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newCountdownTimer() *countdownTimer {
	return &countdownTimer{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (t *countdownTimer) stop() {
	t.once.Do(func() { close(t.cancel) })
}

func (t *countdownTimer) wait() {
	<-t.done
}

// runCountdown broadcasts the remaining seconds once per tick, re-checking
// the quorum every time. Cancellation or quorum loss aborts the timer; the
// phase transition after an abort belongs to the canceller, not the timer.
func (s *Session) runCountdown(t *countdownTimer, seconds int) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Msg("recovered countdown panic")
		}
	}()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for remaining := seconds; remaining > 0; remaining-- {
		s.mu.Lock()
		if s.phase != PhaseCountdown || s.countdown != t {
			s.mu.Unlock()
			return
		}
		if len(s.players) < s.cfg.minPlayers {
			// The unregister path cancels this timer and reverts the phase;
			// just stop ticking.
			s.mu.Unlock()
			return
		}
		s.countdownSeconds = remaining
		s.broadcastLocked(CountdownMessage{Action: "countdown", Seconds: remaining})
		s.mu.Unlock()

		select {
		case <-t.cancel:
			log.Debug().Msg("countdown cancelled")
			return
		case <-ticker.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCountdown || s.countdown != t || len(s.players) < s.cfg.minPlayers {
		return
	}

	s.countdown = nil
	s.startGameLocked()
}
