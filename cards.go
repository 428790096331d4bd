package main

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

//go:embed decks/black.txt
var embeddedBlackDeck string

//go:embed decks/white.txt
var embeddedWhiteDeck string

// Deck is a read-only supply of prompt ("black") and response ("white")
// cards. Draws use replacement, so the white supply never runs dry; a game
// can only stall on an empty black deck.
type Deck struct {
	black []string
	white []string
}

// loadDeck returns the embedded decks, or the decks found in dir when one
// is given. Deck files hold one card per line; blank lines and lines
// starting with '#' are skipped.
func loadDeck(dir string) (*Deck, error) {
	black := parseCards(embeddedBlackDeck)
	white := parseCards(embeddedWhiteDeck)

	if dir != "" {
		raw, err := os.ReadFile(filepath.Join(dir, "black.txt"))
		if err != nil {
			return nil, fmt.Errorf("failed to read black deck: %w", err)
		}
		black = parseCards(string(raw))

		raw, err = os.ReadFile(filepath.Join(dir, "white.txt"))
		if err != nil {
			return nil, fmt.Errorf("failed to read white deck: %w", err)
		}
		white = parseCards(string(raw))
	}

	if len(white) == 0 {
		return nil, fmt.Errorf("white deck contains no cards")
	}

	return &Deck{black: black, white: white}, nil
}

func parseCards(raw string) []string {
	var cards []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cards = append(cards, line)
	}

	return cards
}

// Exhausted reports whether the prompt supply is empty.
func (d *Deck) Exhausted() bool {
	return len(d.black) == 0
}

// DrawBlack returns a random prompt card. Callers must check Exhausted first.
func (d *Deck) DrawBlack() string {
	return d.black[rand.Intn(len(d.black))]
}

// DrawWhite returns a random response card.
func (d *Deck) DrawWhite() string {
	return d.white[rand.Intn(len(d.white))]
}

// DrawWhites returns n random response cards, drawn with replacement.
func (d *Deck) DrawWhites(n int) []string {
	cards := make([]string, n)
	for i := range cards {
		cards[i] = d.DrawWhite()
	}
	return cards
}
