package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCards(t *testing.T) {
	raw := "# comment\n\nfirst card\n  second card  \n\n# another comment\nthird card\n"

	cards := parseCards(raw)
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d: %v", len(cards), cards)
	}
	if cards[0] != "first card" || cards[1] != "second card" || cards[2] != "third card" {
		t.Fatalf("unexpected cards: %v", cards)
	}
}

func TestLoadEmbeddedDecks(t *testing.T) {
	deck, err := loadDeck("")
	if err != nil {
		t.Fatalf("embedded decks should load: %v", err)
	}

	if len(deck.black) == 0 {
		t.Fatal("embedded black deck should not be empty")
	}
	if len(deck.white) == 0 {
		t.Fatal("embedded white deck should not be empty")
	}
	if deck.Exhausted() {
		t.Fatal("embedded deck should not be exhausted")
	}
}

func TestLoadDeckFromDir(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "black.txt"), []byte("prompt one\nprompt two\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "white.txt"), []byte("answer one\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deck, err := loadDeck(dir)
	if err != nil {
		t.Fatalf("deck dir should load: %v", err)
	}
	if len(deck.black) != 2 || len(deck.white) != 1 {
		t.Fatalf("expected 2 black / 1 white, got %d/%d", len(deck.black), len(deck.white))
	}
}

func TestLoadDeckMissingFile(t *testing.T) {
	if _, err := loadDeck(t.TempDir()); err == nil {
		t.Fatal("loading from an empty directory should fail")
	}
}

func TestDrawWhites(t *testing.T) {
	deck := &Deck{white: []string{"a", "b", "c"}}

	held := map[string]bool{"a": true, "b": true, "c": true}
	cards := deck.DrawWhites(10)
	if len(cards) != 10 {
		t.Fatalf("expected 10 cards, got %d", len(cards))
	}
	for _, card := range cards {
		if !held[card] {
			t.Fatalf("drew a card not in the supply: %q", card)
		}
	}
}

func TestExhausted(t *testing.T) {
	deck := &Deck{white: []string{"a"}}
	if !deck.Exhausted() {
		t.Fatal("deck without prompts should report exhausted")
	}

	deck.black = []string{"prompt"}
	if deck.Exhausted() {
		t.Fatal("deck with prompts should not report exhausted")
	}
}
