package poker

import (
	"fmt"
	"math/rand"
	"strings"
)

// Card is a two-character card code: rank followed by suit, e.g. "Ah" for
// the ace of hearts. Ranks are 2-9, T, J, Q, K, A; suits are h, d, c, s.
// This is also the literal format the hand evaluator consumes.
type Card string

const (
	cardRanks = "23456789TJQKA"
	cardSuits = "hdcs"
)

// Rank returns the rank character of the card.
func (c Card) Rank() byte {
	return c[0]
}

// Suit returns the suit character of the card.
func (c Card) Suit() byte {
	return c[1]
}

// Valid reports whether the card is a well-formed two-character code.
func (c Card) Valid() bool {
	return len(c) == 2 &&
		strings.IndexByte(cardRanks, c[0]) >= 0 &&
		strings.IndexByte(cardSuits, c[1]) >= 0
}

// RankValue returns the numeric rank of the card (2-14, ace high).
func (c Card) RankValue() int {
	return strings.IndexByte(cardRanks, c[0]) + 2
}

func (c Card) String() string {
	return string(c)
}

// Deck is a standard 52-card deck.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a shuffled 52-card deck using the given random number
// generator.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}

	for _, s := range cardSuits {
		for _, r := range cardRanks {
			d.cards = append(d.cards, Card(string(r)+string(s)))
		}
	}

	d.Shuffle()
	return d
}

// Shuffle randomizes the order of the remaining cards (Fisher-Yates).
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card of the deck.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return "", false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Burn discards the top card. It reports whether a card was available.
func (d *Deck) Burn() bool {
	_, ok := d.Draw()
	return ok
}

// Size returns the number of cards remaining in the deck.
func (d *Deck) Size() int {
	return len(d.cards)
}

// ParseCard validates and converts a card code string.
func ParseCard(s string) (Card, error) {
	c := Card(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid card %q", s)
	}
	return c, nil
}
