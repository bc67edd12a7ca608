package poker

import (
	"math/rand"
	"testing"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(1)))
	if d.Size() != 52 {
		t.Fatalf("deck size = %d, want 52", d.Size())
	}

	seen := make(map[Card]bool)
	for {
		c, ok := d.Draw()
		if !ok {
			break
		}
		if !c.Valid() {
			t.Errorf("drew invalid card %q", c)
		}
		if seen[c] {
			t.Errorf("duplicate card %q", c)
		}
		seen[c] = true
	}
	if len(seen) != 52 {
		t.Errorf("drew %d unique cards, want 52", len(seen))
	}
}

func TestDeckShuffleDeterministicPerSeed(t *testing.T) {
	d1 := NewDeck(rand.New(rand.NewSource(42)))
	d2 := NewDeck(rand.New(rand.NewSource(42)))
	for i := 0; i < 52; i++ {
		c1, _ := d1.Draw()
		c2, _ := d2.Draw()
		if c1 != c2 {
			t.Fatalf("card %d differs: %s vs %s", i, c1, c2)
		}
	}
}

func TestDeckDrawUnderflow(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(1)))
	for i := 0; i < 52; i++ {
		d.Draw()
	}
	if _, ok := d.Draw(); ok {
		t.Error("draw from empty deck succeeded")
	}
	if d.Burn() {
		t.Error("burn from empty deck succeeded")
	}
}

func TestParseCard(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"Ah", true},
		{"Td", true},
		{"2s", true},
		{"9c", true},
		{"ah", false},
		{"AH", false},
		{"1h", false},
		{"Ahh", false},
		{"", false},
	}
	for _, tt := range tests {
		_, err := ParseCard(tt.in)
		if (err == nil) != tt.valid {
			t.Errorf("ParseCard(%q) err=%v, want valid=%v", tt.in, err, tt.valid)
		}
	}
}

func TestCardRankValue(t *testing.T) {
	if v := Card("2h").RankValue(); v != 2 {
		t.Errorf("2h rank = %d, want 2", v)
	}
	if v := Card("Ah").RankValue(); v != 14 {
		t.Errorf("Ah rank = %d, want 14", v)
	}
	if v := Card("Ts").RankValue(); v != 10 {
		t.Errorf("Ts rank = %d, want 10", v)
	}
}
