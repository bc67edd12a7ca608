package poker

import (
	"fmt"

	chehsunliu "github.com/chehsunliu/poker"
)

// HandRank is the category of a five-card poker hand, high to low.
type HandRank int

const (
	StraightFlush HandRank = iota
	FourOfAKind
	FullHouse
	Flush
	Straight
	ThreeOfAKind
	TwoPair
	OnePair
	HighCard
)

func (r HandRank) String() string {
	switch r {
	case StraightFlush:
		return "Straight Flush"
	case FourOfAKind:
		return "Four of a Kind"
	case FullHouse:
		return "Full House"
	case Flush:
		return "Flush"
	case Straight:
		return "Straight"
	case ThreeOfAKind:
		return "Three of a Kind"
	case TwoPair:
		return "Two Pair"
	case OnePair:
		return "Pair"
	case HighCard:
		return "High Card"
	default:
		return "Unknown"
	}
}

// HandValue is a fully ordered evaluation of a hole+board combination.
// Lower Score is stronger; Score is the only field comparisons read, so any
// evaluator producing a total order can back this type.
type HandValue struct {
	Score       int32
	Rank        HandRank
	Description string
}

// EvaluateHand scores the best five-card hand from the player's hole cards
// and the community cards.
func EvaluateHand(hole, community []Card) (HandValue, error) {
	all := make([]chehsunliu.Card, 0, len(hole)+len(community))
	for _, c := range append(append([]Card{}, hole...), community...) {
		if !c.Valid() {
			return HandValue{}, fmt.Errorf("invalid card %q", c)
		}
		all = append(all, chehsunliu.NewCard(string(c)))
	}
	if len(all) < 5 {
		return HandValue{}, fmt.Errorf("need at least 5 cards, got %d", len(all))
	}

	score := chehsunliu.Evaluate(all)
	class := chehsunliu.RankClass(score)
	return HandValue{
		Score: score,
		// chehsunliu rank classes run 1 (straight flush) to 9 (high card).
		Rank:        HandRank(class - 1),
		Description: chehsunliu.RankString(score),
	}, nil
}

// CompareHands returns -1 if a beats b, 1 if b beats a, 0 on a tie.
func CompareHands(a, b HandValue) int {
	switch {
	case a.Score < b.Score:
		return -1
	case a.Score > b.Score:
		return 1
	default:
		return 0
	}
}

// DetermineWinners returns the indices of the best hand(s) in values,
// including every tie.
func DetermineWinners(values []HandValue) []int {
	if len(values) == 0 {
		return nil
	}
	best := values[0].Score
	for _, v := range values[1:] {
		if v.Score < best {
			best = v.Score
		}
	}
	var winners []int
	for i, v := range values {
		if v.Score == best {
			winners = append(winners, i)
		}
	}
	return winners
}
