package poker

// positionNames maps player count to position labels, starting from the
// dealer and proceeding clockwise. Heads-up the dealer posts the small
// blind.
var positionNames = map[int][]string{
	2:  {"BTN/SB", "BB"},
	3:  {"BTN", "SB", "BB"},
	4:  {"BTN", "SB", "BB", "UTG"},
	5:  {"BTN", "SB", "BB", "UTG", "CO"},
	6:  {"BTN", "SB", "BB", "UTG", "MP", "CO"},
	7:  {"BTN", "SB", "BB", "UTG", "MP", "HJ", "CO"},
	8:  {"BTN", "SB", "BB", "UTG", "UTG+1", "MP", "HJ", "CO"},
	9:  {"BTN", "SB", "BB", "UTG", "UTG+1", "MP", "MP+1", "HJ", "CO"},
	10: {"BTN", "SB", "BB", "UTG", "UTG+1", "UTG+2", "MP", "MP+1", "HJ", "CO"},
}

// assignPositions labels each player by their offset from the dealer.
// Players are in clockwise seat order; dealerIndex is the button.
func assignPositions(players []*Player, dealerIndex int) {
	n := len(players)
	names, ok := positionNames[n]
	if !ok {
		return
	}
	for offset := 0; offset < n; offset++ {
		players[(dealerIndex+offset)%n].Position = names[offset]
	}
}
