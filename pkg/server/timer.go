package server

import (
	"sync"
	"time"
)

// TickInfo is the read-only payload of a timer tick.
type TickInfo struct {
	PlayerID      string
	Remaining     int
	UsingTimeBank bool
	TimeBank      int64
}

// TurnTimer is the per-room action clock. It runs two phases: the action
// timer, then the player's personal timebank. Ticks and the single expiry
// are delivered from the timer goroutine; expiry carries the generation
// it belongs to so the room can drop stale firings.
type TurnTimer struct {
	mu       sync.Mutex
	interval time.Duration
	gen      uint64
	cancel   chan struct{}
	bankUsed int64
}

// NewTurnTimer creates a timer ticking at the given interval, one second
// in production. Tests shrink it.
func NewTurnTimer(interval time.Duration) *TurnTimer {
	if interval <= 0 {
		interval = time.Second
	}
	return &TurnTimer{interval: interval}
}

// Gen returns the current generation. An expiry carrying an older
// generation is stale.
func (t *TurnTimer) Gen() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Start arms the timer for a player's turn and returns the generation of
// this arming. Any previous arming is cancelled.
func (t *TurnTimer) Start(playerID string, actionSecs int, bankSecs int64, onTick func(TickInfo), onExpire func(gen uint64)) uint64 {
	t.mu.Lock()
	if t.cancel != nil {
		close(t.cancel)
	}
	t.gen++
	gen := t.gen
	cancel := make(chan struct{})
	t.cancel = cancel
	t.bankUsed = 0
	t.mu.Unlock()

	go t.run(playerID, actionSecs, bankSecs, onTick, onExpire, cancel, gen)
	return gen
}

func (t *TurnTimer) run(playerID string, actionSecs int, bankSecs int64, onTick func(TickInfo), onExpire func(uint64), cancel chan struct{}, gen uint64) {
	remaining := actionSecs
	inBank := false
	bankLeft := bankSecs

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
		}

		if !inBank {
			remaining--
			if onTick != nil {
				onTick(TickInfo{PlayerID: playerID, Remaining: remaining, TimeBank: bankLeft})
			}
			if remaining > 0 {
				continue
			}
			if bankLeft > 0 {
				inBank = true
				continue
			}
			onExpire(gen)
			return
		}

		bankLeft--
		t.mu.Lock()
		if t.gen == gen {
			t.bankUsed = bankSecs - bankLeft
		}
		t.mu.Unlock()
		if onTick != nil {
			onTick(TickInfo{PlayerID: playerID, Remaining: int(bankLeft), UsingTimeBank: true, TimeBank: bankLeft})
		}
		if bankLeft <= 0 {
			onExpire(gen)
			return
		}
	}
}

// Stop disarms the timer and returns the timebank seconds the turn
// consumed. It is idempotent: a second Stop returns 0.
func (t *TurnTimer) Stop() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
	used := t.bankUsed
	t.bankUsed = 0
	return used
}
