// Package ledger records buy-ins and hand results in sqlite. Rooms work
// without it; it exists so a session's money flow survives a restart and
// can be audited afterwards.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Ledger is a sqlite-backed record of room activity.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database. Use ":memory:" for tests.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging ledger db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS buy_ins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		nickname TEXT NOT NULL,
		amount INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS hands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		hand_num INTEGER NOT NULL,
		board TEXT NOT NULL,
		payouts TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_buy_ins_room ON buy_ins(room_id);
	CREATE INDEX IF NOT EXISTS idx_hands_room ON hands(room_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// RecordBuyIn appends one buy-in row.
func (l *Ledger) RecordBuyIn(roomID, playerID, nickname string, amount int64) error {
	_, err := l.db.Exec(
		`INSERT INTO buy_ins (room_id, player_id, nickname, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		roomID, playerID, nickname, amount, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording buy-in: %w", err)
	}
	return nil
}

// RecordHand appends one hand result row. Payouts are stored as JSON.
func (l *Ledger) RecordHand(roomID string, handNum int, board string, payouts map[string]int64) error {
	blob, err := json.Marshal(payouts)
	if err != nil {
		return fmt.Errorf("encoding payouts: %w", err)
	}
	_, err = l.db.Exec(
		`INSERT INTO hands (room_id, hand_num, board, payouts, created_at) VALUES (?, ?, ?, ?, ?)`,
		roomID, handNum, board, string(blob), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording hand: %w", err)
	}
	return nil
}

// HandRecord is one persisted hand.
type HandRecord struct {
	HandNum int
	Board   string
	Payouts map[string]int64
}

// HandsForRoom returns a room's hand history in play order.
func (l *Ledger) HandsForRoom(roomID string) ([]HandRecord, error) {
	rows, err := l.db.Query(
		`SELECT hand_num, board, payouts FROM hands WHERE room_id = ? ORDER BY hand_num`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying hands: %w", err)
	}
	defer rows.Close()

	var out []HandRecord
	for rows.Next() {
		var rec HandRecord
		var blob string
		if err := rows.Scan(&rec.HandNum, &rec.Board, &blob); err != nil {
			return nil, fmt.Errorf("scanning hand: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &rec.Payouts); err != nil {
			return nil, fmt.Errorf("decoding payouts: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TotalBuyIns sums a player's recorded buy-ins in a room.
func (l *Ledger) TotalBuyIns(roomID, playerID string) (int64, error) {
	var total sql.NullInt64
	err := l.db.QueryRow(
		`SELECT SUM(amount) FROM buy_ins WHERE room_id = ? AND player_id = ?`,
		roomID, playerID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing buy-ins: %w", err)
	}
	return total.Int64, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
