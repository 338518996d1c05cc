package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Transaction types written by the dashboard flows.
const (
	TypeCropRecord = "Crop Record"
	TypePayout     = "Insurance Payout"
	TypeMint       = "Carbon Mint"
)

// Entry is one row of the transaction history.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Details   map[string]any `json:"details"`
}

// History is an append-only transaction log in SQLite.
type History struct {
	db  *sql.DB
	now func() time.Time
}

// OpenHistory opens or creates the log at path. Use ":memory:" for a
// throwaway log.
func OpenHistory(path string) (*History, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		type TEXT NOT NULL,
		details JSON NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &History{db: db, now: time.Now}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Append records a transaction.
func (h *History) Append(ctx context.Context, txType string, details map[string]any) (Entry, error) {
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal details: %w", err)
	}

	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: h.now().UTC(),
		Type:      txType,
		Details:   details,
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT INTO transactions (id, created_at, type, details) VALUES (?, ?, ?, ?)`,
		e.ID, e.Timestamp.Format(time.RFC3339Nano), e.Type, string(raw))
	if err != nil {
		return Entry{}, fmt.Errorf("append %s: %w", txType, err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (h *History) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, created_at, type, details FROM transactions ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
			details string
		)
		if err := rows.Scan(&e.ID, &created, &e.Type, &details); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", created, err)
		}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("decode details of %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ethAmount matches the leading number of amounts such as "0.5 ETH (50% Partial Payout)".
var ethAmount = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*ETH\b`)

// Balance sums the ETH amounts of all payouts.
func (h *History) Balance(ctx context.Context) (float64, error) {
	entries, err := h.List(ctx, 0)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, e := range entries {
		if e.Type != TypePayout {
			continue
		}
		amount, ok := e.Details["amount"].(string)
		if !ok {
			continue
		}
		total += ParseETH(amount)
	}
	return total, nil
}

// ParseETH returns the numeric part of an ETH amount string, or 0.
func ParseETH(amount string) float64 {
	m := ethAmount.FindStringSubmatch(strings.ToUpper(amount))
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}
