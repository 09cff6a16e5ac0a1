package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultVoiceLimit is used by VoiceHistory when limit <= 0.
const DefaultVoiceLimit = 10

// Calculation is one history entry.
type Calculation struct {
	ID         int64     `json:"id"`
	Expression string    `json:"expression"`
	Result     string    `json:"result"`
	Timestamp  time.Time `json:"timestamp"`
	VoiceInput bool      `json:"voice_input"`
}

// Entry renders the calculation the way the history panel shows it.
func (c Calculation) Entry() string {
	return c.Expression + " = " + c.Result
}

const selectColumns = `SELECT id, expression, result, timestamp, voice_input FROM calculation_history`

// History returns entries newest first. limit <= 0 returns all entries.
//
// Returns an empty slice (not nil) if there is no history.
func (s *Store) History(ctx context.Context, limit int) ([]Calculation, error) {
	if limit <= 0 {
		return s.queryCalculations(ctx, selectColumns+` ORDER BY id DESC`)
	}
	return s.queryCalculations(ctx, selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
}

// VoiceHistory returns the newest voice-originated entries.
// limit <= 0 selects DefaultVoiceLimit.
func (s *Store) VoiceHistory(ctx context.Context, limit int) ([]Calculation, error) {
	if limit <= 0 {
		limit = DefaultVoiceLimit
	}
	return s.queryCalculations(ctx,
		selectColumns+` WHERE voice_input = 1 ORDER BY id DESC LIMIT ?`, limit)
}

// Last returns the newest entry. The boolean is false when history is empty.
func (s *Store) Last(ctx context.Context) (Calculation, bool, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` ORDER BY id DESC LIMIT 1`)
	c, err := scanCalculation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Calculation{}, false, nil
	}
	if err != nil {
		return Calculation{}, false, fmt.Errorf("read last calculation: %w", err)
	}
	return c, true, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calculation_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count calculations: %w", err)
	}
	return n, nil
}

func (s *Store) queryCalculations(ctx context.Context, query string, args ...any) ([]Calculation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	calcs := []Calculation{}
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculations: %w", err)
	}
	return calcs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalculation(r rowScanner) (Calculation, error) {
	var (
		c     Calculation
		ts    string
		voice int
	)
	if err := r.Scan(&c.ID, &c.Expression, &c.Result, &ts, &voice); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Calculation{}, err
		}
		return Calculation{}, fmt.Errorf("scan calculation: %w", err)
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return Calculation{}, err
	}
	c.Timestamp = t
	c.VoiceInput = voice != 0
	return c, nil
}
