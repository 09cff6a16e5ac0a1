package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeLayout is the stored timestamp format. Fixed-width fractional
// seconds keep the column lexically sortable.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// ErrEmptyCalculation is returned when an expression or result is blank.
var ErrEmptyCalculation = errors.New("expression and result are required")

// AddCalculation records a calculation and prunes the oldest rows beyond
// MaxEntries in the same transaction. It returns the new row's ID.
func (s *Store) AddCalculation(ctx context.Context, expression, result string, voice bool) (int64, error) {
	if strings.TrimSpace(expression) == "" || strings.TrimSpace(result) == "" {
		return 0, fmt.Errorf("add calculation: %w", ErrEmptyCalculation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add calculation: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO calculation_history (expression, result, timestamp, voice_input)
		VALUES (?, ?, ?, ?)
	`,
		expression,
		result,
		s.clock.Now().UTC().Format(timeLayout),
		boolToInt(voice),
	)
	if err != nil {
		return 0, fmt.Errorf("add calculation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add calculation: last insert id: %w", err)
	}

	// Keep the newest maxEntries rows. AUTOINCREMENT ids never go backwards,
	// so id order is insertion order even if the wall clock does. The row
	// inserted above has the highest id and always survives.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM calculation_history
		WHERE id NOT IN (
			SELECT id FROM calculation_history
			ORDER BY id DESC
			LIMIT ?
		)
	`, s.maxEntries)
	if err != nil {
		return 0, fmt.Errorf("add calculation: prune: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add calculation: commit: %w", err)
	}
	return id, nil
}

// DeleteCalculation removes one history entry. It reports whether a row
// was deleted.
func (s *Store) DeleteCalculation(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calculation_history WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete calculation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete calculation: rows affected: %w", err)
	}
	return n > 0, nil
}

// ClearHistory removes every history entry and returns how many were
// deleted.
func (s *Store) ClearHistory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calculation_history`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear history: rows affected: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
