package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAddCalculation_Basic(t *testing.T) {
	s, clock := createTestStore(t)
	ctx := context.Background()

	id, err := s.AddCalculation(ctx, "2 + 2", "4", true)
	if err != nil {
		t.Fatalf("AddCalculation() failed: %v", err)
	}
	if id <= 0 {
		t.Errorf("id = %d, want > 0", id)
	}

	var expr, result, ts string
	var voice int
	err = s.db.QueryRow(`
		SELECT expression, result, timestamp, voice_input
		FROM calculation_history WHERE id = ?
	`, id).Scan(&expr, &result, &ts, &voice)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if expr != "2 + 2" || result != "4" {
		t.Errorf("stored %q = %q, want \"2 + 2\" = \"4\"", expr, result)
	}
	if voice != 1 {
		t.Errorf("voice_input = %d, want 1", voice)
	}
	if want := clock.Now().UTC().Format(timeLayout); ts != want {
		t.Errorf("timestamp = %q, want %q", ts, want)
	}
}

func TestAddCalculation_IDsIncrease(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		id, err := s.AddCalculation(ctx, fmt.Sprintf("%d + 1", i), fmt.Sprint(i+1), false)
		if err != nil {
			t.Fatalf("AddCalculation() failed: %v", err)
		}
		if id <= prev {
			t.Errorf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestAddCalculation_PrunesOldest(t *testing.T) {
	s, clock := createTestStore(t, WithMaxEntries(3))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		clock.Advance(time.Second)
		if _, err := s.AddCalculation(ctx, fmt.Sprintf("%d * 1", i), fmt.Sprint(i), false); err != nil {
			t.Fatalf("AddCalculation(%d) failed: %v", i, err)
		}

		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count() failed: %v", err)
		}
		if n > 3 {
			t.Fatalf("after insert %d: count = %d, exceeds cap 3", i, n)
		}
	}

	history, err := s.History(ctx, 0)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	got := make([]string, len(history))
	for i, c := range history {
		got[i] = c.Result
	}
	want := []string{"5", "4", "3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("kept results = %v, want %v", got, want)
	}
}

func TestAddCalculation_ClockGoingBackwardsKeepsNewest(t *testing.T) {
	s, clock := createTestStore(t, WithMaxEntries(2))
	ctx := context.Background()

	s.AddCalculation(ctx, "1", "1", false)
	clock.Advance(-time.Hour)
	s.AddCalculation(ctx, "2", "2", false)
	clock.Advance(-time.Hour)
	s.AddCalculation(ctx, "3", "3", false)

	last, ok, err := s.Last(ctx)
	if err != nil || !ok {
		t.Fatalf("Last() = %v, %v", ok, err)
	}
	if last.Result != "3" {
		t.Errorf("Last().Result = %q, want \"3\"", last.Result)
	}
}

func TestAddCalculation_RejectsEmpty(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	cases := [][2]string{{"", "4"}, {"2 + 2", ""}, {"  ", " "}}
	for _, c := range cases {
		_, err := s.AddCalculation(ctx, c[0], c[1], false)
		if !errors.Is(err, ErrEmptyCalculation) {
			t.Errorf("AddCalculation(%q, %q) error = %v, want ErrEmptyCalculation", c[0], c[1], err)
		}
	}
}

func TestDeleteCalculation(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	id, err := s.AddCalculation(ctx, "3 - 1", "2", false)
	if err != nil {
		t.Fatalf("AddCalculation() failed: %v", err)
	}

	deleted, err := s.DeleteCalculation(ctx, id)
	if err != nil {
		t.Fatalf("DeleteCalculation() failed: %v", err)
	}
	if !deleted {
		t.Error("DeleteCalculation() = false, want true")
	}

	deleted, err = s.DeleteCalculation(ctx, id)
	if err != nil {
		t.Fatalf("second DeleteCalculation() failed: %v", err)
	}
	if deleted {
		t.Error("second DeleteCalculation() = true, want false")
	}
}

func TestClearHistory(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := s.AddCalculation(ctx, "1 + 1", "2", i%2 == 0); err != nil {
			t.Fatalf("AddCalculation() failed: %v", err)
		}
	}

	n, err := s.ClearHistory(ctx)
	if err != nil {
		t.Fatalf("ClearHistory() failed: %v", err)
	}
	if n != 4 {
		t.Errorf("ClearHistory() = %d, want 4", n)
	}

	count, _ := s.Count(ctx)
	if count != 0 {
		t.Errorf("count after clear = %d, want 0", count)
	}

	n, err = s.ClearHistory(ctx)
	if err != nil || n != 0 {
		t.Errorf("ClearHistory() on empty = %d, %v; want 0, nil", n, err)
	}
}
