package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestHistory_EmptyIsNotNil(t *testing.T) {
	s, _ := createTestStore(t)

	history, err := s.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if history == nil {
		t.Error("History() returned nil, want empty slice")
	}
	if len(history) != 0 {
		t.Errorf("len(History()) = %d, want 0", len(history))
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	s, clock := createTestStore(t)
	ctx := context.Background()

	start := clock.Now()
	for i := 1; i <= 3; i++ {
		clock.Advance(time.Minute)
		if _, err := s.AddCalculation(ctx, fmt.Sprintf("%d + 0", i), fmt.Sprint(i), i == 2); err != nil {
			t.Fatalf("AddCalculation() failed: %v", err)
		}
	}

	history, err := s.History(ctx, 0)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}

	want := []Calculation{
		{ID: 3, Expression: "3 + 0", Result: "3", Timestamp: start.Add(3 * time.Minute)},
		{ID: 2, Expression: "2 + 0", Result: "2", Timestamp: start.Add(2 * time.Minute), VoiceInput: true},
		{ID: 1, Expression: "1 + 0", Result: "1", Timestamp: start.Add(time.Minute)},
	}
	if diff := cmp.Diff(want, history); diff != "" {
		t.Errorf("History() mismatch (-want +got):\n%s", diff)
	}
}

func TestHistory_Limit(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.AddCalculation(ctx, "1", "1", false)
	}

	history, err := s.History(ctx, 2)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(History(2)) = %d, want 2", len(history))
	}
	if history[0].ID != 5 || history[1].ID != 4 {
		t.Errorf("History(2) ids = %d, %d; want 5, 4", history[0].ID, history[1].ID)
	}
}

func TestVoiceHistory(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		s.AddCalculation(ctx, fmt.Sprintf("%d", i), fmt.Sprint(i), i%3 != 0)
	}

	voice, err := s.VoiceHistory(ctx, 0)
	if err != nil {
		t.Fatalf("VoiceHistory() failed: %v", err)
	}
	if len(voice) != DefaultVoiceLimit {
		t.Fatalf("len(VoiceHistory(0)) = %d, want %d", len(voice), DefaultVoiceLimit)
	}
	for _, c := range voice {
		if !c.VoiceInput {
			t.Errorf("entry %d is not voice input", c.ID)
		}
	}

	few, err := s.VoiceHistory(ctx, 3)
	if err != nil {
		t.Fatalf("VoiceHistory(3) failed: %v", err)
	}
	if len(few) != 3 || few[0].Result != "14" {
		t.Errorf("VoiceHistory(3) = %+v", few)
	}
}

func TestLast(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Last(ctx)
	if err != nil {
		t.Fatalf("Last() on empty failed: %v", err)
	}
	if ok {
		t.Error("Last() on empty reported ok")
	}

	s.AddCalculation(ctx, "6 * 7", "42", false)
	s.AddCalculation(ctx, "10 / 4", "2.5", true)

	last, ok, err := s.Last(ctx)
	if err != nil || !ok {
		t.Fatalf("Last() = %v, %v", ok, err)
	}
	if last.Entry() != "10 / 4 = 2.5" {
		t.Errorf("Last().Entry() = %q", last.Entry())
	}
}
