package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewCardProgressIsImmediatelyDue(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	p := NewCardProgress(uuid.New(), 42, now)

	if p.State != StateNew {
		t.Errorf("State = %v, want new", p.State)
	}
	if !p.NextReviewAt.Equal(now) {
		t.Errorf("NextReviewAt = %v, want %v", p.NextReviewAt, now)
	}
	if p.LastReviewAt != nil {
		t.Errorf("LastReviewAt = %v, want nil", p.LastReviewAt)
	}
}

func TestAppendHistoryCap(t *testing.T) {
	var p CardProgress
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		p.AppendHistory(ReviewRecord{ReviewedAt: base.Add(time.Duration(i) * time.Hour)}, 5)
	}

	if len(p.History) != 5 {
		t.Fatalf("history length = %d, want 5", len(p.History))
	}
	// The oldest entries are dropped, not the newest.
	if want := base.Add(2 * time.Hour); !p.History[0].ReviewedAt.Equal(want) {
		t.Errorf("History[0].ReviewedAt = %v, want %v", p.History[0].ReviewedAt, want)
	}
	if want := base.Add(6 * time.Hour); !p.History[4].ReviewedAt.Equal(want) {
		t.Errorf("History[4].ReviewedAt = %v, want %v", p.History[4].ReviewedAt, want)
	}
}

func TestAppendHistoryUncapped(t *testing.T) {
	var p CardProgress
	for i := 0; i < 10; i++ {
		p.AppendHistory(ReviewRecord{}, 0)
	}
	if len(p.History) != 10 {
		t.Errorf("history length = %d, want 10", len(p.History))
	}
}

func TestAccuracy(t *testing.T) {
	p := CardProgress{TotalReviews: 8, CorrectCount: 6}
	if got := p.Accuracy(); got != 75 {
		t.Errorf("Accuracy = %v, want 75", got)
	}

	var empty CardProgress
	if got := empty.Accuracy(); got != 0 {
		t.Errorf("Accuracy with no reviews = %v, want 0", got)
	}
}

func TestCEFRLevelNext(t *testing.T) {
	tests := []struct {
		level CEFRLevel
		want  CEFRLevel
	}{
		{LevelA1, LevelA2},
		{LevelA2, LevelB1},
		{LevelB1, LevelB2},
		{LevelB2, LevelC1},
		{LevelC1, LevelC2},
		{LevelC2, LevelC2}, // no i+1 above C2
		{CEFRLevel("??"), LevelA1},
	}

	for _, tt := range tests {
		if got := tt.level.Next(); got != tt.want {
			t.Errorf("%s.Next() = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestRatingSuccess(t *testing.T) {
	if RatingAgain.Success() {
		t.Error("Again should not count as success")
	}
	for _, r := range []Rating{RatingHard, RatingGood, RatingEasy} {
		if !r.Success() {
			t.Errorf("%v should count as success", r)
		}
	}
}
