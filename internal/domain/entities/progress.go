package entities

import (
	"time"

	"github.com/google/uuid"
)

// CardState is the lifecycle state of a card within the scheduler.
type CardState string

const (
	StateNew        CardState = "new"        // never studied
	StateLearning   CardState = "learning"   // in the initial learning steps
	StateReview     CardState = "review"     // graduated to long-term review
	StateRelearning CardState = "relearning" // lapsed, relearning
)

// IsValid reports whether s is one of the four card states.
func (s CardState) IsValid() bool {
	switch s {
	case StateNew, StateLearning, StateReview, StateRelearning:
		return true
	}
	return false
}

// ReviewRecord is one entry of the per-card quality history. The log is
// append-only and insertion-ordered; it is never read back by the scheduler,
// only kept for display and analytics.
type ReviewRecord struct {
	ReviewedAt   time.Time `json:"date"`
	Correct      bool      `json:"is_correct"`
	IntervalDays int       `json:"interval"`
	Stability    float64   `json:"stability"`
	Difficulty   float64   `json:"difficulty"`
	State        CardState `json:"state"`
}

// CardProgress is the persisted memory state for one (user, card) pair.
// Exactly one record exists per pair, created lazily on the first review.
type CardProgress struct {
	UserID uuid.UUID
	CardID int64

	State         CardState
	Step          int     // current learning/relearning step, 0 outside those states
	Stability     float64 // memory strength estimate in days, 0 for unseen cards
	Difficulty    float64 // intrinsic difficulty in [1, 10], seeded at first review
	Repetitions   int     // successful reviews
	Lapses        int     // forgotten reviews while in the review state
	ElapsedDays   int     // days since the previous review, at review time
	ScheduledDays int     // interval that was scheduled for this review

	NextReviewAt time.Time  // always set; new cards default to "now"
	LastReviewAt *time.Time // nil before the first review

	TotalReviews int
	CorrectCount int

	History []ReviewRecord

	// Version guards against lost updates on concurrent writes.
	Version int64
}

// NewCardProgress creates a fresh record for a card the user has never
// reviewed. The card is immediately due.
func NewCardProgress(userID uuid.UUID, cardID int64, now time.Time) *CardProgress {
	return &CardProgress{
		UserID:       userID,
		CardID:       cardID,
		State:        StateNew,
		NextReviewAt: now,
	}
}

// AppendHistory appends rec to the quality history, dropping the oldest
// entries once the log exceeds maxEntries. A maxEntries <= 0 disables the cap.
func (p *CardProgress) AppendHistory(rec ReviewRecord, maxEntries int) {
	p.History = append(p.History, rec)
	if maxEntries > 0 && len(p.History) > maxEntries {
		p.History = p.History[len(p.History)-maxEntries:]
	}
}

// Accuracy returns the share of correct reviews as a percentage.
func (p *CardProgress) Accuracy() float64 {
	if p.TotalReviews == 0 {
		return 0
	}
	return float64(p.CorrectCount) / float64(p.TotalReviews) * 100
}
