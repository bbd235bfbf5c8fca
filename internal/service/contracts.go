package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

var (
	// ErrCardNotFound is returned when a referenced vocabulary card does not exist.
	ErrCardNotFound = errors.New("card not found")
	// ErrProgressNotFound is returned by progress lookups for unseen cards.
	ErrProgressNotFound = errors.New("progress not found")
	// ErrValidation is returned for inputs outside their allowed domain.
	ErrValidation = errors.New("invalid input")
	// ErrConflict is returned when a progress write lost a race with a
	// concurrent review of the same card. The submission is safe to retry.
	ErrConflict = errors.New("progress modified concurrently")
)

// Clock supplies the current time so scheduling is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, always in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// CardRepository is the read-only card lookup the core consumes.
type CardRepository interface {
	GetByID(ctx context.Context, cardID int64) (*entities.VocabularyCard, error)
	// ListUnseenByLevel returns cards of the given CEFR level the user has no
	// progress for, within scope, excluding excludeIDs.
	ListUnseenByLevel(ctx context.Context, userID uuid.UUID, scope entities.DeckScope, level entities.CEFRLevel, excludeIDs []int64, limit int) ([]*entities.VocabularyCard, error)
	// ListUnseen is the level-agnostic variant used by the fallback cascade.
	ListUnseen(ctx context.Context, userID uuid.UUID, scope entities.DeckScope, excludeIDs []int64, limit int) ([]*entities.VocabularyCard, error)
	CountUnseen(ctx context.Context, userID uuid.UUID, scope entities.DeckScope) (int, error)
}

// ProgressRepository persists per-(user, card) memory state.
type ProgressRepository interface {
	// Get returns the progress record with its quality history, or
	// ErrProgressNotFound for a card the user has never reviewed.
	Get(ctx context.Context, userID uuid.UUID, cardID int64) (*entities.CardProgress, error)
	// SaveReview persists the updated state and appends rec to the quality
	// history as one atomic unit. A lost update (stale Version) returns
	// ErrConflict without writing anything.
	SaveReview(ctx context.Context, progress *entities.CardProgress, rec entities.ReviewRecord) error
	// ListDue returns progress rows due at or before now, most overdue first.
	ListDue(ctx context.Context, userID uuid.UUID, scope entities.DeckScope, now time.Time, limit int) ([]*entities.CardProgress, error)
	CountDue(ctx context.Context, userID uuid.UUID, scope entities.DeckScope, now time.Time) (int, error)
	Stats(ctx context.Context, userID uuid.UUID) (*ProgressStats, error)
}

// DeckScopeResolver returns the effective deck set a user studies from.
type DeckScopeResolver interface {
	ResolveDeckScope(ctx context.Context, userID uuid.UUID) (entities.DeckScope, error)
}

// LevelResolver reports the learner's current CEFR level, derived elsewhere
// from recent performance.
type LevelResolver interface {
	CurrentLevel(ctx context.Context, userID uuid.UUID) (entities.CEFRLevel, error)
}

// ProgressStats summarizes a user's learning state for overview endpoints.
type ProgressStats struct {
	TotalCards      int
	NewCards        int
	LearningCards   int
	ReviewCards     int
	RelearningCards int
	DueNow          int
	TotalReviews    int
	CorrectReviews  int
	AverageAccuracy float64 // percentage over all reviews
	LastReviewedAt  *time.Time
}
