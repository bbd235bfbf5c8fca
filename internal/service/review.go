package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
	"github.com/vocadrill/vocadrill/internal/fsrs"
)

// DefaultHistoryMaxEntries caps the per-card quality history at the most
// recent entries. The scheduler never reads the history back; it exists for
// display and analytics, so old entries can be dropped.
const DefaultHistoryMaxEntries = 500

// ReviewService orchestrates a single review event: load or create the
// progress record, run the scheduler, persist the result together with the
// quality-history entry, and return the updated state.
type ReviewService struct {
	cardRepo     CardRepository
	progressRepo ProgressRepository
	scheduler    *fsrs.Scheduler
	clock        Clock
	logger       *zap.Logger
	historyMax   int
}

// NewReviewService creates a ReviewService.
func NewReviewService(
	cardRepo CardRepository,
	progressRepo ProgressRepository,
	scheduler *fsrs.Scheduler,
	clock Clock,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		cardRepo:     cardRepo,
		progressRepo: progressRepo,
		scheduler:    scheduler,
		clock:        clock,
		logger:       logger,
		historyMax:   DefaultHistoryMaxEntries,
	}
}

// ratingFor maps the binary product signal onto the FSRS scale. A hint
// downgrades a correct answer to Hard: same direction as Good, smaller
// stability gain.
func ratingFor(isCorrect, hintUsed bool) entities.Rating {
	switch {
	case !isCorrect:
		return entities.RatingAgain
	case hintUsed:
		return entities.RatingHard
	default:
		return entities.RatingGood
	}
}

// ProcessReview applies one review for (userID, cardID). Missing progress is
// expected and self-heals into a fresh record; a missing card is an error.
// Writes are atomic: either the new state and its history entry are both
// persisted, or neither is. Conflicts with a concurrent review of the same
// card surface as ErrConflict without retrying — the caller may resubmit.
func (s *ReviewService) ProcessReview(ctx context.Context, userID uuid.UUID, cardID int64, isCorrect, hintUsed bool) (*entities.CardProgress, error) {
	if _, err := s.cardRepo.GetByID(ctx, cardID); err != nil {
		return nil, fmt.Errorf("look up card %d: %w", cardID, err)
	}

	now := s.clock.Now()

	progress, err := s.progressRepo.Get(ctx, userID, cardID)
	if err != nil {
		if !errors.Is(err, ErrProgressNotFound) {
			return nil, fmt.Errorf("load progress: %w", err)
		}
		progress = entities.NewCardProgress(userID, cardID, now)
	}

	rating := ratingFor(isCorrect, hintUsed)
	updated := s.scheduler.Schedule(*progress, rating, now)

	updated.TotalReviews++
	if rating.Success() {
		updated.CorrectCount++
	}

	rec := entities.ReviewRecord{
		ReviewedAt:   now,
		Correct:      rating.Success(),
		IntervalDays: updated.ScheduledDays,
		Stability:    updated.Stability,
		Difficulty:   updated.Difficulty,
		State:        updated.State,
	}
	updated.AppendHistory(rec, s.historyMax)

	if err := s.progressRepo.SaveReview(ctx, &updated, rec); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	s.logger.Debug("review processed",
		zap.String("user_id", userID.String()),
		zap.Int64("card_id", cardID),
		zap.String("rating", rating.String()),
		zap.String("state", string(updated.State)),
		zap.Int("scheduled_days", updated.ScheduledDays),
		zap.Time("next_review_at", updated.NextReviewAt),
	)

	return &updated, nil
}
