package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

// DueCardSummary is one row of the study overview: a card waiting for review.
type DueCardSummary struct {
	CardID       int64
	NextReviewAt time.Time
	State        entities.CardState
}

// StudyOverview aggregates what the user could study right now.
type StudyOverview struct {
	NewAvailable   int
	ReviewDue      int
	TotalAvailable int
	DueCards       []DueCardSummary
}

// ProgressService exposes read-only progress reporting for overview and
// stats endpoints. It never mutates card state.
type ProgressService struct {
	progressRepo ProgressRepository
	cardRepo     CardRepository
	deckResolver DeckScopeResolver
	clock        Clock
}

// NewProgressService creates a ProgressService.
func NewProgressService(
	progressRepo ProgressRepository,
	cardRepo CardRepository,
	deckResolver DeckScopeResolver,
	clock Clock,
) *ProgressService {
	return &ProgressService{
		progressRepo: progressRepo,
		cardRepo:     cardRepo,
		deckResolver: deckResolver,
		clock:        clock,
	}
}

// Stats returns per-state card counts and overall accuracy for the user.
func (s *ProgressService) Stats(ctx context.Context, userID uuid.UUID) (*ProgressStats, error) {
	stats, err := s.progressRepo.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

// Overview returns availability counts plus the most overdue cards, capped
// at limit.
func (s *ProgressService) Overview(ctx context.Context, userID uuid.UUID, limit int) (*StudyOverview, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit %d must not be negative", ErrValidation, limit)
	}

	scope, err := s.deckResolver.ResolveDeckScope(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve deck scope: %w", err)
	}

	now := s.clock.Now()

	newAvailable, err := s.cardRepo.CountUnseen(ctx, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("count unseen cards: %w", err)
	}
	reviewDue, err := s.progressRepo.CountDue(ctx, userID, scope, now)
	if err != nil {
		return nil, fmt.Errorf("count due cards: %w", err)
	}

	due, err := s.progressRepo.ListDue(ctx, userID, scope, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due cards: %w", err)
	}

	summaries := make([]DueCardSummary, 0, len(due))
	for _, p := range due {
		summaries = append(summaries, DueCardSummary{
			CardID:       p.CardID,
			NextReviewAt: p.NextReviewAt,
			State:        p.State,
		})
	}

	return &StudyOverview{
		NewAvailable:   newAvailable,
		ReviewDue:      reviewDue,
		TotalAvailable: newAvailable + reviewDue,
		DueCards:       summaries,
	}, nil
}
