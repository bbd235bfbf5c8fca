package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

// DefaultCurrentLevelShare is the share of a new-card request drawn from the
// learner's current CEFR level; the rest comes from the next level up (i+1).
// The 50/50 mix and the fallback cascade below are pedagogy, not incidental
// defaults, so they live here as named policy.
const DefaultCurrentLevelShare = 0.5

// SelectorPolicy tunes new-card selection.
type SelectorPolicy struct {
	CurrentLevelShare float64 // in [0, 1]; zero value means DefaultCurrentLevelShare
}

func (p SelectorPolicy) currentLevelShare() float64 {
	if p.CurrentLevelShare <= 0 || p.CurrentLevelShare > 1 {
		return DefaultCurrentLevelShare
	}
	return p.CurrentLevelShare
}

// CardSelector chooses the concrete cards a session will show: unseen cards
// mixed across CEFR levels, and due cards ordered most-overdue first. Both
// queries are read-only and never touch progress state.
type CardSelector struct {
	cardRepo     CardRepository
	progressRepo ProgressRepository
	deckResolver DeckScopeResolver
	levels       LevelResolver
	clock        Clock
	policy       SelectorPolicy
}

// NewCardSelector creates a CardSelector.
func NewCardSelector(
	cardRepo CardRepository,
	progressRepo ProgressRepository,
	deckResolver DeckScopeResolver,
	levels LevelResolver,
	clock Clock,
	policy SelectorPolicy,
) *CardSelector {
	return &CardSelector{
		cardRepo:     cardRepo,
		progressRepo: progressRepo,
		deckResolver: deckResolver,
		levels:       levels,
		clock:        clock,
		policy:       policy,
	}
}

// SelectNewCards returns up to limit unseen card IDs within the user's deck
// scope. The request is split between the learner's current level (i) and
// the next one up (i+1); when a level runs dry the shortfall is filled from
// the current level first, then from any unseen card. Within each level the
// most frequent words come first (unranked cards last).
func (s *CardSelector) SelectNewCards(ctx context.Context, userID uuid.UUID, limit int) ([]int64, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit %d must not be negative", ErrValidation, limit)
	}
	if limit == 0 {
		return nil, nil
	}

	scope, err := s.deckResolver.ResolveDeckScope(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve deck scope: %w", err)
	}

	level, err := s.levels.CurrentLevel(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve level: %w", err)
	}
	nextLevel := level.Next()

	currentLimit := int(math.Ceil(float64(limit) * s.policy.currentLevelShare()))
	nextLimit := limit - currentLimit

	current, err := s.cardRepo.ListUnseenByLevel(ctx, userID, scope, level, nil, currentLimit)
	if err != nil {
		return nil, fmt.Errorf("list unseen cards for level %s: %w", level, err)
	}
	sortByFrequency(current)

	// At C2 there is no i+1; the whole budget stays at the current level.
	var higher []*entities.VocabularyCard
	if nextLevel != level && nextLimit > 0 {
		higher, err = s.cardRepo.ListUnseenByLevel(ctx, userID, scope, nextLevel, nil, nextLimit)
		if err != nil {
			return nil, fmt.Errorf("list unseen cards for level %s: %w", nextLevel, err)
		}
		sortByFrequency(higher)
	}

	cards := append(current, higher...)

	// Fallback: top up from the current level.
	if len(cards) < limit {
		more, err := s.cardRepo.ListUnseenByLevel(ctx, userID, scope, level, cardIDs(cards), limit-len(cards))
		if err != nil {
			return nil, fmt.Errorf("backfill from level %s: %w", level, err)
		}
		sortByFrequency(more)
		cards = append(cards, more...)
	}

	// Fallback: any unseen card in scope.
	if len(cards) < limit {
		more, err := s.cardRepo.ListUnseen(ctx, userID, scope, cardIDs(cards), limit-len(cards))
		if err != nil {
			return nil, fmt.Errorf("backfill from any level: %w", err)
		}
		sortByFrequency(more)
		cards = append(cards, more...)
	}

	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cardIDs(cards), nil
}

// SelectDueCards returns up to limit card IDs whose next review is at or
// before now, most overdue first. The deck scope applies unless the user's
// review scope is "all learned", which the repository honors via the scope.
func (s *CardSelector) SelectDueCards(ctx context.Context, userID uuid.UUID, limit int) ([]int64, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit %d must not be negative", ErrValidation, limit)
	}
	if limit == 0 {
		return nil, nil
	}

	scope, err := s.deckResolver.ResolveDeckScope(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve deck scope: %w", err)
	}

	due, err := s.progressRepo.ListDue(ctx, userID, scope, s.clock.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("list due cards: %w", err)
	}

	// The ordering is part of the contract, not a storage detail.
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextReviewAt.Before(due[j].NextReviewAt)
	})

	ids := make([]int64, 0, len(due))
	for _, p := range due {
		ids = append(ids, p.CardID)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// sortByFrequency orders cards by frequency rank ascending with unranked
// cards last, preserving input order among equals.
func sortByFrequency(cards []*entities.VocabularyCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		ri, rj := cards[i].FrequencyRank, cards[j].FrequencyRank
		switch {
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return *ri < *rj
		}
	})
}

func cardIDs(cards []*entities.VocabularyCard) []int64 {
	ids := make([]int64, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}
