package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

// fixedClock returns a constant time, so due comparisons are reproducible.
type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// fakeCardRepo serves cards from memory, ordered by frequency rank like the
// real queries.
type fakeCardRepo struct {
	cards  []*entities.VocabularyCard
	seen   map[int64]bool
	getErr error
}

func (r *fakeCardRepo) GetByID(_ context.Context, cardID int64) (*entities.VocabularyCard, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, c := range r.cards {
		if c.ID == cardID {
			return c, nil
		}
	}
	return nil, ErrCardNotFound
}

func (r *fakeCardRepo) ListUnseenByLevel(_ context.Context, _ uuid.UUID, _ entities.DeckScope, level entities.CEFRLevel, excludeIDs []int64, limit int) ([]*entities.VocabularyCard, error) {
	return r.list(func(c *entities.VocabularyCard) bool { return c.CEFRLevel == level }, excludeIDs, limit), nil
}

func (r *fakeCardRepo) ListUnseen(_ context.Context, _ uuid.UUID, _ entities.DeckScope, excludeIDs []int64, limit int) ([]*entities.VocabularyCard, error) {
	return r.list(func(*entities.VocabularyCard) bool { return true }, excludeIDs, limit), nil
}

func (r *fakeCardRepo) CountUnseen(_ context.Context, _ uuid.UUID, _ entities.DeckScope) (int, error) {
	return len(r.list(func(*entities.VocabularyCard) bool { return true }, nil, len(r.cards))), nil
}

func (r *fakeCardRepo) list(match func(*entities.VocabularyCard) bool, excludeIDs []int64, limit int) []*entities.VocabularyCard {
	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var out []*entities.VocabularyCard
	for _, c := range r.cards {
		if r.seen[c.ID] || excluded[c.ID] || !match(c) {
			continue
		}
		out = append(out, c)
	}
	sortByFrequency(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// fakeProgressRepo persists progress in memory and optionally fails writes.
type fakeProgressRepo struct {
	progress map[int64]*entities.CardProgress // by card ID, single test user
	due      []*entities.CardProgress
	saveErr  error

	savedProgress *entities.CardProgress
	savedRecord   entities.ReviewRecord
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{progress: make(map[int64]*entities.CardProgress)}
}

func (r *fakeProgressRepo) Get(_ context.Context, _ uuid.UUID, cardID int64) (*entities.CardProgress, error) {
	p, ok := r.progress[cardID]
	if !ok {
		return nil, ErrProgressNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProgressRepo) SaveReview(_ context.Context, p *entities.CardProgress, rec entities.ReviewRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *p
	r.progress[p.CardID] = &cp
	r.savedProgress = &cp
	r.savedRecord = rec
	return nil
}

func (r *fakeProgressRepo) ListDue(_ context.Context, _ uuid.UUID, _ entities.DeckScope, now time.Time, limit int) ([]*entities.CardProgress, error) {
	var out []*entities.CardProgress
	for _, p := range r.due {
		if !p.NextReviewAt.After(now) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextReviewAt.Before(out[j].NextReviewAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeProgressRepo) CountDue(_ context.Context, _ uuid.UUID, _ entities.DeckScope, now time.Time) (int, error) {
	n := 0
	for _, p := range r.due {
		if !p.NextReviewAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (r *fakeProgressRepo) Stats(_ context.Context, _ uuid.UUID) (*ProgressStats, error) {
	return &ProgressStats{TotalCards: len(r.progress)}, nil
}

// fakeProfile resolves deck scope and CEFR level from fixed values.
type fakeProfile struct {
	scope entities.DeckScope
	level entities.CEFRLevel
}

func (f fakeProfile) ResolveDeckScope(context.Context, uuid.UUID) (entities.DeckScope, error) {
	return f.scope, nil
}

func (f fakeProfile) CurrentLevel(context.Context, uuid.UUID) (entities.CEFRLevel, error) {
	return f.level, nil
}

func allPublicScope() entities.DeckScope {
	return entities.DeckScope{AllPublic: true, ReviewScope: entities.ReviewAllLearned}
}

func rank(n int) *int { return &n }
