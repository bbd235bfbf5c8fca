package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

var (
	selTime = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	selUser = uuid.MustParse("8f14a9e2-5a60-4c4f-92fd-6f5b33f1a27e")
)

func newSelector(cards *fakeCardRepo, progress *fakeProgressRepo, level entities.CEFRLevel) *CardSelector {
	return NewCardSelector(
		cards,
		progress,
		fakeProfile{scope: allPublicScope(), level: level},
		fakeProfile{scope: allPublicScope(), level: level},
		fixedClock{now: selTime},
		SelectorPolicy{},
	)
}

func levelCard(id int64, level entities.CEFRLevel, frequencyRank *int) *entities.VocabularyCard {
	return &entities.VocabularyCard{ID: id, CEFRLevel: level, FrequencyRank: frequencyRank}
}

func TestSelectNewCardsSplitsAcrossLevels(t *testing.T) {
	cards := &fakeCardRepo{cards: []*entities.VocabularyCard{
		levelCard(1, entities.LevelB1, rank(10)),
		levelCard(2, entities.LevelB1, rank(20)),
		levelCard(3, entities.LevelB1, rank(30)),
		levelCard(4, entities.LevelB2, rank(5)),
		levelCard(5, entities.LevelB2, rank(15)),
		levelCard(6, entities.LevelB2, rank(25)),
	}}
	sel := newSelector(cards, newFakeProgressRepo(), entities.LevelB1)

	got, err := sel.SelectNewCards(context.Background(), selUser, 4)
	if err != nil {
		t.Fatalf("SelectNewCards: %v", err)
	}

	// ceil(4/2) = 2 from B1, 2 from B2, frequency order within each level.
	want := []int64{1, 2, 4, 5}
	assertIDs(t, got, want)
}

func TestSelectNewCardsOddLimitFavorsCurrentLevel(t *testing.T) {
	cards := &fakeCardRepo{cards: []*entities.VocabularyCard{
		levelCard(1, entities.LevelA1, rank(1)),
		levelCard(2, entities.LevelA1, rank(2)),
		levelCard(3, entities.LevelA1, rank(3)),
		levelCard(4, entities.LevelA2, rank(1)),
		levelCard(5, entities.LevelA2, rank(2)),
	}}
	sel := newSelector(cards, newFakeProgressRepo(), entities.LevelA1)

	got, err := sel.SelectNewCards(context.Background(), selUser, 5)
	if err != nil {
		t.Fatalf("SelectNewCards: %v", err)
	}

	// ceil(5/2) = 3 from A1, floor = 2 from A2.
	assertIDs(t, got, []int64{1, 2, 3, 4, 5})
}

func TestSelectNewCardsFrequencyOrdering(t *testing.T) {
	// Ranks [50, nil, 10] must come back as [10, 50, nil].
	cards := &fakeCardRepo{cards: []*entities.VocabularyCard{
		levelCard(1, entities.LevelA1, rank(50)),
		levelCard(2, entities.LevelA1, nil),
		levelCard(3, entities.LevelA1, rank(10)),
	}}
	sel := newSelector(cards, newFakeProgressRepo(), entities.LevelA1)

	got, err := sel.SelectNewCards(context.Background(), selUser, 3)
	if err != nil {
		t.Fatalf("SelectNewCards: %v", err)
	}

	assertIDs(t, got, []int64{3, 1, 2})
}

func TestSelectNewCardsFallsBackToCurrentLevel(t *testing.T) {
	// Next level is empty: the whole request fills from the current level.
	cards := &fakeCardRepo{cards: []*entities.VocabularyCard{
		levelCard(1, entities.LevelB1, rank(1)),
		levelCard(2, entities.LevelB1, rank(2)),
		levelCard(3, entities.LevelB1, rank(3)),
		levelCard(4, entities.LevelB1, rank(4)),
	}}
	sel := newSelector(cards, newFakeProgressRepo(), entities.LevelB1)

	got, err := sel.SelectNewCards(context.Background(), selUser, 4)
	if err != nil {
		t.Fatalf("SelectNewCards: %v", err)
	}

	assertIDs(t, got, []int64{1, 2, 3, 4})
}

func TestSelectNewCardsFallsBackToAnyLevel(t *testing.T) {
	// Current and next levels are dry: lower-level cards backfill.
	cards := &fakeCardRepo{cards: []*entities.VocabularyCard{
		levelCard(1, entities.LevelA1, rank(1)),
		levelCard(2, entities.LevelA2, rank(1)),
		levelCard(3, entities.LevelB2, rank(1)),
	}}
	sel := newSelector(cards, newFakeProgressRepo(), entities.LevelB2)

	got, err := sel.SelectNewCards(context.Background(), selUser, 3)
	if err != nil {
		t.Fatalf("SelectNewCards: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("got %d cards, want 3", len(got))
	}
	if got[0] != 3 {
		t.Errorf("got[0] = %d, want 3 (current level first)", got[0])
	}
}

func TestSelectNewCardsC2HasNoHigherLevel(t *testing.T) {
	cards := &fakeCardRepo{cards: []*entities.VocabularyCard{
		levelCard(1, entities.LevelC2, rank(1)),
		levelCard(2, entities.LevelC2, rank(2)),
		levelCard(3, entities.LevelC2, rank(3)),
		levelCard(4, entities.LevelC2, rank(4)),
	}}
	sel := newSelector(cards, newFakeProgressRepo(), entities.LevelC2)

	got, err := sel.SelectNewCards(context.Background(), selUser, 4)
	if err != nil {
		t.Fatalf("SelectNewCards: %v", err)
	}

	// The whole budget stays at C2.
	assertIDs(t, got, []int64{1, 2, 3, 4})
}

func TestSelectNewCardsShortSupply(t *testing.T) {
	cards := &fakeCardRepo{cards: []*entities.VocabularyCard{
		levelCard(1, entities.LevelA1, rank(1)),
	}}
	sel := newSelector(cards, newFakeProgressRepo(), entities.LevelA1)

	got, err := sel.SelectNewCards(context.Background(), selUser, 10)
	if err != nil {
		t.Fatalf("SelectNewCards: %v", err)
	}
	assertIDs(t, got, []int64{1})
}

func TestSelectNewCardsValidatesLimit(t *testing.T) {
	sel := newSelector(&fakeCardRepo{}, newFakeProgressRepo(), entities.LevelA1)

	if _, err := sel.SelectNewCards(context.Background(), selUser, -1); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}

	got, err := sel.SelectNewCards(context.Background(), selUser, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("limit 0: got %v, %v; want empty, nil", got, err)
	}
}

func TestSelectDueCardsMostOverdueFirst(t *testing.T) {
	// Cards due on day 1, day 3 and day 2 come back [day1, day2, day3]
	// regardless of store order.
	progress := newFakeProgressRepo()
	progress.due = []*entities.CardProgress{
		dueProgress(10, selTime.Add(-3*24*time.Hour)), // A
		dueProgress(20, selTime.Add(-1*24*time.Hour)), // B
		dueProgress(30, selTime.Add(-2*24*time.Hour)), // C
	}
	sel := newSelector(&fakeCardRepo{}, progress, entities.LevelA1)

	got, err := sel.SelectDueCards(context.Background(), selUser, 10)
	if err != nil {
		t.Fatalf("SelectDueCards: %v", err)
	}

	assertIDs(t, got, []int64{10, 30, 20})
}

func TestSelectDueCardsExcludesFuture(t *testing.T) {
	progress := newFakeProgressRepo()
	progress.due = []*entities.CardProgress{
		dueProgress(1, selTime.Add(-time.Hour)),
		dueProgress(2, selTime.Add(time.Hour)), // not due yet
		dueProgress(3, selTime),                // due exactly now
	}
	sel := newSelector(&fakeCardRepo{}, progress, entities.LevelA1)

	got, err := sel.SelectDueCards(context.Background(), selUser, 10)
	if err != nil {
		t.Fatalf("SelectDueCards: %v", err)
	}

	assertIDs(t, got, []int64{1, 3})
}

func TestSelectDueCardsRespectsLimit(t *testing.T) {
	progress := newFakeProgressRepo()
	for i := int64(1); i <= 5; i++ {
		progress.due = append(progress.due, dueProgress(i, selTime.Add(-time.Duration(i)*time.Hour)))
	}
	sel := newSelector(&fakeCardRepo{}, progress, entities.LevelA1)

	got, err := sel.SelectDueCards(context.Background(), selUser, 2)
	if err != nil {
		t.Fatalf("SelectDueCards: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d cards, want 2", len(got))
	}
}

func dueProgress(cardID int64, due time.Time) *entities.CardProgress {
	return &entities.CardProgress{
		UserID:       selUser,
		CardID:       cardID,
		State:        entities.StateReview,
		NextReviewAt: due,
	}
}

func assertIDs(t *testing.T, got, want []int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
