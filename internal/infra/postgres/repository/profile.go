package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
	"github.com/vocadrill/vocadrill/internal/infra/postgres"
)

// ProfileRepository reads the per-user study settings that drive deck
// scoping and new-card leveling. It backs both the DeckScopeResolver and
// LevelResolver contracts.
type ProfileRepository struct {
	db postgres.DBTX
}

func NewProfileRepository(db postgres.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ResolveDeckScope returns the user's effective deck scope. Users without a
// profile study all public decks and review everything they have learned.
func (r *ProfileRepository) ResolveDeckScope(ctx context.Context, userID uuid.UUID) (entities.DeckScope, error) {
	query := `
		SELECT select_all_decks, review_scope
		FROM profiles
		WHERE user_id = $1
	`

	scope := entities.DeckScope{AllPublic: true, ReviewScope: entities.ReviewAllLearned}

	var reviewScope string
	err := r.db.QueryRow(ctx, query, userID).Scan(&scope.AllPublic, &reviewScope)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scope, nil
		}
		return entities.DeckScope{}, fmt.Errorf("get profile: %w", err)
	}
	scope.ReviewScope = entities.ReviewScope(reviewScope)

	if !scope.AllPublic {
		ids, err := r.selectedDeckIDs(ctx, userID)
		if err != nil {
			return entities.DeckScope{}, err
		}
		scope.DeckIDs = ids
	}

	return scope, nil
}

// CurrentLevel returns the learner's CEFR level as derived from recent
// performance and stored on the profile. Missing or invalid values fall
// back to A1.
func (r *ProfileRepository) CurrentLevel(ctx context.Context, userID uuid.UUID) (entities.CEFRLevel, error) {
	query := `
		SELECT cefr_level
		FROM profiles
		WHERE user_id = $1
	`

	var level string
	err := r.db.QueryRow(ctx, query, userID).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entities.LevelA1, nil
		}
		return "", fmt.Errorf("get profile level: %w", err)
	}

	l := entities.CEFRLevel(level)
	if !l.IsValid() {
		return entities.LevelA1, nil
	}
	return l, nil
}

func (r *ProfileRepository) selectedDeckIDs(ctx context.Context, userID uuid.UUID) ([]int64, error) {
	query := `
		SELECT deck_id
		FROM user_selected_decks
		WHERE user_id = $1
		ORDER BY deck_id
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list selected decks: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan selected deck: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
