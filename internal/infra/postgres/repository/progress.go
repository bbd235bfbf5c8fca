package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
	"github.com/vocadrill/vocadrill/internal/infra/postgres"
	"github.com/vocadrill/vocadrill/internal/service"
)

// ProgressRepository provides access to user card progress in the database.
// Review writes go through a transaction so the state row and the review-log
// entry stay consistent; lost updates are detected with a version column.
type ProgressRepository struct {
	db         postgres.DBTX
	transactor *postgres.Transactor
	historyMax int
}

// NewProgressRepository creates a ProgressRepository. historyMax bounds the
// retained review-log entries per card; values <= 0 disable trimming.
func NewProgressRepository(db postgres.DBTX, transactor *postgres.Transactor, historyMax int) *ProgressRepository {
	return &ProgressRepository{db: db, transactor: transactor, historyMax: historyMax}
}

const progressColumns = `
	user_id, card_id, state, step, stability, difficulty, repetitions, lapses,
	elapsed_days, scheduled_days, next_review_at, last_review_at,
	total_reviews, correct_count, version
`

// Get returns the progress record for (userID, cardID) including its quality
// history, or service.ErrProgressNotFound.
func (r *ProgressRepository) Get(ctx context.Context, userID uuid.UUID, cardID int64) (*entities.CardProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_card_progress
		WHERE user_id = $1 AND card_id = $2
	`

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID, cardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProgressNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}

	history, err := r.loadHistory(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	p.History = history

	return p, nil
}

// SaveReview persists the updated state and appends the review-log entry in
// one transaction. A stale Version means a concurrent review won the race;
// nothing is written and service.ErrConflict is returned.
func (r *ProgressRepository) SaveReview(ctx context.Context, p *entities.CardProgress, rec entities.ReviewRecord) error {
	return r.transactor.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := r.writeState(ctx, tx, p); err != nil {
			return err
		}

		insertLog := `
			INSERT INTO review_log (user_id, card_id, reviewed_at, is_correct, interval_days, stability, difficulty, state)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.Exec(ctx, insertLog,
			p.UserID, p.CardID, rec.ReviewedAt, rec.Correct,
			rec.IntervalDays, rec.Stability, rec.Difficulty, rec.State,
		); err != nil {
			return fmt.Errorf("append review log: %w", err)
		}

		if r.historyMax > 0 {
			trim := `
				DELETE FROM review_log
				WHERE user_id = $1 AND card_id = $2 AND id NOT IN (
					SELECT id FROM review_log
					WHERE user_id = $1 AND card_id = $2
					ORDER BY reviewed_at DESC, id DESC
					LIMIT $3
				)
			`
			if _, err := tx.Exec(ctx, trim, p.UserID, p.CardID, r.historyMax); err != nil {
				return fmt.Errorf("trim review log: %w", err)
			}
		}

		return nil
	})
}

// writeState inserts a first-review record or updates an existing one with
// an optimistic version check.
func (r *ProgressRepository) writeState(ctx context.Context, tx pgx.Tx, p *entities.CardProgress) error {
	if p.Version == 0 {
		insert := `
			INSERT INTO user_card_progress (
				user_id, card_id, state, step, stability, difficulty, repetitions, lapses,
				elapsed_days, scheduled_days, next_review_at, last_review_at,
				total_reviews, correct_count, version
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
			ON CONFLICT (user_id, card_id) DO NOTHING
		`
		tag, err := tx.Exec(ctx, insert,
			p.UserID, p.CardID, p.State, p.Step, p.Stability, p.Difficulty,
			p.Repetitions, p.Lapses, p.ElapsedDays, p.ScheduledDays,
			p.NextReviewAt, p.LastReviewAt, p.TotalReviews, p.CorrectCount,
		)
		if err != nil {
			return fmt.Errorf("insert progress: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Another review created the row while we were computing.
			return service.ErrConflict
		}
		p.Version = 1
		return nil
	}

	update := `
		UPDATE user_card_progress SET
			state = $3, step = $4, stability = $5, difficulty = $6,
			repetitions = $7, lapses = $8, elapsed_days = $9, scheduled_days = $10,
			next_review_at = $11, last_review_at = $12,
			total_reviews = $13, correct_count = $14,
			version = version + 1, updated_at = NOW()
		WHERE user_id = $1 AND card_id = $2 AND version = $15
	`
	tag, err := tx.Exec(ctx, update,
		p.UserID, p.CardID, p.State, p.Step, p.Stability, p.Difficulty,
		p.Repetitions, p.Lapses, p.ElapsedDays, p.ScheduledDays,
		p.NextReviewAt, p.LastReviewAt, p.TotalReviews, p.CorrectCount,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrConflict
	}
	p.Version++
	return nil
}

// ListDue returns progress rows due at or before now, most overdue first.
// The deck filter applies only when the user reviews selected decks only.
func (r *ProgressRepository) ListDue(ctx context.Context, userID uuid.UUID, scope entities.DeckScope, now time.Time, limit int) ([]*entities.CardProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_card_progress p
		WHERE p.user_id = $1 AND p.next_review_at <= $2
	`
	args := []any{userID, now}

	if cond, condArgs := dueDeckFilter(scope, len(args)); cond != "" {
		query += cond
		args = append(args, condArgs...)
	}

	query += fmt.Sprintf(" ORDER BY p.next_review_at ASC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list due progress: %w", err)
	}
	defer rows.Close()

	var out []*entities.CardProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountDue counts cards due at or before now under the same scope rules as
// ListDue.
func (r *ProgressRepository) CountDue(ctx context.Context, userID uuid.UUID, scope entities.DeckScope, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM user_card_progress p
		WHERE p.user_id = $1 AND p.next_review_at <= $2
	`
	args := []any{userID, now}

	if cond, condArgs := dueDeckFilter(scope, len(args)); cond != "" {
		query += cond
		args = append(args, condArgs...)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count due progress: %w", err)
	}
	return count, nil
}

// Stats aggregates per-state counts, due-now count, and overall accuracy.
func (r *ProgressRepository) Stats(ctx context.Context, userID uuid.UUID) (*service.ProgressStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE state = 'new') AS new_count,
			COUNT(*) FILTER (WHERE state = 'learning') AS learning_count,
			COUNT(*) FILTER (WHERE state = 'review') AS review_count,
			COUNT(*) FILTER (WHERE state = 'relearning') AS relearning_count,
			COUNT(*) FILTER (WHERE next_review_at <= NOW()) AS due_now,
			COALESCE(SUM(total_reviews), 0) AS total_reviews,
			COALESCE(SUM(correct_count), 0) AS correct_reviews,
			MAX(last_review_at) AS last_reviewed_at
		FROM user_card_progress
		WHERE user_id = $1
	`

	var stats service.ProgressStats
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&stats.TotalCards,
		&stats.NewCards,
		&stats.LearningCards,
		&stats.ReviewCards,
		&stats.RelearningCards,
		&stats.DueNow,
		&stats.TotalReviews,
		&stats.CorrectReviews,
		&stats.LastReviewedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	if stats.TotalReviews > 0 {
		stats.AverageAccuracy = float64(stats.CorrectReviews) / float64(stats.TotalReviews) * 100
		if stats.AverageAccuracy > 100 {
			stats.AverageAccuracy = 100
		}
	}

	return &stats, nil
}

// dueDeckFilter builds the deck restriction for due queries. Reviewing all
// learned cards, or studying all public decks, means no filter.
func dueDeckFilter(scope entities.DeckScope, argOffset int) (string, []any) {
	if scope.ReviewScope == entities.ReviewAllLearned || scope.AllPublic {
		return "", nil
	}
	cond := fmt.Sprintf(`
		AND EXISTS (
			SELECT 1 FROM vocabulary_cards c
			WHERE c.id = p.card_id AND c.deck_id = ANY($%d)
		)
	`, argOffset+1)
	return cond, []any{scope.DeckIDs}
}

func (r *ProgressRepository) loadHistory(ctx context.Context, userID uuid.UUID, cardID int64) ([]entities.ReviewRecord, error) {
	query := `
		SELECT reviewed_at, is_correct, interval_days, stability, difficulty, state
		FROM review_log
		WHERE user_id = $1 AND card_id = $2
		ORDER BY reviewed_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, userID, cardID)
	if err != nil {
		return nil, fmt.Errorf("load review log: %w", err)
	}
	defer rows.Close()

	var history []entities.ReviewRecord
	for rows.Next() {
		var rec entities.ReviewRecord
		var state string
		if err := rows.Scan(&rec.ReviewedAt, &rec.Correct, &rec.IntervalDays, &rec.Stability, &rec.Difficulty, &state); err != nil {
			return nil, fmt.Errorf("scan review log: %w", err)
		}
		rec.State = entities.CardState(state)
		history = append(history, rec)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*entities.CardProgress, error) {
	var p entities.CardProgress
	var state string
	err := row.Scan(
		&p.UserID,
		&p.CardID,
		&state,
		&p.Step,
		&p.Stability,
		&p.Difficulty,
		&p.Repetitions,
		&p.Lapses,
		&p.ElapsedDays,
		&p.ScheduledDays,
		&p.NextReviewAt,
		&p.LastReviewAt,
		&p.TotalReviews,
		&p.CorrectCount,
		&p.Version,
	)
	if err != nil {
		return nil, err
	}
	p.State = entities.CardState(state)
	return &p, nil
}
