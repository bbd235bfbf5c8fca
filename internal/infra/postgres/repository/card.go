package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
	"github.com/vocadrill/vocadrill/internal/infra/postgres"
	"github.com/vocadrill/vocadrill/internal/service"
)

// CardRepository provides read-only access to vocabulary cards. The core
// never writes cards; authoring lives outside this service.
type CardRepository struct {
	db postgres.DBTX
}

func NewCardRepository(db postgres.DBTX) *CardRepository {
	return &CardRepository{db: db}
}

// GetByID returns a card or service.ErrCardNotFound.
func (r *CardRepository) GetByID(ctx context.Context, cardID int64) (*entities.VocabularyCard, error) {
	query := `
		SELECT id, deck_id, cefr_level, frequency_rank
		FROM vocabulary_cards
		WHERE id = $1
	`

	var c entities.VocabularyCard
	var level string
	err := r.db.QueryRow(ctx, query, cardID).Scan(&c.ID, &c.DeckID, &level, &c.FrequencyRank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCardNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	c.CEFRLevel = entities.CEFRLevel(level)
	return &c, nil
}

// ListUnseenByLevel returns cards of one CEFR level the user has never
// reviewed, within scope, most frequent words first (unranked last).
func (r *CardRepository) ListUnseenByLevel(ctx context.Context, userID uuid.UUID, scope entities.DeckScope, level entities.CEFRLevel, excludeIDs []int64, limit int) ([]*entities.VocabularyCard, error) {
	q := newUnseenQuery(userID, scope)
	q.where(fmt.Sprintf("c.cefr_level = $%d", q.bind(string(level))))
	if len(excludeIDs) > 0 {
		q.where(fmt.Sprintf("NOT (c.id = ANY($%d))", q.bind(excludeIDs)))
	}
	return r.queryCards(ctx, q.selectSQL(limit), q.args)
}

// ListUnseen is the level-agnostic variant used by the fallback cascade.
func (r *CardRepository) ListUnseen(ctx context.Context, userID uuid.UUID, scope entities.DeckScope, excludeIDs []int64, limit int) ([]*entities.VocabularyCard, error) {
	q := newUnseenQuery(userID, scope)
	if len(excludeIDs) > 0 {
		q.where(fmt.Sprintf("NOT (c.id = ANY($%d))", q.bind(excludeIDs)))
	}
	return r.queryCards(ctx, q.selectSQL(limit), q.args)
}

// CountUnseen counts unseen cards in scope.
func (r *CardRepository) CountUnseen(ctx context.Context, userID uuid.UUID, scope entities.DeckScope) (int, error) {
	q := newUnseenQuery(userID, scope)

	var count int
	if err := r.db.QueryRow(ctx, q.countSQL(), q.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unseen cards: %w", err)
	}
	return count, nil
}

func (r *CardRepository) queryCards(ctx context.Context, query string, args []any) ([]*entities.VocabularyCard, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []*entities.VocabularyCard
	for rows.Next() {
		var c entities.VocabularyCard
		var level string
		if err := rows.Scan(&c.ID, &c.DeckID, &level, &c.FrequencyRank); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.CEFRLevel = entities.CEFRLevel(level)
		cards = append(cards, &c)
	}
	return cards, rows.Err()
}

// unseenQuery accumulates the shared WHERE clauses of the unseen-card
// queries: no progress row for this user, and the deck-scope restriction.
type unseenQuery struct {
	conds []string
	args  []any
}

func newUnseenQuery(userID uuid.UUID, scope entities.DeckScope) *unseenQuery {
	q := &unseenQuery{}

	user := q.bind(userID)
	q.where(fmt.Sprintf(`NOT EXISTS (
		SELECT 1 FROM user_card_progress p
		WHERE p.user_id = $%d AND p.card_id = c.id
	)`, user))

	if scope.AllPublic {
		// All public decks plus the user's own; deckless cards stay visible.
		q.where(fmt.Sprintf(`(c.deck_id IS NULL OR EXISTS (
			SELECT 1 FROM decks d
			WHERE d.id = c.deck_id AND (d.is_public OR d.owner_id = $%d)
		))`, user))
	} else {
		q.where(fmt.Sprintf("c.deck_id = ANY($%d)", q.bind(scope.DeckIDs)))
	}

	return q
}

// bind appends arg and returns its 1-based placeholder index.
func (q *unseenQuery) bind(arg any) int {
	q.args = append(q.args, arg)
	return len(q.args)
}

func (q *unseenQuery) where(cond string) {
	q.conds = append(q.conds, cond)
}

func (q *unseenQuery) whereSQL() string {
	sql := ""
	for i, c := range q.conds {
		if i == 0 {
			sql += "WHERE " + c
		} else {
			sql += "\n  AND " + c
		}
	}
	return sql
}

func (q *unseenQuery) selectSQL(limit int) string {
	return fmt.Sprintf(`
		SELECT c.id, c.deck_id, c.cefr_level, c.frequency_rank
		FROM vocabulary_cards c
		%s
		ORDER BY c.frequency_rank ASC NULLS LAST, c.id ASC
		LIMIT $%d
	`, q.whereSQL(), q.bind(limit))
}

func (q *unseenQuery) countSQL() string {
	return fmt.Sprintf(`
		SELECT COUNT(*)
		FROM vocabulary_cards c
		%s
	`, q.whereSQL())
}
