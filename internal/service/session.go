package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

// SessionPolicy carries the product limits around session sizing. These come
// from configuration, not code, so deployments can tune them.
type SessionPolicy struct {
	// MaxNewPerSession and MaxReviewPerSession cap how many cards of each
	// kind a single session may contain.
	MaxNewPerSession    int
	MaxReviewPerSession int
	// MinNewShare, when positive, guarantees new material at least this share
	// of the session by capping the review ratio at 1 - MinNewShare.
	MinNewShare float64
}

// DefaultSessionPolicy mirrors the product defaults: at most 50 new and 100
// review cards per session, with a quarter of the session kept for new words.
func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{
		MaxNewPerSession:    50,
		MaxReviewPerSession: 100,
		MinNewShare:         0.25,
	}
}

// effectiveRatio applies the minimum-new-share guarantee to a requested
// review ratio.
func (p SessionPolicy) effectiveRatio(reviewRatio float64) float64 {
	if p.MinNewShare <= 0 {
		return reviewRatio
	}
	if maxRatio := 1 - p.MinNewShare; reviewRatio > maxRatio {
		return maxRatio
	}
	return reviewRatio
}

func (p SessionPolicy) capNew(n int) int {
	if p.MaxNewPerSession > 0 && n > p.MaxNewPerSession {
		return p.MaxNewPerSession
	}
	return n
}

func (p SessionPolicy) capReview(n int) int {
	if p.MaxReviewPerSession > 0 && n > p.MaxReviewPerSession {
		return p.MaxReviewPerSession
	}
	return n
}

// SessionPreview reports availability and the resulting allocation before a
// session starts.
type SessionPreview struct {
	AvailableNew    int
	AvailableReview int
	Allocation      Allocation
}

// SessionCard is one card of a planned session with its presentation variant.
type SessionCard struct {
	CardID   int64
	IsNew    bool
	QuizType entities.QuizType
}

// SessionPlan is a ready-to-study session. Review cards come first (most
// overdue leading), then new cards; any presentation-time shuffling is the
// caller's concern.
type SessionPlan struct {
	Cards   []SessionCard
	Message string
}

// ReviewCardIDs returns the review-pool card IDs in plan order.
func (p *SessionPlan) ReviewCardIDs() []int64 { return p.cardIDs(false) }

// NewCardIDs returns the new-pool card IDs in plan order.
func (p *SessionPlan) NewCardIDs() []int64 { return p.cardIDs(true) }

func (p *SessionPlan) cardIDs(isNew bool) []int64 {
	var ids []int64
	for _, c := range p.Cards {
		if c.IsNew == isNew {
			ids = append(ids, c.CardID)
		}
	}
	return ids
}

// reviewQuizRotation varies presentation for cards the user has already met.
var reviewQuizRotation = []entities.QuizType{
	entities.QuizMeaningToWord,
	entities.QuizWordToMeaning,
	entities.QuizCloze,
	entities.QuizListening,
}

// quizTypeFor picks the presentation variant for a card. New cards always
// start with recognition (word to meaning); review cards rotate through the
// variants so repeated sessions with the same card do not look identical.
func quizTypeFor(cardID int64, isNew bool) entities.QuizType {
	if isNew {
		return entities.QuizWordToMeaning
	}
	return reviewQuizRotation[cardID%int64(len(reviewQuizRotation))]
}

// SessionService composes the allocator and the selector into the session
// lifecycle the host application consumes.
type SessionService struct {
	selector     *CardSelector
	cardRepo     CardRepository
	progressRepo ProgressRepository
	deckResolver DeckScopeResolver
	clock        Clock
	policy       SessionPolicy
	logger       *zap.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(
	selector *CardSelector,
	cardRepo CardRepository,
	progressRepo ProgressRepository,
	deckResolver DeckScopeResolver,
	clock Clock,
	policy SessionPolicy,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		selector:     selector,
		cardRepo:     cardRepo,
		progressRepo: progressRepo,
		deckResolver: deckResolver,
		clock:        clock,
		policy:       policy,
		logger:       logger,
	}
}

// Preview computes what a session of totalRequested cards at reviewRatio
// would contain, given current availability. It performs no writes.
func (s *SessionService) Preview(ctx context.Context, userID uuid.UUID, totalRequested int, reviewRatio float64) (*SessionPreview, error) {
	availableNew, availableReview, err := s.availability(ctx, userID)
	if err != nil {
		return nil, err
	}

	alloc, err := Allocate(
		s.policy.capNew(availableNew),
		s.policy.capReview(availableReview),
		totalRequested,
		s.policy.effectiveRatio(reviewRatio),
	)
	if err != nil {
		return nil, err
	}

	return &SessionPreview{
		AvailableNew:    availableNew,
		AvailableReview: availableReview,
		Allocation:      alloc,
	}, nil
}

// BuildSession allocates counts and resolves them to concrete card IDs.
func (s *SessionService) BuildSession(ctx context.Context, userID uuid.UUID, totalRequested int, reviewRatio float64) (*SessionPlan, error) {
	preview, err := s.Preview(ctx, userID, totalRequested, reviewRatio)
	if err != nil {
		return nil, err
	}
	alloc := preview.Allocation

	reviewIDs, err := s.selector.SelectDueCards(ctx, userID, alloc.ReviewCount)
	if err != nil {
		return nil, fmt.Errorf("select review cards: %w", err)
	}
	newIDs, err := s.selector.SelectNewCards(ctx, userID, alloc.NewCount)
	if err != nil {
		return nil, fmt.Errorf("select new cards: %w", err)
	}

	s.logger.Info("session built",
		zap.String("user_id", userID.String()),
		zap.Int("requested", totalRequested),
		zap.Int("review_cards", len(reviewIDs)),
		zap.Int("new_cards", len(newIDs)),
	)

	cards := make([]SessionCard, 0, len(reviewIDs)+len(newIDs))
	for _, id := range reviewIDs {
		cards = append(cards, SessionCard{CardID: id, QuizType: quizTypeFor(id, false)})
	}
	for _, id := range newIDs {
		cards = append(cards, SessionCard{CardID: id, IsNew: true, QuizType: quizTypeFor(id, true)})
	}

	return &SessionPlan{
		Cards:   cards,
		Message: alloc.Message,
	}, nil
}

func (s *SessionService) availability(ctx context.Context, userID uuid.UUID) (availableNew, availableReview int, err error) {
	scope, err := s.deckResolver.ResolveDeckScope(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve deck scope: %w", err)
	}

	availableNew, err = s.cardRepo.CountUnseen(ctx, userID, scope)
	if err != nil {
		return 0, 0, fmt.Errorf("count unseen cards: %w", err)
	}
	availableReview, err = s.progressRepo.CountDue(ctx, userID, scope, s.clock.Now())
	if err != nil {
		return 0, 0, fmt.Errorf("count due cards: %w", err)
	}
	return availableNew, availableReview, nil
}
