package fsrs

import (
	"math"
	"time"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

const (
	minStability  = 0.001
	minDifficulty = 1.0
	maxDifficulty = 10.0
	day           = 24 * time.Hour
)

// Scheduler computes the next memory state and due date for a card review
// using the FSRS forgetting-curve model. It is constructed once per process
// and is immutable and safe for concurrent use; Schedule performs no I/O.
type Scheduler struct {
	w                [21]float64
	decay            float64 // -w[20]
	factor           float64 // 0.9^(1/decay) - 1
	desiredRetention float64
	maximumInterval  int
	learningSteps    []time.Duration
	relearningSteps  []time.Duration
}

// New creates a Scheduler from cfg. Zero-value fields are filled with
// defaults; values outside the allowed bounds return ErrInvalidParams.
func New(cfg Config) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	decay := -cfg.Weights[20]
	return &Scheduler{
		w:                cfg.Weights,
		decay:            decay,
		factor:           math.Pow(0.9, 1.0/decay) - 1.0,
		desiredRetention: cfg.DesiredRetention,
		maximumInterval:  cfg.MaximumInterval,
		learningSteps:    cfg.LearningSteps,
		relearningSteps:  cfg.RelearningSteps,
	}, nil
}

// Schedule applies one review to the card's memory state and returns the
// updated state. The input is not mutated; persisting the result and
// appending the quality history entry is the caller's responsibility.
//
// State transitions: a new card enters learning on its first review and
// never skips straight to review; an incorrect review of a review-state
// card is a lapse and moves the card to relearning with a short-term step
// instead of the forgetting-curve interval. The returned NextReviewAt is
// always strictly after now.
func (s *Scheduler) Schedule(p entities.CardProgress, rating entities.Rating, now time.Time) entities.CardProgress {
	// Out-of-range ratings and corrupted numeric state are clamped, never
	// rejected: they cannot arise from user input.
	if rating < entities.RatingAgain {
		rating = entities.RatingAgain
	} else if rating > entities.RatingEasy {
		rating = entities.RatingEasy
	}

	next := p

	var elapsed float64
	if p.LastReviewAt != nil {
		elapsed = now.Sub(*p.LastReviewAt).Hours() / 24.0
		if elapsed < 0 {
			elapsed = 0
		}
	}
	next.ElapsedDays = int(elapsed)

	s.updateMemory(&next, p, rating, elapsed)

	state := p.State
	if state == entities.StateNew || !state.IsValid() {
		state = entities.StateLearning
		next.Step = 0
	}
	next.State = state

	var interval time.Duration
	switch state {
	case entities.StateLearning:
		interval = s.stepThrough(&next, rating, s.learningSteps)
	case entities.StateRelearning:
		interval = s.stepThrough(&next, rating, s.relearningSteps)
	default: // StateReview
		interval = s.reviewTransition(&next, rating)
	}

	next.ScheduledDays = int(interval / day)
	next.NextReviewAt = now.Add(interval)
	next.LastReviewAt = &now
	if rating.Success() {
		next.Repetitions++
	}

	return next
}

// Retrievability returns the projected recall probability for the card at
// the given time. Unseen cards retrieve at 0.
func (s *Scheduler) Retrievability(p entities.CardProgress, now time.Time) float64 {
	if p.LastReviewAt == nil || p.Stability <= 0 {
		return 0
	}
	elapsed := now.Sub(*p.LastReviewAt).Hours() / 24.0
	if elapsed < 0 {
		elapsed = 0
	}
	return s.retrievability(elapsed, p.Stability)
}

// updateMemory recomputes stability and difficulty for the review.
func (s *Scheduler) updateMemory(next *entities.CardProgress, prev entities.CardProgress, rating entities.Rating, elapsed float64) {
	if prev.LastReviewAt == nil || prev.State == entities.StateNew {
		// First review: seed from rating-specific initial constants.
		next.Stability = s.initStability(rating)
		next.Difficulty = s.initDifficulty(rating, true)
		return
	}

	stability := clampStability(prev.Stability)
	difficulty := clampDifficulty(prev.Difficulty)

	if elapsed < 1 {
		next.Stability = s.shortTermStability(stability, rating)
	} else {
		r := s.retrievability(elapsed, stability)
		next.Stability = s.nextStability(difficulty, stability, r, rating)
	}
	next.Difficulty = s.nextDifficulty(difficulty, rating)
}

// stepThrough walks the learning/relearning steps and returns the interval
// until the next review, graduating the card when the steps are exhausted.
func (s *Scheduler) stepThrough(c *entities.CardProgress, rating entities.Rating, steps []time.Duration) time.Duration {
	step := c.Step
	if step < 0 {
		step = 0
	}

	if len(steps) == 0 || (step >= len(steps) && rating != entities.RatingAgain) {
		return s.graduate(c)
	}

	switch rating {
	case entities.RatingAgain:
		c.Step = 0
		return steps[0]

	case entities.RatingHard:
		if step == 0 && len(steps) == 1 {
			return time.Duration(float64(steps[0]) * 1.5)
		}
		if step == 0 && len(steps) >= 2 {
			return (steps[0] + steps[1]) / 2
		}
		if step >= len(steps) {
			step = len(steps) - 1
		}
		return steps[step]

	case entities.RatingGood:
		nextStep := step + 1
		if nextStep >= len(steps) {
			return s.graduate(c)
		}
		c.Step = nextStep
		return steps[nextStep]

	default: // Easy graduates immediately.
		return s.graduate(c)
	}
}

// reviewTransition handles a card already in the review state. An incorrect
// answer is a lapse: the card moves to relearning on a short step rather
// than a full forgetting-curve interval.
func (s *Scheduler) reviewTransition(c *entities.CardProgress, rating entities.Rating) time.Duration {
	if rating == entities.RatingAgain {
		c.Lapses++
		if len(s.relearningSteps) > 0 {
			c.State = entities.StateRelearning
			c.Step = 0
			return s.relearningSteps[0]
		}
	}

	c.Step = 0
	return time.Duration(s.nextIntervalDays(c.Stability)) * day
}

// graduate promotes the card to the review state with a full interval.
func (s *Scheduler) graduate(c *entities.CardProgress) time.Duration {
	c.State = entities.StateReview
	c.Step = 0
	return time.Duration(s.nextIntervalDays(c.Stability)) * day
}

// nextIntervalDays returns the interval whose projected retrievability
// equals the desired retention, in whole days within [1, maximumInterval].
func (s *Scheduler) nextIntervalDays(stability float64) int {
	ivl := stability / s.factor * (math.Pow(s.desiredRetention, 1.0/s.decay) - 1)
	days := int(math.Round(ivl))
	if days < 1 {
		days = 1
	}
	if days > s.maximumInterval {
		days = s.maximumInterval
	}
	return days
}

// retrievability computes R(t, S) = (1 + factor*t/S)^decay.
func (s *Scheduler) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+s.factor*elapsedDays/stability, s.decay)
}

// initStability returns S0(G) for the first review.
func (s *Scheduler) initStability(r entities.Rating) float64 {
	return clampStability(s.w[r-1])
}

// initDifficulty returns D0(G) = w[4] - e^(w[5]*(G-1)) + 1.
func (s *Scheduler) initDifficulty(r entities.Rating, clamp bool) float64 {
	d := s.w[4] - math.Exp(s.w[5]*float64(r-1)) + 1
	if clamp {
		return clampDifficulty(d)
	}
	return d
}

// shortTermStability handles same-day reviews. Successful ratings never
// reduce stability.
func (s *Scheduler) shortTermStability(stability float64, r entities.Rating) float64 {
	sInc := math.Exp(s.w[17]*(float64(r)-3+s.w[18])) * math.Pow(stability, -s.w[19])
	if r.Success() {
		sInc = math.Max(sInc, 1.0)
	}
	return clampStability(stability * sInc)
}

// nextDifficulty applies linear damping and mean reversion toward D0(Easy),
// clamped to [1, 10].
func (s *Scheduler) nextDifficulty(difficulty float64, r entities.Rating) float64 {
	deltaD := -s.w[6] * (float64(r) - 3)
	dPrime := difficulty + (10-difficulty)*deltaD/9
	d0Easy := s.initDifficulty(entities.RatingEasy, false)
	return clampDifficulty(s.w[7]*d0Easy + (1-s.w[7])*dPrime)
}

func (s *Scheduler) nextStability(d, stability, r float64, rating entities.Rating) float64 {
	if rating == entities.RatingAgain {
		return s.nextForgetStability(d, stability, r)
	}
	return s.nextRecallStability(d, stability, r, rating)
}

// nextRecallStability computes stability after a successful cross-day recall:
// S' = S * (1 + e^w[8] * (11-D) * S^(-w[9]) * (e^((1-R)*w[10]) - 1) * penalty * bonus).
func (s *Scheduler) nextRecallStability(d, stability, r float64, rating entities.Rating) float64 {
	hardPenalty := 1.0
	if rating == entities.RatingHard {
		hardPenalty = s.w[15]
	}
	easyBonus := 1.0
	if rating == entities.RatingEasy {
		easyBonus = s.w[16]
	}
	return stability * (1 + math.Exp(s.w[8])*
		(11-d)*
		math.Pow(stability, -s.w[9])*
		(math.Exp((1-r)*s.w[10])-1)*
		hardPenalty*easyBonus)
}

// nextForgetStability computes stability after forgetting, bounded by the
// short-term path so a lapse cannot gain stability.
func (s *Scheduler) nextForgetStability(d, stability, r float64) float64 {
	long := s.w[11] *
		math.Pow(d, -s.w[12]) *
		(math.Pow(stability+1, s.w[13]) - 1) *
		math.Exp((1-r)*s.w[14])
	short := stability / math.Exp(s.w[17]*s.w[18])
	return clampStability(math.Min(long, short))
}

func clampStability(s float64) float64 {
	return math.Max(s, minStability)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, minDifficulty), maxDifficulty)
}
