package service

import (
	"fmt"
	"math"
)

// Allocation is the outcome of splitting a requested session size between
// new and review cards. Message is set when availability fell short of the
// request; that is a graceful degradation, not an error.
type Allocation struct {
	NewCount    int
	ReviewCount int
	Message     string
}

// Total returns the number of cards actually allocated.
func (a Allocation) Total() int { return a.NewCount + a.ReviewCount }

// Allocate splits totalRequested into new/review counts using reviewRatio
// (the share of the session spent on reviews), clamped to availability.
//
// The review share is floor(total * ratio); the remainder goes to new cards.
// When one pool cannot cover its share, the shortfall is backfilled from the
// other pool, new cards first, then reviews. The order is deterministic:
// identical inputs always produce identical outputs.
func Allocate(availableNew, availableReview, totalRequested int, reviewRatio float64) (Allocation, error) {
	if totalRequested < 0 {
		return Allocation{}, fmt.Errorf("%w: total requested %d must not be negative", ErrValidation, totalRequested)
	}
	if availableNew < 0 || availableReview < 0 {
		return Allocation{}, fmt.Errorf("%w: availability (%d new, %d review) must not be negative", ErrValidation, availableNew, availableReview)
	}
	if reviewRatio < 0 || reviewRatio > 1 {
		return Allocation{}, fmt.Errorf("%w: review ratio %.2f outside [0, 1]", ErrValidation, reviewRatio)
	}

	reviewRequested := int(math.Floor(float64(totalRequested) * reviewRatio))
	newRequested := totalRequested - reviewRequested

	alloc := Allocation{
		NewCount:    min(newRequested, availableNew),
		ReviewCount: min(reviewRequested, availableReview),
	}

	// Backfill the shortfall from whichever pool still has supply.
	if shortage := totalRequested - alloc.Total(); shortage > 0 {
		extraNew := min(shortage, availableNew-alloc.NewCount)
		alloc.NewCount += extraNew
		shortage -= extraNew

		if shortage > 0 {
			alloc.ReviewCount += min(shortage, availableReview-alloc.ReviewCount)
		}
	}

	if alloc.Total() < totalRequested {
		missing := totalRequested - alloc.Total()
		alloc.Message = fmt.Sprintf(
			"only %d of the requested %d cards are available (%d short)",
			alloc.Total(), totalRequested, missing,
		)
	}

	return alloc, nil
}
