package entities

import "fmt"

// Rating represents the recall quality of a single review on the four-point
// FSRS scale. The product surface only submits binary correctness; the
// review service maps it onto this scale (hint usage downgrades a correct
// answer to Hard).
type Rating int

const (
	RatingAgain Rating = iota + 1 // failed to recall
	RatingHard                    // recalled with difficulty
	RatingGood                    // recalled with some effort
	RatingEasy                    // recalled effortlessly
)

var ratingNames = [...]string{RatingAgain: "again", RatingHard: "hard", RatingGood: "good", RatingEasy: "easy"}

// IsValid reports whether r is within the Again..Easy range.
func (r Rating) IsValid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// Success reports whether the review counts as a correct recall.
func (r Rating) Success() bool {
	return r != RatingAgain
}

func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}
