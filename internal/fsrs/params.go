package fsrs

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParams reports a scheduler configuration outside the allowed bounds.
var ErrInvalidParams = errors.New("fsrs: invalid parameters")

// DefaultWeights is the FSRS v6 default weight vector (fsrs4anki wiki, FSRS-6).
var DefaultWeights = [21]float64{
	0.212, 1.2931, 2.3065, 8.2956, // w[0..3]  initial stability per rating
	6.4133, 0.8334, 3.0194, 0.001, // w[4..7]  difficulty
	1.8722, 0.1666, 0.796, 1.4835, // w[8..11] recall stability
	0.0614, 0.2629, 1.6483, 0.6014, // w[12..15] forget stability, hard penalty
	1.8729, 0.5425, 0.0912, 0.0658, // w[16..19] easy bonus, short-term
	0.1542, // w[20] decay exponent
}

// weightLowerBounds and weightUpperBounds delimit the trainable range of
// each weight.
var weightLowerBounds = [21]float64{
	0.001, 0.001, 0.001, 0.001,
	1.0, 0.001, 0.001, 0.001,
	0.0, 0.0, 0.001, 0.001,
	0.001, 0.001, 0.0, 0.0,
	1.0, 0.0, 0.0, 0.0,
	0.1,
}

var weightUpperBounds = [21]float64{
	100.0, 100.0, 100.0, 100.0,
	10.0, 4.0, 4.0, 0.75,
	4.5, 0.8, 3.5, 5.0,
	0.25, 0.9, 4.0, 1.0,
	6.0, 2.0, 2.0, 0.8,
	0.8,
}

// ValidateWeights checks every weight against its bounds.
func ValidateWeights(w [21]float64) error {
	for i := range w {
		if w[i] < weightLowerBounds[i] || w[i] > weightUpperBounds[i] {
			return fmt.Errorf("%w: w[%d] = %f, bounds [%f, %f]",
				ErrInvalidParams, i, w[i], weightLowerBounds[i], weightUpperBounds[i])
		}
	}
	return nil
}

// Config configures a Scheduler. Zero values are filled with defaults:
// DefaultWeights, retention 0.9, maximum interval 36500 days, learning
// steps [1m, 10m] and relearning steps [10m].
type Config struct {
	Weights          [21]float64
	DesiredRetention float64
	MaximumInterval  int
	LearningSteps    []time.Duration
	RelearningSteps  []time.Duration
}

func (c Config) withDefaults() Config {
	if c.Weights == ([21]float64{}) {
		c.Weights = DefaultWeights
	}
	if c.DesiredRetention == 0 {
		c.DesiredRetention = 0.9
	}
	if c.MaximumInterval == 0 {
		c.MaximumInterval = 36500
	}
	if c.LearningSteps == nil {
		c.LearningSteps = []time.Duration{time.Minute, 10 * time.Minute}
	}
	if c.RelearningSteps == nil {
		c.RelearningSteps = []time.Duration{10 * time.Minute}
	}
	return c
}

func (c Config) validate() error {
	if err := ValidateWeights(c.Weights); err != nil {
		return err
	}
	if c.DesiredRetention <= 0 || c.DesiredRetention > 1 {
		return fmt.Errorf("%w: desired retention %f out of range (0, 1]", ErrInvalidParams, c.DesiredRetention)
	}
	if c.MaximumInterval < 1 {
		return fmt.Errorf("%w: maximum interval %d must be at least 1 day", ErrInvalidParams, c.MaximumInterval)
	}
	for _, step := range c.LearningSteps {
		if step <= 0 {
			return fmt.Errorf("%w: learning step %s must be positive", ErrInvalidParams, step)
		}
	}
	for _, step := range c.RelearningSteps {
		if step <= 0 {
			return fmt.Errorf("%w: relearning step %s must be positive", ErrInvalidParams, step)
		}
	}
	return nil
}
