package ctxengine

import "github.com/flemzord/bionic/pkg/message"

// TokenEstimator estimates the token count of a string.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator estimates tokens using a simple characters-per-token ratio.
// A ratio of ~4 works well for English; CJK text is closer to ~1.5.
type CharEstimator struct {
	CharsPerToken float64
}

// NewCharEstimator creates a CharEstimator with the given ratio.
// If charsPerToken is <= 0, defaults to 4.0.
func NewCharEstimator(charsPerToken float64) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &CharEstimator{CharsPerToken: charsPerToken}
}

// Estimate returns the estimated token count for the given text.
func (e *CharEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := float64(len([]rune(text))) / e.CharsPerToken
	// Always round up to avoid underestimation.
	return int(tokens) + 1
}

// EstimateMessages returns the estimated tokens of msgs as displayed to the
// generator, plus a small per-message overhead.
func EstimateMessages(estimator TokenEstimator, msgs []*message.Message) int {
	total := 0
	for _, m := range msgs {
		total += 4
		total += estimator.Estimate(m.Display())
	}
	return total
}
