package reconcile

import (
	"math"

	"github.com/tiktoken-go/tokenizer"

	"oracle/pkg/pipeline"
)

// Progress is a derived, non-authoritative completion estimate for one
// stage. Known is false when no sensible percentage exists (failed stage).
type Progress struct {
	Percent int
	Known   bool
}

// Estimator derives a progress estimate from a stage's reconciled result.
// It is an estimate only: a stage never reports 100 before its terminal
// event actually arrives.
type Estimator interface {
	Estimate(stage pipeline.Stage, r StageResult) Progress
}

// WordCountEstimator estimates progress by comparing the accumulated word
// count against the stage's expected output size.
type WordCountEstimator struct{}

func (WordCountEstimator) Estimate(stage pipeline.Stage, r StageResult) Progress {
	return clampedProgress(r, r.Words, stage.ExpectedWords)
}

// wordsPerToken converts the per-stage expected word count into an
// expected token count for the token-based estimator.
const wordsPerToken = 0.75

// TokenCountEstimator estimates progress from tokenizer counts instead of
// whitespace word counts, which tracks model output pacing more closely
// for markdown-heavy text. Claude and open models are approximated with
// the GPT-4 encoding.
type TokenCountEstimator struct {
	codec tokenizer.Codec
}

// NewTokenCountEstimator creates a token-based estimator. Falls back to
// character counts if the tokenizer cannot be constructed.
func NewTokenCountEstimator() (*TokenCountEstimator, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, err
	}
	return &TokenCountEstimator{codec: codec}, nil
}

func (e *TokenCountEstimator) Estimate(stage pipeline.Stage, r StageResult) Progress {
	expected := int(float64(stage.ExpectedWords) / wordsPerToken)
	return clampedProgress(r, e.countTokens(r.Text), expected)
}

func (e *TokenCountEstimator) countTokens(text string) int {
	if e.codec == nil {
		return len(text) / 4
	}
	count, err := e.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// clampedProgress applies the shared progress shape: error has no
// percentage, idle is 0, done is 100, and an in-flight stage reports
// min(95, 5 + round(90 * have/expected)), floored at 5 once streaming so
// the first token is visible on a progress bar.
func clampedProgress(r StageResult, have, expected int) Progress {
	switch r.Status {
	case StatusError:
		return Progress{}
	case StatusIdle:
		return Progress{Known: true}
	case StatusDone:
		return Progress{Percent: 100, Known: true}
	}

	pct := 5
	if expected > 0 {
		pct = 5 + int(math.Round(90*float64(have)/float64(expected)))
	}
	if pct > 95 {
		pct = 95
	}
	if pct < 5 {
		pct = 5
	}
	return Progress{Percent: pct, Known: true}
}
