package beam

import "log/slog"

// Option configures a Generator.
type Option func(*config)

type config struct {
	beamSize        int
	maxLenA         float64
	maxLenB         int
	stopEarly       bool
	normalizeScores bool
	lenPenalty      float64
	logger          *slog.Logger
}

func defaultConfig() config {
	return config{
		beamSize:        5,
		maxLenA:         0,
		maxLenB:         200,
		stopEarly:       true,
		normalizeScores: true,
		lenPenalty:      1,
		logger:          slog.Default(),
	}
}

// WithBeamSize sets the number of hypotheses tracked per sentence (default: 5).
func WithBeamSize(k int) Option {
	return func(c *config) {
		c.beamSize = k
	}
}

// WithMaxLen bounds output length to a*sourceLen + b tokens (default: 0, 200).
func WithMaxLen(a float64, b int) Option {
	return func(c *config) {
		c.maxLenA = a
		c.maxLenB = b
	}
}

// WithoutEarlyStop makes every sentence decode until all of its hypotheses
// complete or the length bound is reached, instead of stopping as soon as no
// active hypothesis can out-score the finished ones. Slower, same best result.
func WithoutEarlyStop() Option {
	return func(c *config) {
		c.stopEarly = false
	}
}

// WithoutScoreNormalization reports raw cumulative log-probabilities instead
// of length-normalized scores.
func WithoutScoreNormalization() Option {
	return func(c *config) {
		c.normalizeScores = false
	}
}

// WithLenPenalty sets the length normalization exponent (default: 1).
// Scores are divided by length^p; larger values favor longer output.
func WithLenPenalty(p float64) Option {
	return func(c *config) {
		c.lenPenalty = p
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
