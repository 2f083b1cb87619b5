package bleu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eos int32 = 2

func TestScorer_GoldenPair(t *testing.T) {
	// ref [4 5 6 eos] vs hyp [4 5 7 eos]: unigrams 2/3, bigrams 1/2,
	// trigrams 0/1, equal lengths so BP is 1, and the zero trigram count
	// zeroes the whole score.
	s := NewScorer(eos, IgnoreID(1))
	s.Add([]int32{4, 5, 6, eos}, []int32{4, 5, 7, eos})

	st := s.Stats()
	assert.Equal(t, int64(2), st.Match[0])
	assert.Equal(t, int64(3), st.Total[0])
	assert.Equal(t, int64(1), st.Match[1])
	assert.Equal(t, int64(2), st.Total[1])
	assert.Equal(t, int64(0), st.Match[2])
	assert.Equal(t, int64(1), st.Total[2])
	assert.Equal(t, int64(0), st.Total[3])
	assert.Equal(t, int64(3), st.RefLen)
	assert.Equal(t, int64(3), st.HypLen)

	assert.Equal(t, 0.0, s.Score())
	assert.Equal(t,
		"BLEU4 = 0.00, 66.7/50.0/0.0/0.0 (BP=1.000, ratio=1.000, syslen=3, reflen=3)",
		s.ResultString())
}

func TestScorer_OrderIndependence(t *testing.T) {
	pairs := [][2][]int32{
		{{4, 5, 6, 7, eos}, {4, 5, 6, 7, eos}},
		{{8, 9, 4, 5, eos}, {8, 9, 5, 4, eos}},
		{{4, 4, 4, 4, 4, eos}, {4, 4, eos}},
	}

	forward := NewScorer(eos, IgnoreID(1))
	for _, p := range pairs {
		forward.Add(p[0], p[1])
	}

	backward := NewScorer(eos, IgnoreID(1))
	for i := len(pairs) - 1; i >= 0; i-- {
		backward.Add(pairs[i][0], pairs[i][1])
	}

	assert.Equal(t, forward.Stats(), backward.Stats())
	assert.Equal(t, forward.ResultString(), backward.ResultString())
}

func TestScorer_IdenticalCorpusScores100(t *testing.T) {
	s := NewScorer(eos, IgnoreID(1))
	s.Add([]int32{4, 5, 6, 7, 8, eos}, []int32{4, 5, 6, 7, 8, eos})
	s.Add([]int32{9, 10, 11, 12, eos}, []int32{9, 10, 11, 12, eos})

	assert.InDelta(t, 100.0, s.Score(), 1e-9)
	assert.Equal(t, 1.0, s.Stats().BrevityPenalty())
}

func TestScorer_EmptyHypothesis(t *testing.T) {
	s := NewScorer(eos, IgnoreID(1))
	assert.NotPanics(t, func() {
		s.Add([]int32{4, 5, 6, eos}, []int32{eos})
		s.Add([]int32{4, 5, 6, eos}, nil)
	})
	assert.Equal(t, 0.0, s.Score())

	st := s.Stats()
	assert.Equal(t, int64(6), st.RefLen)
	assert.Equal(t, int64(0), st.HypLen)
}

func TestScorer_EmptyCorpus(t *testing.T) {
	s := NewScorer(eos, IgnoreID(1))
	assert.Equal(t, 0.0, s.Score())
	assert.Equal(t,
		"BLEU4 = 0.00, 0.0/0.0/0.0/0.0 (BP=1.000, ratio=0.000, syslen=0, reflen=0)",
		s.ResultString())
}

func TestScorer_BrevityPenalty(t *testing.T) {
	// Shorter hypothesis corpus: BP = exp(1 - refLen/hypLen).
	s := NewScorer(eos, IgnoreID(1))
	s.Add([]int32{4, 5, 6, 7, 8, 9, eos}, []int32{4, 5, 6, 7, eos})

	want := math.Exp(1 - 6.0/4.0)
	assert.InDelta(t, want, s.Stats().BrevityPenalty(), 1e-12)
}

func TestScorer_IgnorePolicy(t *testing.T) {
	const pad int32 = 1

	// Padding counts as a token under KeepAll and disappears under
	// IgnoreID(pad).
	keep := NewScorer(eos, KeepAll())
	keep.Add([]int32{pad, 4, 5, eos}, []int32{pad, 4, 5, eos})
	assert.Equal(t, int64(3), keep.Stats().HypLen)

	drop := NewScorer(eos, IgnoreID(pad))
	drop.Add([]int32{pad, 4, 5, eos}, []int32{pad, 4, 5, eos})
	assert.Equal(t, int64(2), drop.Stats().HypLen)
}

func TestScorer_MaskedUnknownsNeverMatch(t *testing.T) {
	const unk int32 = 3

	s := NewScorer(eos, IgnoreID(1))
	// Reference unknowns arrive negated; the hypothesis emitted a literal
	// unk in the same position, which must not count as a match.
	s.Add([]int32{4, -unk, 5, eos}, []int32{4, unk, 5, eos})

	assert.Equal(t, int64(2), s.Stats().Match[0])
	assert.Equal(t, int64(3), s.Stats().Total[0])
}

func TestScorer_Merge(t *testing.T) {
	pairs := [][2][]int32{
		{{4, 5, 6, eos}, {4, 5, 6, eos}},
		{{7, 8, eos}, {7, 9, eos}},
		{{4, 4, 5, eos}, {4, 5, 5, eos}},
	}

	whole := NewScorer(eos, IgnoreID(1))
	for _, p := range pairs {
		whole.Add(p[0], p[1])
	}

	shardA := NewScorer(eos, IgnoreID(1))
	shardA.Add(pairs[0][0], pairs[0][1])
	shardB := NewScorer(eos, IgnoreID(1))
	shardB.Add(pairs[1][0], pairs[1][1])
	shardB.Add(pairs[2][0], pairs[2][1])

	require.NoError(t, shardA.Merge(shardB))
	assert.Equal(t, whole.Stats(), shardA.Stats())
	assert.Equal(t, whole.ResultString(), shardA.ResultString())
}

func TestScorer_MergeMismatchedConfig(t *testing.T) {
	a := NewScorer(eos, IgnoreID(1))
	b := NewScorer(eos, KeepAll())
	assert.ErrorIs(t, a.Merge(b), ErrMismatchedConfig)

	c := NewScorer(-1, IgnoreID(1))
	assert.ErrorIs(t, a.Merge(c), ErrMismatchedConfig)
}

func TestStats_MergeCommutative(t *testing.T) {
	a := Stats{Match: [4]int64{3, 2, 1, 0}, Total: [4]int64{5, 4, 3, 2}, RefLen: 9, HypLen: 8}
	b := Stats{Match: [4]int64{1, 1, 1, 1}, Total: [4]int64{2, 2, 2, 2}, RefLen: 4, HypLen: 5}

	assert.Equal(t, a.Merge(b), b.Merge(a))
}

func TestScorer_ClippedCounts(t *testing.T) {
	// hyp repeats a unigram more often than the reference contains it.
	s := NewScorer(eos, IgnoreID(1))
	s.Add([]int32{4, 5, eos}, []int32{4, 4, 4, eos})

	st := s.Stats()
	assert.Equal(t, int64(1), st.Match[0], "matches must clip at the reference count")
	assert.Equal(t, int64(3), st.Total[0])
}
