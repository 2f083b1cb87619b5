// Package bleu implements streaming corpus-level BLEU with brevity penalty
// over n-grams up to order 4.
//
// Statistics accumulate additively across the whole corpus, so the score
// depends only on the multiset of sentence pairs, never on the order they
// were added. A Scorer is not safe for concurrent Add calls; score shards of
// a corpus with independent scorers and combine them with Merge.
package bleu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const maxOrder = 4

// ErrMismatchedConfig indicates an attempt to merge scorers built with
// different eos ids or ignore policies.
var ErrMismatchedConfig = errors.New("bleu: mismatched scorer configuration")

// Stats holds corpus n-gram statistics. The zero value is an empty corpus.
// Merge is commutative and associative, so shard statistics reduce in any
// order.
type Stats struct {
	Match  [maxOrder]int64 // clipped n-gram matches per order
	Total  [maxOrder]int64 // hypothesis n-grams per order
	RefLen int64
	HypLen int64
}

// Merge returns the combined statistics of two corpus shards.
func (s Stats) Merge(o Stats) Stats {
	for n := 0; n < maxOrder; n++ {
		s.Match[n] += o.Match[n]
		s.Total[n] += o.Total[n]
	}
	s.RefLen += o.RefLen
	s.HypLen += o.HypLen
	return s
}

// Score returns corpus BLEU in [0, 100]. A zero match count at any order
// yields 0, as does an empty corpus; there is no smoothing.
func (s Stats) Score() float64 {
	sum := 0.0
	for n := 0; n < maxOrder; n++ {
		if s.Total[n] == 0 || s.Match[n] == 0 {
			return 0
		}
		sum += math.Log(float64(s.Match[n]) / float64(s.Total[n]))
	}
	return s.BrevityPenalty() * math.Exp(sum/maxOrder) * 100
}

// BrevityPenalty returns 1 when the hypothesis corpus is at least as long as
// the reference corpus, exp(1 - refLen/hypLen) otherwise.
func (s Stats) BrevityPenalty() float64 {
	if s.HypLen >= s.RefLen {
		return 1
	}
	if s.HypLen == 0 {
		return 0
	}
	return math.Exp(1 - float64(s.RefLen)/float64(s.HypLen))
}

// Precision returns the modified n-gram precision for order n in [0, 100].
func (s Stats) Precision(n int) float64 {
	if n < 1 || n > maxOrder || s.Total[n-1] == 0 {
		return 0
	}
	return float64(s.Match[n-1]) / float64(s.Total[n-1]) * 100
}

// IgnorePolicy selects an id excluded from n-gram counting on both sides.
type IgnorePolicy struct {
	id     int32
	active bool
}

// KeepAll counts every non-eos id, padding included.
func KeepAll() IgnorePolicy { return IgnorePolicy{} }

// IgnoreID excludes id from counting entirely: padding in the usual setup, or
// the -1 sentinel left behind when subword re-indexing invalidates the
// original ids.
func IgnoreID(id int32) IgnorePolicy { return IgnorePolicy{id: id, active: true} }

// Scorer accumulates BLEU statistics one sentence pair at a time. Use one
// Scorer per writer goroutine; combine with Merge.
type Scorer struct {
	stats  Stats
	eos    int32
	ignore IgnorePolicy
}

// NewScorer creates a scorer that skips eos ids and ids excluded by policy.
func NewScorer(eos int32, policy IgnorePolicy) *Scorer {
	return &Scorer{eos: eos, ignore: policy}
}

// Add accumulates one (reference, hypothesis) pair, given as token ids with
// any padding/eos trimming policy already applied by the caller beyond the
// configured eos and ignore ids. Empty sequences are defined input and
// contribute zero counts.
func (s *Scorer) Add(ref, hyp []int32) {
	ref = s.filter(ref)
	hyp = s.filter(hyp)

	s.stats.RefLen += int64(len(ref))
	s.stats.HypLen += int64(len(hyp))

	for n := 1; n <= maxOrder; n++ {
		total := len(hyp) - n + 1
		if total <= 0 {
			continue
		}
		s.stats.Total[n-1] += int64(total)

		refCounts := countNGrams(ref, n)
		for gram, count := range countNGrams(hyp, n) {
			if rc := refCounts[gram]; rc < count {
				count = rc
			}
			s.stats.Match[n-1] += count
		}
	}
}

// Merge folds another scorer's statistics into this one. The two scorers must
// share the same configuration.
func (s *Scorer) Merge(o *Scorer) error {
	if s.eos != o.eos || s.ignore != o.ignore {
		return ErrMismatchedConfig
	}
	s.stats = s.stats.Merge(o.stats)
	return nil
}

// Stats returns a copy of the accumulated statistics.
func (s *Scorer) Stats() Stats { return s.stats }

// Score returns corpus BLEU in [0, 100].
func (s *Scorer) Score() float64 { return s.stats.Score() }

// ResultString formats the score with per-order precisions, brevity penalty
// and length ratio.
func (s *Scorer) ResultString() string {
	st := s.stats
	ratio := 0.0
	if st.RefLen > 0 {
		ratio = float64(st.HypLen) / float64(st.RefLen)
	}
	return fmt.Sprintf("BLEU4 = %.2f, %.1f/%.1f/%.1f/%.1f (BP=%.3f, ratio=%.3f, syslen=%d, reflen=%d)",
		st.Score(),
		st.Precision(1), st.Precision(2), st.Precision(3), st.Precision(4),
		st.BrevityPenalty(), ratio, st.HypLen, st.RefLen)
}

func (s *Scorer) filter(tokens []int32) []int32 {
	out := make([]int32, 0, len(tokens))
	for _, id := range tokens {
		if id == s.eos {
			continue
		}
		if s.ignore.active && id == s.ignore.id {
			continue
		}
		out = append(out, id)
	}
	return out
}

// countNGrams counts order-n grams by id equality. Keys pack the ids into a
// fixed-width byte string.
func countNGrams(tokens []int32, n int) map[string]int64 {
	if len(tokens) < n {
		return nil
	}
	counts := make(map[string]int64, len(tokens)-n+1)
	key := make([]byte, 4*n)
	for i := 0; i+n <= len(tokens); i++ {
		for j, id := range tokens[i : i+n] {
			binary.LittleEndian.PutUint32(key[4*j:], uint32(id))
		}
		counts[string(key)]++
	}
	return counts
}
