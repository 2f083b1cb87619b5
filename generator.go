package beam

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/jamesainslie/go-beam/dict"
)

// Hypothesis is one candidate output sequence with its final score. Tokens
// contain no padding and end with eos when the hypothesis completed before
// the length bound. A Hypothesis is never mutated after it is returned.
type Hypothesis struct {
	Tokens []int32
	Score  float64
}

// Generator runs batched beam search over a Model.
type Generator struct {
	model Model
	dict  *dict.Dictionary
	cfg   config
}

// New creates a Generator. Configuration is validated eagerly; decoding never
// starts with an invalid beam width or length policy.
func New(model Model, d *dict.Dictionary, opts ...Option) (*Generator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidConfig)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: nil dictionary", ErrInvalidConfig)
	}
	if cfg.beamSize < 1 {
		return nil, fmt.Errorf("%w: beam size %d", ErrInvalidConfig, cfg.beamSize)
	}
	if cfg.lenPenalty < 0 || math.IsNaN(cfg.lenPenalty) || math.IsInf(cfg.lenPenalty, 0) {
		return nil, fmt.Errorf("%w: length penalty %v", ErrInvalidConfig, cfg.lenPenalty)
	}
	if cfg.maxLenA < 0 || math.IsNaN(cfg.maxLenA) || math.IsInf(cfg.maxLenA, 0) {
		return nil, fmt.Errorf("%w: max length factor %v", ErrInvalidConfig, cfg.maxLenA)
	}
	if cfg.maxLenB < 1 {
		return nil, fmt.Errorf("%w: max length offset %d", ErrInvalidConfig, cfg.maxLenB)
	}

	return &Generator{model: model, dict: d, cfg: cfg}, nil
}

// hypothesis is a candidate under construction. score is the cumulative
// log-probability; no renormalization happens across steps.
type hypothesis struct {
	tokens []int32
	score  float64
}

// beamState tracks one sentence's search. It is owned exclusively by a single
// Generate call.
type beamState struct {
	state    State
	maxLen   int
	active   []hypothesis
	finished []hypothesis // raw scores; finalized when the call returns
	done     bool
}

// Generate decodes a batch of source sentences, returning up to beamSize
// hypotheses per sentence, best score first. Sentences are advanced in
// lock-step; a sentence that meets its stop criteria is skipped in later
// steps without blocking the rest of the batch. If the model fails on any
// step, the whole call fails.
func (g *Generator) Generate(ctx context.Context, batch [][]int32) ([][]Hypothesis, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	beams := make([]*beamState, len(batch))
	maxSteps := 0
	for i, src := range batch {
		st, err := g.model.Encode(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding sentence %d: %v", ErrModelStep, i, err)
		}
		maxLen := int(g.cfg.maxLenA*float64(len(src))) + g.cfg.maxLenB
		if maxLen < 1 {
			maxLen = 1
		}
		beams[i] = &beamState{
			state:  st,
			maxLen: maxLen,
			active: []hypothesis{{}},
		}
		if maxLen > maxSteps {
			maxSteps = maxLen
		}
	}

	steps := 0
	for ; steps < maxSteps; steps++ {
		live := false
		for i, b := range beams {
			if b.done {
				continue
			}
			if err := g.advance(ctx, b); err != nil {
				return nil, fmt.Errorf("sentence %d: %w", i, err)
			}
			if !b.done {
				live = true
			}
		}
		if !live {
			break
		}
	}

	out := make([][]Hypothesis, len(beams))
	for i, b := range beams {
		// A beam not done here ran out of length budget on the batch's
		// last step; its actives are force-finished at their current
		// score. Beams done for any other reason already hold a full
		// ranking, so their leftover actives are discarded.
		if !b.done {
			b.finished = append(b.finished, b.active...)
		}
		out[i] = g.finalize(b.finished)
	}
	g.cfg.logger.Debug("generated batch", "sentences", len(batch), "steps", steps)
	return out, nil
}

// advance extends every active hypothesis of one sentence by a single token,
// prunes to the beam width, and applies the stop policies.
func (g *Generator) advance(ctx context.Context, b *beamState) error {
	k := g.cfg.beamSize
	if len(b.active) == 0 || len(b.finished) >= k {
		b.done = true
		return nil
	}
	if len(b.active[0].tokens) >= b.maxLen {
		// Length bound reached: force-finish at the current raw score.
		b.finished = append(b.finished, b.active...)
		b.active = nil
		b.done = true
		return nil
	}

	eos := g.dict.Eos()
	vocab := g.dict.Len()

	// Candidates are offered in (beam index, token id) order, so equal
	// scores resolve to the lower beam index, then the lower token id,
	// regardless of how the step distributions were computed.
	sel := newSelection(k)
	for hi, h := range b.active {
		lprobs, err := g.model.Step(ctx, b.state, h.tokens)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrModelStep, err)
		}
		if len(lprobs) != vocab {
			return fmt.Errorf("%w: distribution size %d, vocabulary size %d", ErrModelStep, len(lprobs), vocab)
		}
		for tok, lp := range lprobs {
			if math.IsNaN(float64(lp)) || math.IsInf(float64(lp), 0) {
				return fmt.Errorf("%w: non-finite log-probability for token %d", ErrModelStep, tok)
			}
			sel.offer(candidate{beam: hi, token: int32(tok), score: h.score + float64(lp)})
		}
	}

	next := make([]hypothesis, 0, k)
	for _, c := range sel.items {
		parent := b.active[c.beam]
		tokens := make([]int32, 0, len(parent.tokens)+1)
		tokens = append(append(tokens, parent.tokens...), c.token)
		h := hypothesis{tokens: tokens, score: c.score}
		if c.token == eos {
			// Completed hypotheses keep their raw cumulative score
			// and are never re-expanded.
			b.finished = append(b.finished, h)
			continue
		}
		next = append(next, h)
	}
	b.active = next

	if len(b.finished) >= k {
		b.done = true
		return nil
	}
	if g.cfg.stopEarly && len(b.finished) > 0 {
		// Log-probabilities are non-positive, so an active hypothesis
		// already below the worst finished raw score can never recover.
		worst := b.finished[0].score
		for _, f := range b.finished[1:] {
			if f.score < worst {
				worst = f.score
			}
		}
		kept := b.active[:0]
		for _, h := range b.active {
			if h.score >= worst {
				kept = append(kept, h)
			}
		}
		b.active = kept
	}
	if len(b.active) == 0 {
		b.done = true
	}
	return nil
}

// finalize applies length normalization and orders hypotheses best-first.
// Force-finished hypotheses are normalized exactly like completed ones.
func (g *Generator) finalize(finished []hypothesis) []Hypothesis {
	out := make([]Hypothesis, len(finished))
	for i, h := range finished {
		score := h.score
		if g.cfg.normalizeScores && len(h.tokens) > 0 {
			score /= math.Pow(float64(len(h.tokens)), g.cfg.lenPenalty)
		}
		out[i] = Hypothesis{Tokens: h.tokens, Score: score}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > g.cfg.beamSize {
		out = out[:g.cfg.beamSize]
	}
	return out
}

// candidate is one proposed single-token extension of an active hypothesis.
type candidate struct {
	beam  int
	token int32
	score float64
}

// selection keeps the k best candidates seen so far, ordered best-first.
// Ties on score keep the earliest offer.
type selection struct {
	k     int
	items []candidate
}

func newSelection(k int) *selection {
	return &selection{k: k, items: make([]candidate, 0, k+1)}
}

func (s *selection) offer(c candidate) {
	if len(s.items) == s.k && c.score <= s.items[len(s.items)-1].score {
		return
	}
	pos := sort.Search(len(s.items), func(i int) bool { return s.items[i].score < c.score })
	s.items = append(s.items, candidate{})
	copy(s.items[pos+1:], s.items[pos:])
	s.items[pos] = c
	if len(s.items) > s.k {
		s.items = s.items[:s.k]
	}
}
