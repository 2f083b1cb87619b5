package dict

import "strings"

// RenderOption configures Sentence and Sentences output.
type RenderOption func(*renderConfig)

type renderConfig struct {
	bpeMarker    string
	markUnknowns bool
}

// WithBPERemoval removes marker from the joined sentence after id-to-string
// mapping, re-fusing subword pieces into surface words. The conventional
// marker is "@@ ".
func WithBPERemoval(marker string) RenderOption {
	return func(c *renderConfig) {
		c.bpeMarker = marker
	}
}

// WithUnknownMarkers renders unknown tokens wrapped in angle brackets, so a
// reader can tell reference unknowns apart from words the model chose to emit
// as unk. Use it for reference display only, never for hypotheses.
func WithUnknownMarkers() RenderOption {
	return func(c *renderConfig) {
		c.markUnknowns = true
	}
}

// Sentence renders token ids as display text. End-of-sequence ids are never
// rendered; remaining tokens are joined by single spaces. Negative ids carry
// a negated original id (see MaskUnknowns) and render as that token in the
// unknown marker form.
func (d *Dictionary) Sentence(tokens []int32, opts ...RenderOption) (string, error) {
	var cfg renderConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	eos := d.Eos()
	unk := d.Unk()
	parts := make([]string, 0, len(tokens))
	for _, id := range tokens {
		if id == eos {
			continue
		}
		neg := id < 0
		if neg {
			id = -id
		}
		sym, err := d.Symbol(id)
		if err != nil {
			return "", err
		}
		if neg || (cfg.markUnknowns && id == unk) {
			sym = "<" + sym + ">"
		}
		parts = append(parts, sym)
	}

	s := strings.Join(parts, " ")
	if cfg.bpeMarker != "" {
		s = strings.ReplaceAll(s, cfg.bpeMarker, "")
	}
	return s, nil
}

// Sentences renders each row of a batch independently, joined by newlines.
func (d *Dictionary) Sentences(batch [][]int32, opts ...RenderOption) (string, error) {
	rows := make([]string, len(batch))
	for i, tokens := range batch {
		s, err := d.Sentence(tokens, opts...)
		if err != nil {
			return "", err
		}
		rows[i] = s
	}
	return strings.Join(rows, "\n"), nil
}
