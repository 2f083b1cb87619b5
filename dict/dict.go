// Package dict provides the token dictionary shared by generation, display
// and scoring: a dense bidirectional mapping between token strings and ids
// with reserved ids for bos, pad, eos and unk.
package dict

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Reserved symbols occupy the first four ids, in this order.
const (
	bosSymbol = "<s>"
	padSymbol = "<pad>"
	eosSymbol = "</s>"
	unkSymbol = "<unk>"
)

// ErrInvalidID indicates a token id outside the dictionary range. It signals
// an inconsistency between the model vocabulary and the dictionary, so it is
// surfaced rather than swallowed.
var ErrInvalidID = errors.New("dict: token id out of range")

// Dictionary maps between token strings and dense integer ids. It is treated
// as immutable once loading is complete.
type Dictionary struct {
	symbols []string
	indices map[string]int32
}

// New returns a dictionary containing only the reserved symbols.
func New() *Dictionary {
	d := &Dictionary{indices: make(map[string]int32)}
	d.AddSymbol(bosSymbol)
	d.AddSymbol(padSymbol)
	d.AddSymbol(eosSymbol)
	d.AddSymbol(unkSymbol)
	return d
}

// AddSymbol appends sym and returns its id. Adding an existing symbol returns
// the id it already has.
func (d *Dictionary) AddSymbol(sym string) int32 {
	if id, ok := d.indices[sym]; ok {
		return id
	}
	id := int32(len(d.symbols))
	d.symbols = append(d.symbols, sym)
	d.indices[sym] = id
	return id
}

// Index returns the id of sym, or the unknown id when sym is not present.
func (d *Dictionary) Index(sym string) int32 {
	if id, ok := d.indices[sym]; ok {
		return id
	}
	return d.Unk()
}

// Symbol returns the token string for id.
func (d *Dictionary) Symbol(id int32) (string, error) {
	if id < 0 || int(id) >= len(d.symbols) {
		return "", fmt.Errorf("%w: %d (size %d)", ErrInvalidID, id, len(d.symbols))
	}
	return d.symbols[id], nil
}

// Len returns the vocabulary size.
func (d *Dictionary) Len() int { return len(d.symbols) }

// Bos returns the beginning-of-sentence id.
func (d *Dictionary) Bos() int32 { return 0 }

// Pad returns the padding id.
func (d *Dictionary) Pad() int32 { return 1 }

// Eos returns the end-of-sentence id.
func (d *Dictionary) Eos() int32 { return 2 }

// Unk returns the unknown-token id.
func (d *Dictionary) Unk() int32 { return 3 }

// Load reads a text dictionary with one "symbol count" (or bare "symbol")
// line per entry, ordered by id after the reserved symbols.
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	d := New()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 2 {
			return nil, fmt.Errorf("dictionary line %d: expected \"symbol count\", got %q", line, scanner.Text())
		}
		d.AddSymbol(fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	return d, nil
}

// MaskUnknowns returns a copy of tokens with every unknown id negated. Scoring
// uses the masked form so that unknown words in a reference never count as
// matches for unknown words in a hypothesis.
func MaskUnknowns(tokens []int32, unk int32) []int32 {
	out := make([]int32, len(tokens))
	for i, id := range tokens {
		if id == unk {
			id = -id
		}
		out[i] = id
	}
	return out
}
