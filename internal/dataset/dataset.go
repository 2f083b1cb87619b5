// Package dataset loads evaluation corpora as token id sequences, either from
// plain text resolved through a dictionary or from a binarized file read
// through mmap.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jamesainslie/go-beam/dict"
)

// Source yields token sentences by position.
type Source interface {
	Len() int
	Sentence(i int) []int32
}

// Text is an in-memory dataset built from whitespace-tokenized text.
type Text struct {
	sentences [][]int32
}

// LoadText reads one sentence per line, mapping whitespace-separated tokens
// to ids through d (unknown words map to unk). When appendEOS is set, every
// sentence gets a trailing eos id, matching what models are trained on.
func LoadText(path string, d *dict.Dictionary, appendEOS bool) (*Text, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sentences [][]int32
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		ids := make([]int32, 0, len(fields)+1)
		for _, w := range fields {
			ids = append(ids, d.Index(w))
		}
		if appendEOS {
			ids = append(ids, d.Eos())
		}
		sentences = append(sentences, ids)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	return &Text{sentences: sentences}, nil
}

// Len returns the number of sentences.
func (t *Text) Len() int { return len(t.sentences) }

// Sentence returns the ids of sentence i.
func (t *Text) Sentence(i int) []int32 { return t.sentences[i] }

// Pair is one aligned source/reference example. ID is the sentence position
// in the corpus and is preserved end-to-end through decoding and scoring.
type Pair struct {
	ID  int
	Src []int32
	Ref []int32
}

// Pairs zips two aligned datasets.
func Pairs(src, ref Source) ([]Pair, error) {
	if src.Len() != ref.Len() {
		return nil, fmt.Errorf("dataset size mismatch: %d source, %d reference sentences", src.Len(), ref.Len())
	}
	pairs := make([]Pair, src.Len())
	for i := range pairs {
		pairs[i] = Pair{ID: i, Src: src.Sentence(i), Ref: ref.Sentence(i)}
	}
	return pairs, nil
}

// Batches groups pairs into batches of at most size, preserving order.
func Batches(pairs []Pair, size int) [][]Pair {
	if size < 1 {
		size = 1
	}
	var batches [][]Pair
	for start := 0; start < len(pairs); start += size {
		end := start + size
		if end > len(pairs) {
			end = len(pairs)
		}
		batches = append(batches, pairs[start:end])
	}
	return batches
}
