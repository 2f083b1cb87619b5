package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-beam/dict"
)

func textDict(t *testing.T, words ...string) *dict.Dictionary {
	t.Helper()
	d := dict.New()
	for _, w := range words {
		d.AddSymbol(w)
	}
	return d
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadText(t *testing.T) {
	d := textDict(t, "the", "cat", "sat") // ids 4, 5, 6
	path := writeFixture(t, "corpus.txt", "the cat sat\nthe martian\n\n")

	ds, err := LoadText(path, d, true)
	require.NoError(t, err)

	require.Equal(t, 3, ds.Len())
	assert.Equal(t, []int32{4, 5, 6, d.Eos()}, ds.Sentence(0))
	assert.Equal(t, []int32{4, d.Unk(), d.Eos()}, ds.Sentence(1), "unknown words map to unk")
	assert.Equal(t, []int32{d.Eos()}, ds.Sentence(2), "blank lines keep corpus alignment")
}

func TestLoadText_NoEOS(t *testing.T) {
	d := textDict(t, "the")
	path := writeFixture(t, "corpus.txt", "the the\n")

	ds, err := LoadText(path, d, false)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 4}, ds.Sentence(0))
}

func TestLoadText_FileNotFound(t *testing.T) {
	_, err := LoadText(filepath.Join(t.TempDir(), "nope.txt"), dict.New(), true)
	assert.Error(t, err)
}

func TestPairs(t *testing.T) {
	src := &Text{sentences: [][]int32{{4, 2}, {5, 2}}}
	ref := &Text{sentences: [][]int32{{6, 2}, {7, 2}}}

	pairs, err := Pairs(src, ref)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, Pair{ID: 0, Src: []int32{4, 2}, Ref: []int32{6, 2}}, pairs[0])
	assert.Equal(t, Pair{ID: 1, Src: []int32{5, 2}, Ref: []int32{7, 2}}, pairs[1])
}

func TestPairs_SizeMismatch(t *testing.T) {
	src := &Text{sentences: [][]int32{{4, 2}}}
	ref := &Text{sentences: [][]int32{{6, 2}, {7, 2}}}

	_, err := Pairs(src, ref)
	assert.ErrorContains(t, err, "size mismatch")
}

func TestBatches(t *testing.T) {
	pairs := make([]Pair, 7)
	for i := range pairs {
		pairs[i].ID = i
	}

	batches := Batches(pairs, 3)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)

	// Order is preserved across batch boundaries.
	next := 0
	for _, b := range batches {
		for _, p := range b {
			assert.Equal(t, next, p.ID)
			next++
		}
	}
}

func TestBatches_SizeFloor(t *testing.T) {
	batches := Batches(make([]Pair, 2), 0)
	assert.Len(t, batches, 2, "non-positive batch size falls back to 1")
}

func TestBatches_Empty(t *testing.T) {
	assert.Empty(t, Batches(nil, 4))
}
