package dataset

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinarized_RoundTrip(t *testing.T) {
	sentences := [][]int32{
		{4, 5, 6, 2},
		{2},
		{},
		{7, -3, 8, 2},
	}

	path := filepath.Join(t.TempDir(), "corpus.bin")
	require.NoError(t, WriteBinarized(path, sentences))

	b, err := OpenBinarized(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Close()) }()

	require.Equal(t, len(sentences), b.Len())
	for i, want := range sentences {
		got := b.Sentence(i)
		if len(want) == 0 {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, want, got, "sentence %d", i)
	}
}

func TestBinarized_SentenceIsACopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.bin")
	require.NoError(t, WriteBinarized(path, [][]int32{{4, 5, 2}}))

	b, err := OpenBinarized(path)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	s := b.Sentence(0)
	s[0] = 99
	assert.Equal(t, []int32{4, 5, 2}, b.Sentence(0), "mutating a returned sentence must not touch the mapping")
}

func TestOpenBinarized_BadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.bin")
	require.NoError(t, WriteBinarized(path, [][]int32{{4, 2}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(data, "NOTMAGIC")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = OpenBinarized(path)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestOpenBinarized_TruncatedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.bin")
	require.NoError(t, WriteBinarized(path, [][]int32{{4, 5, 6, 2}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-4], 0o644))

	_, err = OpenBinarized(path)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestOpenBinarized_NonMonotonicOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.bin")
	require.NoError(t, WriteBinarized(path, [][]int32{{4, 2}, {5, 2}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Second offset entry (after magic, count, and the first offset).
	binary.LittleEndian.PutUint64(data[8+8+8:], 100)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = OpenBinarized(path)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestOpenBinarized_TruncatedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.bin")
	require.NoError(t, os.WriteFile(path, []byte("BEAM"), 0o644))

	_, err := OpenBinarized(path)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestOpenBinarized_FileNotFound(t *testing.T) {
	_, err := OpenBinarized(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}
