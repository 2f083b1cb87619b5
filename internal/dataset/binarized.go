package dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Binarized dataset layout, all little-endian:
//
//	magic   [8]byte  "BEAMIDX1"
//	count   uint64   number of sentences
//	offsets [count+1]uint64  token offsets into the payload
//	payload []int32  concatenated sentences
const binMagic = "BEAMIDX1"

// ErrBadFormat indicates a file that is not a valid binarized dataset.
var ErrBadFormat = errors.New("dataset: bad binarized file")

// Binarized is a memory-mapped binarized dataset. Sentences are decoded on
// access; the mapping stays open until Close.
type Binarized struct {
	f       *os.File
	m       mmap.MMap
	offsets []uint64
	payload []byte
}

// OpenBinarized maps a binarized dataset file.
func OpenBinarized(path string) (*Binarized, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mapping dataset: %w", err)
	}

	b := &Binarized{f: f, m: m}
	if err := b.parse(); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Binarized) parse() error {
	data := []byte(b.m)
	if len(data) < len(binMagic)+8 {
		return fmt.Errorf("%w: truncated header", ErrBadFormat)
	}
	if string(data[:len(binMagic)]) != binMagic {
		return fmt.Errorf("%w: bad magic", ErrBadFormat)
	}
	data = data[len(binMagic):]

	count := binary.LittleEndian.Uint64(data)
	data = data[8:]

	offsetBytes := (count + 1) * 8
	if uint64(len(data)) < offsetBytes {
		return fmt.Errorf("%w: truncated offset table", ErrBadFormat)
	}
	offsets := make([]uint64, count+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(data[8*i:])
	}
	data = data[offsetBytes:]

	if offsets[0] != 0 {
		return fmt.Errorf("%w: offsets must start at 0", ErrBadFormat)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return fmt.Errorf("%w: offsets not monotonic", ErrBadFormat)
		}
	}
	if offsets[count]*4 != uint64(len(data)) {
		return fmt.Errorf("%w: payload holds %d bytes, offsets expect %d", ErrBadFormat, len(data), offsets[count]*4)
	}

	b.offsets = offsets
	b.payload = data
	return nil
}

// Len returns the number of sentences.
func (b *Binarized) Len() int { return len(b.offsets) - 1 }

// Sentence decodes sentence i into a fresh slice.
func (b *Binarized) Sentence(i int) []int32 {
	start, end := b.offsets[i], b.offsets[i+1]
	out := make([]int32, end-start)
	for j := range out {
		out[j] = int32(binary.LittleEndian.Uint32(b.payload[(start+uint64(j))*4:]))
	}
	return out
}

// Close unmaps and closes the file.
func (b *Binarized) Close() error {
	var errs []error
	if b.m != nil {
		if err := b.m.Unmap(); err != nil {
			errs = append(errs, err)
		}
		b.m = nil
	}
	if b.f != nil {
		if err := b.f.Close(); err != nil {
			errs = append(errs, err)
		}
		b.f = nil
	}
	return errors.Join(errs...)
}

// WriteBinarized writes sentences in the binarized layout.
func WriteBinarized(path string, sentences [][]int32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dataset: %w", err)
	}

	write := func(p []byte) {
		if err == nil {
			_, err = f.Write(p)
		}
	}

	var u64 [8]byte
	write([]byte(binMagic))
	binary.LittleEndian.PutUint64(u64[:], uint64(len(sentences)))
	write(u64[:])

	var offset uint64
	for _, s := range sentences {
		binary.LittleEndian.PutUint64(u64[:], offset)
		write(u64[:])
		offset += uint64(len(s))
	}
	binary.LittleEndian.PutUint64(u64[:], offset)
	write(u64[:])

	var u32 [4]byte
	for _, s := range sentences {
		for _, id := range s {
			binary.LittleEndian.PutUint32(u32[:], uint32(id))
			write(u32[:])
		}
	}

	if err != nil {
		_ = f.Close()
		return fmt.Errorf("writing dataset: %w", err)
	}
	return f.Close()
}
