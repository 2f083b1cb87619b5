package inference

import (
	"context"
	"fmt"

	"github.com/jamesainslie/go-beam"
)

// Model adapts a session pool to the beam.Model interface. It is safe for
// concurrent use; each call borrows a session for its duration.
type Model struct {
	pool      *Pool
	vocabSize int
}

// NewModel loads an encoder/decoder pair and wraps it in a session pool of
// poolSize sessions.
func NewModel(encoderPath, decoderPath string, vocabSize int, decoderStart int32, poolSize int) (*Model, error) {
	pool, err := NewPool(encoderPath, decoderPath, vocabSize, decoderStart, poolSize)
	if err != nil {
		return nil, err
	}
	return &Model{pool: pool, vocabSize: vocabSize}, nil
}

// Encode implements beam.Model.
func (m *Model) Encode(ctx context.Context, src []int32) (beam.State, error) {
	session, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer m.pool.Release(session)

	return session.Encode(ctx, src)
}

// Step implements beam.Model.
func (m *Model) Step(ctx context.Context, st beam.State, prefix []int32) ([]float32, error) {
	enc, ok := st.(*Encoding)
	if !ok {
		return nil, fmt.Errorf("unexpected state type %T", st)
	}

	session, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer m.pool.Release(session)

	return session.Step(ctx, enc, prefix)
}

// VocabSize returns the vocabulary size the model was loaded with.
func (m *Model) VocabSize() int { return m.vocabSize }

// Close releases all sessions.
func (m *Model) Close() error { return m.pool.Close() }
