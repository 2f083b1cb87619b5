// Package inference runs encoder-decoder translation models with ONNX
// Runtime and exposes them as a beam.Model.
package inference

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Encoding holds the encoder's hidden states for one source sentence.
type Encoding struct {
	hidden []float32
	seqLen int64
	dim    int64
}

// Session wraps an encoder/decoder ONNX session pair. The graph layout is the
// HuggingFace ONNX export convention: the encoder maps input_ids and
// attention_mask to last_hidden_state; the decoder maps input_ids,
// encoder_hidden_states and encoder_attention_mask to logits.
type Session struct {
	encoder      *ort.DynamicAdvancedSession
	decoder      *ort.DynamicAdvancedSession
	vocabSize    int
	decoderStart int32
	mu           sync.Mutex
	closed       bool
}

// NewSession loads an encoder/decoder model pair. decoderStart is the id fed
// to the decoder before any generated token, conventionally eos or a
// dedicated decoder-start id.
func NewSession(encoderPath, decoderPath string, vocabSize int, decoderStart int32) (*Session, error) {
	for _, p := range []string{encoderPath, decoderPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("model file: %w", err)
		}
	}
	if vocabSize <= 0 {
		return nil, fmt.Errorf("vocabulary size %d", vocabSize)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }() // Cleanup error doesn't affect success

	encoder, err := ort.NewDynamicAdvancedSession(
		encoderPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder session: %w", err)
	}

	decoder, err := ort.NewDynamicAdvancedSession(
		decoderPath,
		[]string{"input_ids", "encoder_hidden_states", "encoder_attention_mask"},
		[]string{"logits"},
		options,
	)
	if err != nil {
		_ = encoder.Destroy()
		return nil, fmt.Errorf("creating decoder session: %w", err)
	}

	return &Session{
		encoder:      encoder,
		decoder:      decoder,
		vocabSize:    vocabSize,
		decoderStart: decoderStart,
	}, nil
}

// Encode runs the encoder over one source sentence.
func (s *Session) Encode(ctx context.Context, src []int32) (*Encoding, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(src) == 0 {
		return nil, fmt.Errorf("empty source sentence")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}

	seqLen := int64(len(src))
	inputIDs := make([]int64, len(src))
	attentionMask := make([]int64, len(src))
	for i, id := range src {
		inputIDs[i] = int64(id)
		attentionMask[i] = 1
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	maskTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), attentionMask)
	if err != nil {
		return nil, fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	defer func() { _ = maskTensor.Destroy() }()

	outputs := []ort.Value{nil}
	if err := s.encoder.Run([]ort.Value{inputTensor, maskTensor}, outputs); err != nil {
		return nil, fmt.Errorf("running encoder: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("encoder produced no output")
	}
	defer func() { _ = outputs[0].Destroy() }()

	hiddenTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected encoder output tensor type")
	}

	shape := hiddenTensor.GetShape()
	if len(shape) != 3 || shape[1] != seqLen {
		return nil, fmt.Errorf("unexpected encoder output shape %v", shape)
	}
	dim := shape[2]

	hidden := make([]float32, seqLen*dim)
	copy(hidden, hiddenTensor.GetData())

	return &Encoding{hidden: hidden, seqLen: seqLen, dim: dim}, nil
}

// Step returns log-probabilities over the vocabulary for the token following
// prefix, conditioned on the encoded source.
func (s *Session) Step(ctx context.Context, enc *Encoding, prefix []int32) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}

	// Decoder input is the start token followed by the generated history.
	inputIDs := make([]int64, len(prefix)+1)
	inputIDs[0] = int64(s.decoderStart)
	for i, id := range prefix {
		inputIDs[i+1] = int64(id)
	}
	decLen := int64(len(inputIDs))

	inputTensor, err := ort.NewTensor(ort.NewShape(1, decLen), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	hiddenTensor, err := ort.NewTensor(ort.NewShape(1, enc.seqLen, enc.dim), enc.hidden)
	if err != nil {
		return nil, fmt.Errorf("creating encoder_hidden_states tensor: %w", err)
	}
	defer func() { _ = hiddenTensor.Destroy() }()

	srcMask := make([]int64, enc.seqLen)
	for i := range srcMask {
		srcMask[i] = 1
	}
	maskTensor, err := ort.NewTensor(ort.NewShape(1, enc.seqLen), srcMask)
	if err != nil {
		return nil, fmt.Errorf("creating encoder_attention_mask tensor: %w", err)
	}
	defer func() { _ = maskTensor.Destroy() }()

	outputs := []ort.Value{nil}
	if err := s.decoder.Run([]ort.Value{inputTensor, hiddenTensor, maskTensor}, outputs); err != nil {
		return nil, fmt.Errorf("running decoder: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("decoder produced no output")
	}
	defer func() { _ = outputs[0].Destroy() }()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected decoder output tensor type")
	}

	shape := logitsTensor.GetShape()
	if len(shape) != 3 || shape[1] != decLen || int(shape[2]) != s.vocabSize {
		return nil, fmt.Errorf("unexpected decoder output shape %v, vocabulary %d", shape, s.vocabSize)
	}

	// Only the final position matters for the next token.
	data := logitsTensor.GetData()
	last := make([]float32, s.vocabSize)
	copy(last, data[(decLen-1)*int64(s.vocabSize):decLen*int64(s.vocabSize)])

	return logSoftmax(last), nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.encoder != nil {
		if err := s.encoder.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.decoder != nil {
		if err := s.decoder.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing session: %v", errs)
	}
	return nil
}

// logSoftmax converts logits to log-probabilities, accumulating in float64
// for stability.
func logSoftmax(logits []float32) []float32 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - max))
	}
	logZ := math.Log(sum) + float64(max)

	out := make([]float32, len(logits))
	for i, v := range logits {
		out[i] = float32(float64(v) - logZ)
	}
	return out
}
