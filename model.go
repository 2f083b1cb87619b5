package beam

import "context"

// State is an opaque per-sentence encoder representation. The generator
// threads it through Step calls without inspecting it.
type State = any

// Model computes next-token score distributions for the generator. The
// inference package provides an ONNX Runtime implementation; tests supply
// deterministic fakes.
type Model interface {
	// Encode prepares one source sentence and returns its representation.
	Encode(ctx context.Context, src []int32) (State, error)

	// Step returns log-probabilities over the vocabulary for the token
	// following prefix, conditioned on the encoded source. The returned
	// slice must have one finite entry per dictionary id.
	Step(ctx context.Context, st State, prefix []int32) ([]float32, error)
}
