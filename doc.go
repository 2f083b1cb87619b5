// Package beam generates translations from sequence-to-sequence models using
// batched beam search, and supports scoring them against reference corpora.
//
// # Quick Start
//
//	model, err := inference.NewModel("encoder.onnx", "decoder.onnx", dst.Len(), dst.Eos(), 1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	gen, err := beam.New(model, dst, beam.WithBeamSize(5))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hypos, err := gen.Generate(ctx, batch)
//
// Each entry of the returned slice holds up to beamSize hypotheses for the
// corresponding source sentence, best score first.
//
// # Thread Safety
//
// A Generator is safe for concurrent Generate calls as long as the underlying
// Model is. Every call owns its beams exclusively; no hypothesis is shared
// across sentences or across calls.
package beam
