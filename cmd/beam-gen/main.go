// beam-gen translates an evaluation corpus with beam search and reports
// corpus BLEU against the references.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"

	beam "github.com/jamesainslie/go-beam"
	"github.com/jamesainslie/go-beam/bleu"
	"github.com/jamesainslie/go-beam/dict"
	"github.com/jamesainslie/go-beam/inference"
	"github.com/jamesainslie/go-beam/internal/dataset"
	"github.com/jamesainslie/go-beam/internal/meters"
)

func main() {
	var (
		encoderPath = flag.String("encoder", "", "Path to encoder ONNX model (required)")
		decoderPath = flag.String("decoder", "", "Path to decoder ONNX model (required)")
		srcDictPath = flag.String("src-dict", "", "Source dictionary: text dict or SentencePiece .model (required)")
		dstDictPath = flag.String("dst-dict", "", "Target dictionary: text dict or SentencePiece .model (required)")
		srcPath     = flag.String("src", "", "Source sentences: text file or binarized .bin dataset (required)")
		refPath     = flag.String("ref", "", "Reference sentences: text file or binarized .bin dataset (required)")
		batchSize   = flag.Int("batch-size", 32, "Sentences per generation batch")
		beamSize    = flag.Int("beam", 5, "Beam width")
		nbest       = flag.Int("nbest", 1, "Hypotheses to display per sentence")
		maxLenA     = flag.Float64("max-len-a", 0, "Max output length: a*srcLen + b")
		maxLenB     = flag.Int("max-len-b", 200, "Max output length: a*srcLen + b")
		noEarlyStop = flag.Bool("no-early-stop", false, "Keep decoding until all hypotheses complete")
		unnormal    = flag.Bool("unnormalized", false, "Report raw cumulative scores")
		lenPen      = flag.Float64("lenpen", 1, "Length normalization exponent")
		bpeMarker   = flag.String("remove-bpe", "", `Subword marker to remove from output, e.g. "@@ "`)
		poolSize    = flag.Int("pool-size", runtime.NumCPU(), "ONNX session pool size")
		quiet       = flag.Bool("quiet", false, "Suppress per-sentence output")
	)
	flag.Parse()

	for name, v := range map[string]*string{
		"encoder": encoderPath, "decoder": decoderPath,
		"src-dict": srcDictPath, "dst-dict": dstDictPath,
		"src": srcPath, "ref": refPath,
	} {
		if *v == "" {
			fmt.Fprintf(os.Stderr, "error: -%s required\n", name)
			flag.Usage()
			os.Exit(1)
		}
	}

	srcDict := loadDict(*srcDictPath)
	dstDict := loadDict(*dstDictPath)
	fmt.Printf("| source dictionary: %d types\n", srcDict.Len())
	fmt.Printf("| target dictionary: %d types\n", dstDict.Len())

	srcData, srcClose := loadData(*srcPath, srcDict)
	defer srcClose()
	refData, refClose := loadData(*refPath, dstDict)
	defer refClose()

	pairs, err := dataset.Pairs(srcData, refData)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("| %d examples\n", len(pairs))

	model, err := inference.NewModel(*encoderPath, *decoderPath, dstDict.Len(), dstDict.Eos(), *poolSize)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = model.Close() }()

	opts := []beam.Option{
		beam.WithBeamSize(*beamSize),
		beam.WithMaxLen(*maxLenA, *maxLenB),
		beam.WithLenPenalty(*lenPen),
	}
	if *noEarlyStop {
		opts = append(opts, beam.WithoutEarlyStop())
	}
	if *unnormal {
		opts = append(opts, beam.WithoutScoreNormalization())
	}
	gen, err := beam.New(model, dstDict, opts...)
	if err != nil {
		fatal(err)
	}

	// With subword re-indexing the original ids are invalid, so padding is
	// no longer identifiable; a -1 sentinel keeps the scorer id-agnostic.
	scorerEOS := dstDict.Eos()
	ignore := bleu.IgnoreID(dstDict.Pad())
	if *bpeMarker != "" {
		scorerEOS = -1
		ignore = bleu.IgnoreID(-1)
	}
	scorer := bleu.NewScorer(scorerEOS, ignore)
	reindex := newReindexer(dstDict, *bpeMarker)

	ctx := context.Background()
	wps := meters.NewTimeMeter()
	genTimer := &meters.StopwatchMeter{}
	sentences := 0

	for _, batch := range dataset.Batches(pairs, *batchSize) {
		srcs := make([][]int32, len(batch))
		for i, p := range batch {
			srcs[i] = p.Src
		}

		genTimer.Start()
		results, err := gen.Generate(ctx, srcs)
		genTimer.Stop(hypoTokens(results))

		if err != nil {
			fatal(err)
		}

		for i, p := range batch {
			ranked := results[i]
			if len(ranked) == 0 {
				fatal(fmt.Errorf("no hypotheses for sentence %d", p.ID))
			}

			masked := dict.MaskUnknowns(p.Ref, dstDict.Unk())
			scorer.Add(reindex(masked, true), reindex(ranked[0].Tokens, false))

			if !*quiet {
				display(p, ranked, srcDict, dstDict, *bpeMarker, *nbest)
			}

			wps.Update(int64(len(p.Src)))
			sentences++
		}
	}

	fmt.Printf("| Translated %s sentences (%s tokens) in %.1fs (%.2f tokens/s)\n",
		humanize.Comma(int64(sentences)), humanize.Comma(genTimer.N()),
		genTimer.Sum().Seconds(), float64(genTimer.N())/genTimer.Sum().Seconds())
	fmt.Printf("| source words/s: %.0f\n", wps.Avg())
	fmt.Printf("| Generate with beam=%d: %s\n", *beamSize, scorer.ResultString())
}

func loadDict(path string) *dict.Dictionary {
	var (
		d   *dict.Dictionary
		err error
	)
	if strings.HasSuffix(path, ".model") {
		d, err = dict.LoadSentencePiece(path)
	} else {
		d, err = dict.Load(path)
	}
	if err != nil {
		fatal(err)
	}
	return d
}

func loadData(path string, d *dict.Dictionary) (dataset.Source, func()) {
	if strings.HasSuffix(path, ".bin") {
		b, err := dataset.OpenBinarized(path)
		if err != nil {
			fatal(err)
		}
		return b, func() { _ = b.Close() }
	}
	t, err := dataset.LoadText(path, d, true)
	if err != nil {
		fatal(err)
	}
	return t, func() {}
}

// newReindexer maps token sequences into a subword-free id space when a BPE
// marker is configured. Words are re-fused textually first, then assigned
// fresh ids from a shared on-the-fly dictionary. Reference unknowns render in
// the marker form so they keep failing to match hypothesis unknowns after
// re-indexing.
func newReindexer(d *dict.Dictionary, marker string) func(tokens []int32, ref bool) []int32 {
	if marker == "" {
		return func(tokens []int32, _ bool) []int32 { return tokens }
	}

	ids := make(map[string]int32)
	return func(tokens []int32, ref bool) []int32 {
		opts := []dict.RenderOption{dict.WithBPERemoval(marker)}
		if ref {
			opts = append(opts, dict.WithUnknownMarkers())
		}
		sent, err := d.Sentence(tokens, opts...)
		if err != nil {
			fatal(err)
		}
		words := strings.Fields(sent)
		out := make([]int32, len(words))
		for i, w := range words {
			id, ok := ids[w]
			if !ok {
				id = int32(len(ids))
				ids[w] = id
			}
			out[i] = id
		}
		return out
	}
}

func display(p dataset.Pair, ranked []beam.Hypothesis, srcDict, dstDict *dict.Dictionary, marker string, nbest int) {
	var bpe []dict.RenderOption
	if marker != "" {
		bpe = append(bpe, dict.WithBPERemoval(marker))
	}

	src, err := srcDict.Sentence(p.Src, bpe...)
	if err != nil {
		fatal(err)
	}
	ref, err := dstDict.Sentence(p.Ref, append(bpe, dict.WithUnknownMarkers())...)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("S-%d\t%s\n", p.ID, src)
	fmt.Printf("T-%d\t%s\n", p.ID, ref)
	if nbest > len(ranked) {
		nbest = len(ranked)
	}
	for _, h := range ranked[:nbest] {
		hyp, err := dstDict.Sentence(h.Tokens, bpe...)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("H-%d\t%f\t%s\n", p.ID, h.Score, hyp)
	}
}

func hypoTokens(results [][]beam.Hypothesis) int64 {
	var n int64
	for _, ranked := range results {
		if len(ranked) > 0 {
			n += int64(len(ranked[0].Tokens))
		}
	}
	return n
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
