// beam-cli translates text given on the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	beam "github.com/jamesainslie/go-beam"
	"github.com/jamesainslie/go-beam/dict"
	"github.com/jamesainslie/go-beam/inference"
)

func main() {
	encoderPath := flag.String("encoder", "", "Path to encoder ONNX model")
	decoderPath := flag.String("decoder", "", "Path to decoder ONNX model")
	srcDictPath := flag.String("src-dict", "", "Path to source dictionary")
	dstDictPath := flag.String("dst-dict", "", "Path to target dictionary")
	beamSize := flag.Int("beam", 5, "Beam width")
	lenPen := flag.Float64("lenpen", 1, "Length normalization exponent")
	maxLenB := flag.Int("max-len-b", 200, "Maximum output length")
	bpeMarker := flag.String("remove-bpe", "", `Subword marker to remove from output, e.g. "@@ "`)

	flag.Parse()

	if *encoderPath == "" || *decoderPath == "" || *srcDictPath == "" || *dstDictPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: beam-cli -encoder ENC -decoder DEC -src-dict DICT -dst-dict DICT [OPTIONS] TEXT")
		flag.PrintDefaults()
		os.Exit(1)
	}

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		fmt.Fprintln(os.Stderr, "Error: no text provided")
		os.Exit(1)
	}

	srcDict, err := loadDict(*srcDictPath)
	if err != nil {
		fatal(err)
	}
	dstDict, err := loadDict(*dstDictPath)
	if err != nil {
		fatal(err)
	}

	model, err := inference.NewModel(*encoderPath, *decoderPath, dstDict.Len(), dstDict.Eos(), 1)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = model.Close() }()

	gen, err := beam.New(model, dstDict,
		beam.WithBeamSize(*beamSize),
		beam.WithLenPenalty(*lenPen),
		beam.WithMaxLen(0, *maxLenB),
	)
	if err != nil {
		fatal(err)
	}

	words := strings.Fields(text)
	src := make([]int32, 0, len(words)+1)
	for _, w := range words {
		src = append(src, srcDict.Index(w))
	}
	src = append(src, srcDict.Eos())

	results, err := gen.Generate(context.Background(), [][]int32{src})
	if err != nil {
		fatal(err)
	}

	var opts []dict.RenderOption
	if *bpeMarker != "" {
		opts = append(opts, dict.WithBPERemoval(*bpeMarker))
	}
	for _, h := range results[0] {
		out, err := dstDict.Sentence(h.Tokens, opts...)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%f\t%s\n", h.Score, out)
	}
}

func loadDict(path string) (*dict.Dictionary, error) {
	if strings.HasSuffix(path, ".model") {
		return dict.LoadSentencePiece(path)
	}
	return dict.Load(path)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
