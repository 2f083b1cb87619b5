//go:build ignore

// Binarize a tokenized text corpus for beam-gen.
// Usage: go run ./scripts/make-dataset.go -dict dict.txt -in corpus.tok -out corpus.bin
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jamesainslie/go-beam/dict"
	"github.com/jamesainslie/go-beam/internal/dataset"
)

func main() {
	dictPath := flag.String("dict", "", "Dictionary file")
	inPath := flag.String("in", "", "Tokenized text corpus, one sentence per line")
	outPath := flag.String("out", "", "Output .bin dataset")
	appendEOS := flag.Bool("eos", true, "Append eos to every sentence")
	flag.Parse()

	if *dictPath == "" || *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -dict, -in and -out required")
		flag.Usage()
		os.Exit(1)
	}

	d, err := dict.Load(*dictPath)
	if err != nil {
		fatal(err)
	}

	text, err := dataset.LoadText(*inPath, d, *appendEOS)
	if err != nil {
		fatal(err)
	}

	sentences := make([][]int32, text.Len())
	tokens := 0
	for i := range sentences {
		sentences[i] = text.Sentence(i)
		tokens += len(sentences[i])
	}

	if err := dataset.WriteBinarized(*outPath, sentences); err != nil {
		fatal(err)
	}
	fmt.Printf("wrote %d sentences (%d tokens) to %s\n", len(sentences), tokens, *outPath)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
