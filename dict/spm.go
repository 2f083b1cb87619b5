package dict

import (
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// SentencePiece piece types, from sentencepiece_model.proto. Pieces with no
// explicit type are NORMAL.
const (
	pieceNormal      = 1
	pieceUnknown     = 2
	pieceControl     = 3
	pieceUserDefined = 4
	pieceUnused      = 5
	pieceByte        = 6
)

// LoadSentencePiece builds a Dictionary from a SentencePiece .model file.
// Only the vocabulary is used; scores are ignored. Control and unknown pieces
// map onto the reserved ids, so regular pieces start at id 4.
//
// The ModelProto is walked with protowire rather than generated bindings: the
// loader needs a single repeated field (1: pieces, each with 1: piece string,
// 3: type) and skips everything else.
func LoadSentencePiece(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}

	d := New()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("parsing model: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if num == 1 && typ == protowire.BytesType {
			piece, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("parsing piece: %w", protowire.ParseError(n))
			}
			data = data[n:]

			sym, ptype, err := parsePiece(piece)
			if err != nil {
				return nil, err
			}
			switch ptype {
			case pieceNormal, pieceUserDefined, pieceByte:
				d.AddSymbol(sym)
			}
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, fmt.Errorf("parsing model field %d: %w", num, protowire.ParseError(n))
		}
		data = data[n:]
	}
	return d, nil
}

func parsePiece(data []byte) (sym string, ptype int, err error) {
	ptype = pieceNormal
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", 0, fmt.Errorf("parsing piece: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return "", 0, fmt.Errorf("parsing piece text: %w", protowire.ParseError(n))
			}
			data = data[n:]
			sym = string(b)
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return "", 0, fmt.Errorf("parsing piece type: %w", protowire.ParseError(n))
			}
			data = data[n:]
			ptype = int(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", 0, fmt.Errorf("parsing piece field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return sym, ptype, nil
}
