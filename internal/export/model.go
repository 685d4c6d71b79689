package export

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/demandforge/invforecast/internal/domain"
)

// modelMagic is the persisted-model magic string.
const modelMagic = "STOCKSIGHT_MODEL_V1"

// ModelHeader is the versioned envelope wrapped around a strategy's
// opaque fitted payload.
type ModelHeader struct {
	Magic           string
	Granularity     domain.Granularity
	Horizon         int
	SKUs            []string
	EncoderManifest []string // feature names per SKU, flattened for inspection
}

// modelFile is the gob-encoded wire shape: header plus the
// caller-supplied, strategy-specific payload, kept opaque to this
// package.
type modelFile struct {
	Header  ModelHeader
	Payload []byte
}

// SaveModel writes header + payload to w. payload is whatever
// strategy-specific bytes the caller already encoded (e.g. via its own
// gob.Encode of a fitted struct); this package never inspects it.
func SaveModel(w io.Writer, header ModelHeader, payload []byte) error {
	header.Magic = modelMagic
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(modelFile{Header: header, Payload: payload}); err != nil {
		return fmt.Errorf("export: encode model: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("export: write model: %w", err)
	}
	return nil
}

// LoadModel reads and validates a model blob, rejecting a mismatched
// magic header.
func LoadModel(r io.Reader) (ModelHeader, []byte, error) {
	var mf modelFile
	if err := gob.NewDecoder(r).Decode(&mf); err != nil {
		return ModelHeader{}, nil, fmt.Errorf("export: decode model: %w", err)
	}
	if mf.Header.Magic != modelMagic {
		return ModelHeader{}, nil, fmt.Errorf("export: unrecognized model magic %q, want %q", mf.Header.Magic, modelMagic)
	}
	return mf.Header, mf.Payload, nil
}
