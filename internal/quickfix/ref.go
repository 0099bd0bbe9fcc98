package quickfix

import (
	"encoding/base64"
	"fmt"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
	"github.com/vmihailenco/msgpack/v5"
)

// Ref names one cached fix of one generation. It travels to the editor as
// the argument of the apply command.
type Ref struct {
	URI        string         `msgpack:"u"`
	Generation uint64         `msgpack:"g"`
	Code       string         `msgpack:"c"`
	Range      protocol.Range `msgpack:"r"`
	Index      int            `msgpack:"i"`
}

// NewRef references fix index of the diagnostic id in generation gen
func NewRef(gen uint64, id diagnostic.Identity, index int) Ref {
	return Ref{
		URI:        id.URI,
		Generation: gen,
		Code:       string(id.Code),
		Range:      id.Range,
		Index:      index,
	}
}

// Identity returns the identity of the referenced diagnostic
func (r Ref) Identity() diagnostic.Identity {
	return diagnostic.Identity{URI: r.URI, Code: diagnostic.Code(r.Code), Range: r.Range}
}

// Encode returns the token form of the reference
func (r Ref) Encode() (string, error) {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode fix reference: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeRef parses a token produced by Encode
func DecodeRef(token string) (Ref, error) {
	var r Ref
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return r, fmt.Errorf("failed to decode fix reference: %w", err)
	}
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("failed to decode fix reference: %w", err)
	}
	if r.URI == "" {
		return r, fmt.Errorf("failed to decode fix reference: %w", ErrUnknownFix)
	}
	return r, nil
}
