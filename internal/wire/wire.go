// Package wire turns the raw body of a GetNextTurn response into a snapshot.
//
// The server answers with either the literal "0" (nothing new yet) or a JSON
// object, sometimes preceded by stray output such as PHP warnings.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/turnsync/pkg/types"
)

const noUpdateSentinel = "0"

var ErrNoUpdate = errors.New("no update")
var ErrMalformedPayload = errors.New("malformed payload")

type Result struct {
	Snapshot types.Snapshot
	// Prefix holds whatever preceded the first '{', for diagnostics.
	Prefix string
}

// IsNoUpdate reports whether body is the "nothing new" answer.
func IsNoUpdate(body []byte) bool {
	return string(bytes.TrimSpace(body)) == noUpdateSentinel
}

func Parse(body []byte) (Result, error) {
	if IsNoUpdate(body) {
		return Result{}, ErrNoUpdate
	}
	trimmed := bytes.TrimSpace(body)

	idx := bytes.IndexByte(trimmed, '{')
	if idx < 0 {
		return Result{}, fmt.Errorf("%w: no object in %d bytes", ErrMalformedPayload, len(trimmed))
	}

	var res Result
	if idx > 0 {
		res.Prefix = string(trimmed[:idx])
	}
	if err := json.Unmarshal(trimmed[idx:], &res.Snapshot); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return res, nil
}
