package genai

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

var errNotObject = errors.New("payload is not a JSON object")

// decodeChunk parses one data payload. Unknown fields are ignored and absent
// ones stay nil. Only a JSON object is a chunk: null, arrays and scalars are
// DecodeErrors. The service occasionally reports an error in-band as an
// {"error":...} payload; that is a DecodeError too, not a chunk.
func decodeChunk(data []byte) (*GenerateContentResponse, error) {
	raw := bytes.TrimSpace(data)

	var chunk GenerateContentResponse
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, &DecodeError{Raw: bytes.Clone(data), Cause: err}
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return nil, &DecodeError{Raw: bytes.Clone(data), Cause: errNotObject}
	}
	if err := inBandError(raw); err != nil {
		return nil, &DecodeError{Raw: bytes.Clone(data), Cause: err}
	}
	return &chunk, nil
}
