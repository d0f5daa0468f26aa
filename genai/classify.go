package genai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

type outcomeKind int

const (
	outcomeChunk outcomeKind = iota
	outcomeDone
	outcomeDecodeError
	outcomeTransportError
	outcomeAPIError
)

// outcome is what one pull of the pipeline produced. It is consumed by the
// stream immediately and never kept.
type outcome struct {
	kind  outcomeKind
	chunk *GenerateContentResponse
	err   error
}

var doneSentinel = []byte("[DONE]")

// classifyOpen maps a failure to obtain the streaming response. A non-2xx
// status becomes an APIError before any frame is read.
func classifyOpen(ctx context.Context, err error) outcome {
	err = withContextCause(ctx, err)
	e := classifyDoError("send request", err)
	if _, ok := e.(*APIError); ok {
		return outcome{kind: outcomeAPIError, err: e}
	}
	return outcome{kind: outcomeTransportError, err: e}
}

// classifyNext maps the result of frameReader.Next.
func classifyNext(ctx context.Context, data []byte, err error) outcome {
	switch {
	case err == nil:
		return classifyFrame(data)
	case errors.Is(err, io.EOF):
		// No sentinel: the server just closed the body. That is a clean end.
		return outcome{kind: outcomeDone}
	default:
		return outcome{kind: outcomeTransportError, err: &TransportError{Op: "read stream", Cause: withContextCause(ctx, err)}}
	}
}

func classifyFrame(data []byte) outcome {
	if bytes.Equal(bytes.TrimSpace(data), doneSentinel) {
		return outcome{kind: outcomeDone}
	}
	chunk, err := decodeChunk(data)
	if err != nil {
		return outcome{kind: outcomeDecodeError, err: err}
	}
	return outcome{kind: outcomeChunk, chunk: chunk}
}

// withContextCause makes errors.Is(err, context.Canceled) hold when the read
// failed because ctx ended, whatever error the transport surfaced.
func withContextCause(ctx context.Context, err error) error {
	if ctx == nil {
		return err
	}
	cerr := ctx.Err()
	if cerr == nil || errors.Is(err, cerr) {
		return err
	}
	return fmt.Errorf("%w: %w", cerr, err)
}
