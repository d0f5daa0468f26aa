package genai

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StreamState is the lifecycle position of a Stream. Completed, Failed and
// Closed are terminal.
type StreamState int

const (
	// StreamStateIdle: the request has not been sent yet.
	StreamStateIdle StreamState = iota
	// StreamStateStreaming: the response is open and chunks may follow.
	StreamStateStreaming
	// StreamStateCompleted: the server ended the stream cleanly.
	StreamStateCompleted
	// StreamStateFailed: a terminal error was returned by Recv.
	StreamStateFailed
	// StreamStateClosed: Close was called.
	StreamStateClosed
)

func (s StreamState) String() string {
	switch s {
	case StreamStateIdle:
		return "idle"
	case StreamStateStreaming:
		return "streaming"
	case StreamStateCompleted:
		return "completed"
	case StreamStateFailed:
		return "failed"
	case StreamStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type streamConfig struct {
	model     string
	requestID string
	open      func(ctx context.Context) (*http.Response, error)

	logger *slog.Logger
	tracer trace.Tracer
	usage  UsageListener
}

// Stream is a single-pass, pull-based sequence of chunks. The request is sent
// on the first Recv, and bytes are read from the connection only while Recv
// needs another frame.
//
// Recv returns io.EOF after a clean end, whether the server sent [DONE] or
// just closed the body. A *DecodeError is reported for one frame and the
// stream carries on; any other error is terminal and returned again by every
// later Recv. After Close, Recv returns ErrStreamClosed.
//
// A Stream is not safe for concurrent use. To interrupt a blocked Recv from
// another goroutine, cancel the context passed to GenerateContentStream.
type Stream struct {
	ctx context.Context
	cfg streamConfig
	log *slog.Logger

	state  StreamState
	err    error
	resp   *http.Response
	frames *frameReader
	span   trace.Span

	chunks       int
	decodeErrors int
	usage        *UsageMetadata
}

func newStream(ctx context.Context, cfg streamConfig) *Stream {
	return &Stream{
		ctx: ctx,
		cfg: cfg,
		log: cfg.logger.With("model", cfg.model, "request_id", cfg.requestID),
	}
}

// State reports where the stream is in its lifecycle.
func (s *Stream) State() StreamState { return s.state }

// Recv returns the next chunk. The first call sends the request. It returns
// io.EOF once the stream has completed, a *DecodeError for a frame that could
// not be decoded (the stream stays usable), and ErrStreamClosed after Close.
// Any other error is terminal and repeated on every later call.
func (s *Stream) Recv() (*GenerateContentResponse, error) {
	switch s.state {
	case StreamStateClosed:
		return nil, ErrStreamClosed
	case StreamStateCompleted:
		return nil, io.EOF
	case StreamStateFailed:
		return nil, s.err
	case StreamStateIdle:
		if out, ok := s.start(); !ok {
			return nil, s.handle(out)
		}
	}

	data, err := s.frames.Next()
	out := classifyNext(s.ctx, data, err)
	if out.kind == outcomeChunk {
		return out.chunk, s.handle(out)
	}
	return nil, s.handle(out)
}

func (s *Stream) start() (outcome, bool) {
	ctx := s.ctx
	if s.cfg.tracer != nil {
		ctx, s.span = s.cfg.tracer.Start(ctx, "genai.GenerateContentStream",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("gen_ai.system", "gemini"),
				attribute.String("gen_ai.request.model", s.cfg.model),
			),
		)
	}
	s.log.Debug("genai stream start")

	resp, err := s.cfg.open(ctx)
	if err != nil {
		return classifyOpen(ctx, err), false
	}
	s.resp = resp
	s.frames = newFrameReader(resp.Body)
	s.state = StreamStateStreaming
	return outcome{}, true
}

// handle applies one outcome to the stream and returns the error for Recv.
func (s *Stream) handle(out outcome) error {
	switch out.kind {
	case outcomeChunk:
		s.chunks++
		if out.chunk.UsageMetadata != nil {
			s.usage = out.chunk.UsageMetadata
		}
		return nil
	case outcomeDecodeError:
		s.decodeErrors++
		s.log.Debug("genai stream frame not decoded", "error", out.err)
		return out.err
	case outcomeDone:
		s.finish(StreamStateCompleted, nil)
		return io.EOF
	default:
		var ae *APIError
		if errors.As(out.err, &ae) {
			s.log.Warn("genai api error", "status", ae.StatusCode, "message", ae.Message)
		} else {
			s.log.Debug("genai stream transport error", "error", out.err)
		}
		s.finish(StreamStateFailed, out.err)
		return out.err
	}
}

// finish moves the stream into a terminal state and releases the connection.
func (s *Stream) finish(state StreamState, err error) error {
	s.state = state
	s.err = err

	var closeErr error
	if s.resp != nil && s.resp.Body != nil {
		closeErr = s.resp.Body.Close()
		s.resp = nil
	}
	if s.frames != nil {
		s.log.Debug("genai stream end",
			"state", state.String(),
			"chunks", s.chunks,
			"decode_errors", s.decodeErrors,
			"dropped_frames", s.frames.Dropped(),
		)
		s.frames.Discard()
		s.frames = nil
	}

	if s.usage != nil && s.cfg.usage != nil {
		s.cfg.usage.OnUsage(s.cfg.model, s.usage)
	}
	if s.span != nil {
		s.span.SetAttributes(
			attribute.String("genai.stream.state", state.String()),
			attribute.Int("genai.stream.chunks", s.chunks),
			attribute.Int("genai.stream.decode_errors", s.decodeErrors),
		)
		if s.usage != nil {
			setUsageAttributes(s.span, s.usage)
		}
		if state == StreamStateClosed {
			// Abandoned by the caller: the span status stays unset.
			s.span.End()
		} else {
			endSpan(s.span, err)
		}
		s.span = nil
	}
	return closeErr
}

// Close releases the connection. Buffered bytes are discarded. It is
// idempotent, and safe to call in any state.
func (s *Stream) Close() error {
	switch s.state {
	case StreamStateClosed:
		return nil
	case StreamStateCompleted, StreamStateFailed:
		s.state = StreamStateClosed
		return nil
	default:
		return s.finish(StreamStateClosed, nil)
	}
}

// All adapts the stream to range-over-func. Decode errors are yielded and the
// loop continues; a terminal error is yielded last. Leaving the loop early
// closes the stream.
func (s *Stream) All() iter.Seq2[*GenerateContentResponse, error] {
	return func(yield func(*GenerateContentResponse, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				if !yield(nil, err) || !IsRecoverable(err) {
					return
				}
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}
