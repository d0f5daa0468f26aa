package genai

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// endSpan records err (if any) and ends span.
func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	var ae *APIError
	if errors.As(err, &ae) {
		span.SetAttributes(attribute.Int("http.response.status_code", ae.StatusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, codes.Ok.String())
	}
	span.End()
}

// setUsageAttributes records only the counts the server reported.
func setUsageAttributes(span trace.Span, u *UsageMetadata) {
	for key, n := range map[string]*int32{
		"gen_ai.usage.input_tokens":  u.PromptTokenCount,
		"gen_ai.usage.output_tokens": u.CandidatesTokenCount,
		"gen_ai.usage.total_tokens":  u.TotalTokenCount,
	} {
		if n != nil {
			span.SetAttributes(attribute.Int(key, int(*n)))
		}
	}
}
