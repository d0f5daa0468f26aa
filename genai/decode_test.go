package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChunk_UsageAbsentVersusZero(t *testing.T) {
	empty, err := decodeChunk([]byte(`{"usageMetadata":{}}`))
	require.NoError(t, err)
	zero, err := decodeChunk([]byte(`{"usageMetadata":{"promptTokenCount":0,"totalTokenCount":7}}`))
	require.NoError(t, err)

	assert.NotEqual(t, empty.UsageMetadata, zero.UsageMetadata)
	assert.Nil(t, empty.UsageMetadata.PromptTokenCount)
	assert.Nil(t, empty.UsageMetadata.TotalTokenCount)
	assert.Equal(t, Ptr[int32](0), zero.UsageMetadata.PromptTokenCount)
	assert.Equal(t, Ptr[int32](7), zero.UsageMetadata.TotalTokenCount)
	assert.Nil(t, zero.UsageMetadata.CandidatesTokenCount)
}

func TestDecodeChunk_CitationDateFields(t *testing.T) {
	chunk, err := decodeChunk([]byte(`{"candidates":[{"citationMetadata":{"citations":[{"publicationDate":{"year":2024,"month":0}}]}}]}`))
	require.NoError(t, err)

	d := chunk.Candidates[0].CitationMetadata.Citations[0].PublicationDate
	require.NotNil(t, d)
	assert.Equal(t, Ptr[int32](2024), d.Year)
	assert.Equal(t, Ptr[int32](0), d.Month)
	assert.Nil(t, d.Day)
}

func TestDecodeChunk_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "null", payload: "null", want: "not a JSON object"},
		{name: "array", payload: `[{"candidates":[]}]`},
		{name: "string", payload: `"hello"`},
		{name: "number", payload: "42"},
		{name: "malformed", payload: "{not json"},
		{name: "error object", payload: `{"error":{"code":500,"message":"backend hiccup","status":"INTERNAL"}}`, want: "backend hiccup (INTERNAL)"},
		{name: "error string", payload: `{"error":"boom"}`, want: "boom"},
		{name: "error null", payload: `{"error":null}`, want: "unknown error"},
		{name: "error number", payload: `{"error":503}`, want: "503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, err := decodeChunk([]byte(tt.payload))
			assert.Nil(t, chunk)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.payload, string(de.Raw))
			assert.True(t, IsRecoverable(err))
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestDecodeChunk_EmptyObjectIsChunk(t *testing.T) {
	chunk, err := decodeChunk([]byte(" {} \n"))
	require.NoError(t, err)
	assert.Empty(t, chunk.Candidates)
	assert.Nil(t, chunk.UsageMetadata)
}
