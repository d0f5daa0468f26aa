package genai

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSSE = ": keep-alive\n\n" +
	"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n" +
	"event: message\r\nid: 7\r\ndata: {\"a\":\r\ndata:  1}\r\n\r\n" +
	"retry: 1000\n\n" +
	"data:[DONE]\n\n" +
	"data: tail"

func decodeAll(chunks ...string) [][]byte {
	var d frameDecoder
	var out [][]byte
	for _, c := range chunks {
		out = append(out, d.Feed([]byte(c))...)
	}
	if data, ok := d.Flush(); ok {
		out = append(out, data)
	}
	return out
}

func TestFrameDecoder_WholeInput(t *testing.T) {
	got := decodeAll(sampleSSE)
	want := [][]byte{
		[]byte(`{"candidates":[{"content":{"parts":[{"text":"Hel"}]}}]}`),
		[]byte("{\"a\":\n 1}"),
		[]byte("[DONE]"),
		[]byte("tail"),
	}
	assert.Equal(t, want, got)
}

func TestFrameDecoder_SplitIndependence(t *testing.T) {
	want := decodeAll(sampleSSE)

	for i := 0; i <= len(sampleSSE); i++ {
		require.Equal(t, want, decodeAll(sampleSSE[:i], sampleSSE[i:]), "split at %d", i)
	}
	for i := 0; i <= len(sampleSSE); i++ {
		for j := i; j <= len(sampleSSE); j++ {
			got := decodeAll(sampleSSE[:i], sampleSSE[i:j], sampleSSE[j:])
			require.Equal(t, want, got, "split at %d,%d", i, j)
		}
	}

	bytewise := make([]string, 0, len(sampleSSE))
	for i := range sampleSSE {
		bytewise = append(bytewise, sampleSSE[i:i+1])
	}
	assert.Equal(t, want, decodeAll(bytewise...))
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  string
		ok    bool
	}{
		{name: "single data", block: "data: x", want: "x", ok: true},
		{name: "no space", block: "data:x", want: "x", ok: true},
		{name: "only one space stripped", block: "data:   x", want: "  x", ok: true},
		{name: "multi line joined", block: "data: a\ndata: b\ndata: c", want: "a\nb\nc", ok: true},
		{name: "empty data line", block: "data:", want: "", ok: true},
		{name: "field without colon", block: "data", want: "", ok: true},
		{name: "comment only", block: ": ping", ok: false},
		{name: "other fields only", block: "event: x\nid: 1\nretry: 5", ok: false},
		{name: "unknown field ignored", block: "foo: bar\ndata: y", want: "y", ok: true},
		{name: "crlf", block: "data: a\r\ndata: b\r", want: "a\nb", ok: true},
		{name: "prefix is not data", block: "database: nope", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseFrame([]byte(tt.block))
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, string(got))
			}
		})
	}
}

func TestFrameDecoder_DropsFramesWithoutData(t *testing.T) {
	var d frameDecoder
	got := d.Feed([]byte("event: a\n\n: c\n\n\n\ndata: 1\n\n"))
	assert.Equal(t, [][]byte{[]byte("1")}, got)
	assert.Equal(t, 2, d.dropped)
}

func TestFrameDecoder_FlushWithoutTrailingFrame(t *testing.T) {
	var d frameDecoder
	d.Feed([]byte("data: 1\n\n\n"))
	_, ok := d.Flush()
	assert.False(t, ok)
}

func TestFrameDecoder_ResetDiscardsPartialFrame(t *testing.T) {
	var d frameDecoder
	assert.Empty(t, d.Feed([]byte("data: partial")))
	d.Reset()
	assert.Equal(t, [][]byte{[]byte("next")}, d.Feed([]byte("data: next\n\n")))
}

func TestFrameReader_OneByteReads(t *testing.T) {
	fr := newFrameReader(iotest.OneByteReader(strings.NewReader(sampleSSE)))

	var got []string
	for {
		data, err := fr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, string(data))
	}
	assert.Equal(t, []string{`{"candidates":[{"content":{"parts":[{"text":"Hel"}]}}]}`, "{\"a\":\n 1}", "[DONE]", "tail"}, got)
	assert.Equal(t, 2, fr.Dropped())
}

func TestFrameReader_DeliversFramesBeforeReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: 1\n\ndata: 2\n\ndata: partial"), iotest.ErrReader(boom))
	fr := newFrameReader(r)

	data, err := fr.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	data, err = fr.Next()
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))

	_, err = fr.Next()
	require.ErrorIs(t, err, boom)

	// The partial frame is never delivered and the error sticks.
	_, err = fr.Next()
	require.ErrorIs(t, err, boom)
}
