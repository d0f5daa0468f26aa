package genai

import (
	"errors"
	"io"
	"strings"
)

// Text returns the concatenated non-thought text of the first candidate.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].Text()
}

func (c *Candidate) Text() string {
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p == nil || p.Text == nil || (p.Thought != nil && *p.Thought) {
			continue
		}
		b.WriteString(*p.Text)
	}
	return b.String()
}

// Accumulator merges streamed chunks into one response. Adjacent text parts
// of a candidate are concatenated; other parts are appended as they arrive.
// Per-candidate metadata and the response-level feedback and usage keep the
// last value seen.
type Accumulator struct {
	resp  GenerateContentResponse
	index map[int32]*Candidate

	Chunks       int
	DecodeErrors int
}

func (a *Accumulator) Apply(chunk *GenerateContentResponse) {
	if chunk == nil {
		return
	}
	a.Chunks++
	if a.index == nil {
		a.index = make(map[int32]*Candidate)
	}
	for i, c := range chunk.Candidates {
		if c == nil {
			continue
		}
		idx := int32(i)
		if c.Index != nil {
			idx = *c.Index
		}
		dst, ok := a.index[idx]
		if !ok {
			dst = &Candidate{Index: Ptr(idx)}
			a.index[idx] = dst
			a.resp.Candidates = append(a.resp.Candidates, dst)
		}
		mergeCandidate(dst, c)
	}
	if chunk.PromptFeedback != nil {
		a.resp.PromptFeedback = chunk.PromptFeedback
	}
	if chunk.UsageMetadata != nil {
		a.resp.UsageMetadata = chunk.UsageMetadata
	}
	if chunk.ModelVersion != "" {
		a.resp.ModelVersion = chunk.ModelVersion
	}
}

func mergeCandidate(dst, src *Candidate) {
	if src.Content != nil {
		if dst.Content == nil {
			dst.Content = &Content{}
		}
		if src.Content.Role != "" {
			dst.Content.Role = src.Content.Role
		}
		for _, p := range src.Content.Parts {
			if p == nil {
				continue
			}
			dst.Content.Parts = appendPart(dst.Content.Parts, p)
		}
	}
	if src.FinishReason != "" {
		dst.FinishReason = src.FinishReason
	}
	if src.FinishMessage != "" {
		dst.FinishMessage = src.FinishMessage
	}
	if len(src.SafetyRatings) > 0 {
		dst.SafetyRatings = src.SafetyRatings
	}
	if src.CitationMetadata != nil {
		if dst.CitationMetadata == nil {
			dst.CitationMetadata = &CitationMetadata{}
		}
		dst.CitationMetadata.Citations = append(dst.CitationMetadata.Citations, src.CitationMetadata.Citations...)
	}
	if src.GroundingMetadata != nil {
		dst.GroundingMetadata = src.GroundingMetadata
	}
	if src.TokenCount != nil {
		dst.TokenCount = src.TokenCount
	}
	if src.AvgLogprobs != nil {
		dst.AvgLogprobs = src.AvgLogprobs
	}
	if src.LogprobsResult != nil {
		dst.LogprobsResult = src.LogprobsResult
	}
}

// appendPart folds a text-only part into a preceding text-only part of the
// same kind (thought or answer).
func appendPart(parts []*Part, p *Part) []*Part {
	if n := len(parts); n > 0 && isTextOnly(p) && isTextOnly(parts[n-1]) && isThought(p) == isThought(parts[n-1]) {
		merged := *parts[n-1].Text + *p.Text
		parts[n-1].Text = &merged
		return parts
	}
	cp := *p
	return append(parts, &cp)
}

func isTextOnly(p *Part) bool {
	return p.Text != nil && p.InlineData == nil && p.FileData == nil && p.FunctionCall == nil &&
		p.FunctionResponse == nil && p.ExecutableCode == nil && p.CodeExecutionResult == nil && p.VideoMetadata == nil
}

func isThought(p *Part) bool { return p.Thought != nil && *p.Thought }

// Response returns the merged response so far.
func (a *Accumulator) Response() *GenerateContentResponse {
	out := a.resp
	return &out
}

// DrainStream reads s to the end and returns the merged response. Frames that
// fail to decode are skipped and counted; any other error stops the drain.
// The stream is closed on return.
func DrainStream(s *Stream) (*GenerateContentResponse, error) {
	defer s.Close()

	var acc Accumulator
	for {
		chunk, err := s.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if IsRecoverable(err) {
				acc.DecodeErrors++
				continue
			}
			return nil, err
		}
		acc.Apply(chunk)
	}
	return acc.Response(), nil
}
