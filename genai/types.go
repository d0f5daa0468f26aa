package genai

import (
	"encoding/json"
	"time"
)

// GenerateContentRequest is the body of a generateContent or
// streamGenerateContent call. Model travels in the URL, not the body.
type GenerateContentRequest struct {
	Model string `json:"-"`

	Contents          []*Content        `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []*SafetySetting  `json:"safetySettings,omitempty"`
	Tools             []*Tool           `json:"tools,omitempty"`
	ToolConfig        *ToolConfig       `json:"toolConfig,omitempty"`
	CachedContent     string            `json:"cachedContent,omitempty"`
}

type Content struct {
	Role  string  `json:"role,omitempty"`
	Parts []*Part `json:"parts,omitempty"`
}

// Part is one piece of a Content. The fields are independent variants; the
// service does not guarantee that exactly one is set, and neither do we.
type Part struct {
	Text                *string              `json:"text,omitempty"`
	InlineData          *Blob                `json:"inlineData,omitempty"`
	FileData            *FileData            `json:"fileData,omitempty"`
	FunctionCall        *FunctionCall        `json:"functionCall,omitempty"`
	FunctionResponse    *FunctionResponse    `json:"functionResponse,omitempty"`
	ExecutableCode      *ExecutableCode      `json:"executableCode,omitempty"`
	CodeExecutionResult *CodeExecutionResult `json:"codeExecutionResult,omitempty"`
	VideoMetadata       *VideoMetadata       `json:"videoMetadata,omitempty"`
	Thought             *bool                `json:"thought,omitempty"`
}

// Blob is inline binary data; Data is base64 on the wire.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type FileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type ExecutableCode struct {
	Language Language `json:"language"`
	Code     string   `json:"code"`
}

type CodeExecutionResult struct {
	Outcome Outcome `json:"outcome"`
	Output  string  `json:"output,omitempty"`
}

// VideoMetadata offsets are protobuf Durations ("1.5s").
type VideoMetadata struct {
	StartOffset string `json:"startOffset,omitempty"`
	EndOffset   string `json:"endOffset,omitempty"`
}

type SafetySetting struct {
	Category  HarmCategory       `json:"category"`
	Threshold HarmBlockThreshold `json:"threshold"`
	Method    HarmBlockMethod    `json:"method,omitempty"`
}

// GenerationConfig is passed through to the service unvalidated.
type GenerationConfig struct {
	Temperature        *float64        `json:"temperature,omitempty"`
	TopP               *float64        `json:"topP,omitempty"`
	TopK               *float64        `json:"topK,omitempty"`
	CandidateCount     *int32          `json:"candidateCount,omitempty"`
	MaxOutputTokens    *int32          `json:"maxOutputTokens,omitempty"`
	StopSequences      []string        `json:"stopSequences,omitempty"`
	ResponseLogprobs   *bool           `json:"responseLogprobs,omitempty"`
	Logprobs           *int32          `json:"logprobs,omitempty"`
	PresencePenalty    *float64        `json:"presencePenalty,omitempty"`
	FrequencyPenalty   *float64        `json:"frequencyPenalty,omitempty"`
	Seed               *int64          `json:"seed,omitempty"`
	ResponseMIMEType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     *Schema         `json:"responseSchema,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	MediaResolution    MediaResolution `json:"mediaResolution,omitempty"`
	SpeechConfig       *SpeechConfig   `json:"speechConfig,omitempty"`
	RoutingConfig      *RoutingConfig  `json:"routingConfig,omitempty"`
	AudioTimestamp     *bool           `json:"audioTimestamp,omitempty"`
}

type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName,omitempty"`
}

type RoutingConfig struct {
	AutoMode   *AutoRoutingMode   `json:"autoMode,omitempty"`
	ManualMode *ManualRoutingMode `json:"manualMode,omitempty"`
}

type AutoRoutingMode struct {
	ModelRoutingPreference string `json:"modelRoutingPreference,omitempty"`
}

type ManualRoutingMode struct {
	ModelName string `json:"modelName,omitempty"`
}

// GenerateContentResponse is both the single-shot response and one streamed
// chunk.
type GenerateContentResponse struct {
	Candidates     []*Candidate    `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

// Chunk is one decoded streaming event.
type Chunk = GenerateContentResponse

type Candidate struct {
	Index             *int32             `json:"index,omitempty"`
	Content           *Content           `json:"content,omitempty"`
	FinishReason      FinishReason       `json:"finishReason,omitempty"`
	FinishMessage     string             `json:"finishMessage,omitempty"`
	SafetyRatings     []*SafetyRating    `json:"safetyRatings,omitempty"`
	CitationMetadata  *CitationMetadata  `json:"citationMetadata,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
	TokenCount        *int32             `json:"tokenCount,omitempty"`
	AvgLogprobs       *float64           `json:"avgLogprobs,omitempty"`
	LogprobsResult    *LogprobsResult    `json:"logprobsResult,omitempty"`
}

type SafetyRating struct {
	Category         HarmCategory    `json:"category,omitempty"`
	Probability      HarmProbability `json:"probability,omitempty"`
	ProbabilityScore *float64        `json:"probabilityScore,omitempty"`
	Severity         HarmSeverity    `json:"severity,omitempty"`
	SeverityScore    *float64        `json:"severityScore,omitempty"`
	Blocked          *bool           `json:"blocked,omitempty"`
}

type CitationMetadata struct {
	Citations []*Citation `json:"citations,omitempty"`
}

type Citation struct {
	StartIndex      *int32 `json:"startIndex,omitempty"`
	EndIndex        *int32 `json:"endIndex,omitempty"`
	URI             string `json:"uri,omitempty"`
	Title           string `json:"title,omitempty"`
	License         string `json:"license,omitempty"`
	PublicationDate *Date  `json:"publicationDate,omitempty"`
}

// Date is a calendar date; nil fields were not specified.
type Date struct {
	Year  *int32 `json:"year,omitempty"`
	Month *int32 `json:"month,omitempty"`
	Day   *int32 `json:"day,omitempty"`
}

// Time returns d as midnight UTC, or the zero time if Year is unset.
// A missing month or day counts as 1.
func (d Date) Time() time.Time {
	if d.Year == nil {
		return time.Time{}
	}
	month, day := max(valueOr(d.Month, 1), 1), max(valueOr(d.Day, 1), 1)
	return time.Date(int(*d.Year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC)
}

type GroundingMetadata struct {
	GroundingChunks   []*GroundingChunk   `json:"groundingChunks,omitempty"`
	GroundingSupports []*GroundingSupport `json:"groundingSupports,omitempty"`
	RetrievalMetadata *RetrievalMetadata  `json:"retrievalMetadata,omitempty"`
	RetrievalQueries  []string            `json:"retrievalQueries,omitempty"`
	SearchEntryPoint  *SearchEntryPoint   `json:"searchEntryPoint,omitempty"`
	WebSearchQueries  []string            `json:"webSearchQueries,omitempty"`
}

type GroundingChunk struct {
	Web              *GroundingChunkWeb              `json:"web,omitempty"`
	RetrievedContext *GroundingChunkRetrievedContext `json:"retrievedContext,omitempty"`
}

type GroundingChunkWeb struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

type GroundingChunkRetrievedContext struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
}

type GroundingSupport struct {
	Segment               *Segment  `json:"segment,omitempty"`
	GroundingChunkIndices []int32   `json:"groundingChunkIndices,omitempty"`
	ConfidenceScores      []float64 `json:"confidenceScores,omitempty"`
}

type Segment struct {
	PartIndex  *int32 `json:"partIndex,omitempty"`
	StartIndex *int32 `json:"startIndex,omitempty"`
	EndIndex   *int32 `json:"endIndex,omitempty"`
	Text       string `json:"text,omitempty"`
}

type RetrievalMetadata struct {
	GoogleSearchDynamicRetrievalScore *float64 `json:"googleSearchDynamicRetrievalScore,omitempty"`
}

type SearchEntryPoint struct {
	RenderedContent string `json:"renderedContent,omitempty"`
	SDKBlob         []byte `json:"sdkBlob,omitempty"`
}

type LogprobsResult struct {
	TopCandidates    []*LogprobsTopCandidates `json:"topCandidates,omitempty"`
	ChosenCandidates []*LogprobsCandidate     `json:"chosenCandidates,omitempty"`
}

type LogprobsTopCandidates struct {
	Candidates []*LogprobsCandidate `json:"candidates,omitempty"`
}

type LogprobsCandidate struct {
	Token          string   `json:"token,omitempty"`
	TokenID        *int32   `json:"tokenId,omitempty"`
	LogProbability *float64 `json:"logProbability,omitempty"`
}

type PromptFeedback struct {
	BlockReason        BlockedReason   `json:"blockReason,omitempty"`
	BlockReasonMessage string          `json:"blockReasonMessage,omitempty"`
	SafetyRatings      []*SafetyRating `json:"safetyRatings,omitempty"`
}

// UsageMetadata counts are nil when the server did not report them, which is
// distinct from an explicit zero.
type UsageMetadata struct {
	PromptTokenCount        *int32 `json:"promptTokenCount,omitempty"`
	CachedContentTokenCount *int32 `json:"cachedContentTokenCount,omitempty"`
	CandidatesTokenCount    *int32 `json:"candidatesTokenCount,omitempty"`
	ThoughtsTokenCount      *int32 `json:"thoughtsTokenCount,omitempty"`
	TotalTokenCount         *int32 `json:"totalTokenCount,omitempty"`
}

// Ptr returns a pointer to v, for the optional scalar fields.
func Ptr[T any](v T) *T { return &v }

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func NewTextPart(text string) *Part { return &Part{Text: &text} }

func NewBlobPart(mimeType string, data []byte) *Part {
	return &Part{InlineData: &Blob{MIMEType: mimeType, Data: data}}
}

func NewFileDataPart(mimeType, uri string) *Part {
	return &Part{FileData: &FileData{MIMEType: mimeType, FileURI: uri}}
}

func NewFunctionCallPart(name string, args map[string]any) *Part {
	return &Part{FunctionCall: &FunctionCall{Name: name, Args: args}}
}

func NewFunctionResponsePart(name string, response map[string]any) *Part {
	return &Part{FunctionResponse: &FunctionResponse{Name: name, Response: response}}
}

func NewUserContent(parts ...*Part) *Content {
	return &Content{Role: RoleUser, Parts: parts}
}

func NewModelContent(parts ...*Part) *Content {
	return &Content{Role: RoleModel, Parts: parts}
}

// Text builds a single user turn from plain strings, one part each.
func Text(texts ...string) []*Content {
	parts := make([]*Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, NewTextPart(t))
	}
	return []*Content{NewUserContent(parts...)}
}

// MarshalJSON keeps FunctionResponse.Response present even when nil; the
// service rejects a function response without it.
func (r FunctionResponse) MarshalJSON() ([]byte, error) {
	type alias FunctionResponse
	a := alias(r)
	if a.Response == nil {
		a.Response = map[string]any{}
	}
	return json.Marshal(a)
}
