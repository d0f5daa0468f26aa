package genai

import "encoding/json"

// Schema is the OpenAPI 3.0 subset accepted for function parameters and
// structured output. Nested nodes are pointers so the type can refer to
// itself.
type Schema struct {
	Type        Type     `json:"type,omitempty"`
	Format      string   `json:"format,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Nullable    *bool    `json:"nullable,omitempty"`
	Enum        []string `json:"enum,omitempty"`

	Items      *Schema            `json:"items,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	AnyOf      []*Schema          `json:"anyOf,omitempty"`

	Required         []string `json:"required,omitempty"`
	PropertyOrdering []string `json:"propertyOrdering,omitempty"`

	// int64 bounds are strings on the wire.
	MinItems      string `json:"minItems,omitempty"`
	MaxItems      string `json:"maxItems,omitempty"`
	MinLength     string `json:"minLength,omitempty"`
	MaxLength     string `json:"maxLength,omitempty"`
	MinProperties string `json:"minProperties,omitempty"`
	MaxProperties string `json:"maxProperties,omitempty"`

	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
	Pattern string   `json:"pattern,omitempty"`

	Example json.RawMessage `json:"example,omitempty"`
	Default json.RawMessage `json:"default,omitempty"`
}

type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
	Response    *Schema `json:"response,omitempty"`
}

type Tool struct {
	FunctionDeclarations  []*FunctionDeclaration `json:"functionDeclarations,omitempty"`
	Retrieval             *Retrieval             `json:"retrieval,omitempty"`
	GoogleSearch          *GoogleSearch          `json:"googleSearch,omitempty"`
	GoogleSearchRetrieval *GoogleSearchRetrieval `json:"googleSearchRetrieval,omitempty"`
	CodeExecution         *ToolCodeExecution     `json:"codeExecution,omitempty"`
}

type GoogleSearch struct{}

type ToolCodeExecution struct{}

type GoogleSearchRetrieval struct {
	DynamicRetrievalConfig *DynamicRetrievalConfig `json:"dynamicRetrievalConfig,omitempty"`
}

type DynamicRetrievalConfig struct {
	Mode             DynamicRetrievalMode `json:"mode,omitempty"`
	DynamicThreshold *float64             `json:"dynamicThreshold,omitempty"`
}

type Retrieval struct {
	VertexAISearch *VertexAISearch `json:"vertexAiSearch,omitempty"`
	VertexRAGStore *VertexRAGStore `json:"vertexRagStore,omitempty"`
}

type VertexAISearch struct {
	Datastore string `json:"datastore"`
}

type VertexRAGStore struct {
	RAGCorpora              []string             `json:"ragCorpora,omitempty"`
	RAGResources            []*VertexRAGResource `json:"ragResources,omitempty"`
	SimilarityTopK          *int64               `json:"similarityTopK,omitempty"`
	VectorDistanceThreshold *float64             `json:"vectorDistanceThreshold,omitempty"`
}

type VertexRAGResource struct {
	RAGCorpus  string   `json:"ragCorpus,omitempty"`
	RAGFileIDs []string `json:"ragFileIds,omitempty"`
}

type ToolConfig struct {
	FunctionCallingConfig *FunctionCallingConfig `json:"functionCallingConfig,omitempty"`
}

type FunctionCallingConfig struct {
	Mode                 FunctionCallingMode `json:"mode,omitempty"`
	AllowedFunctionNames []string            `json:"allowedFunctionNames,omitempty"`
}
