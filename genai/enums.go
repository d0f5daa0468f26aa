package genai

// FinishReason is why a candidate stopped generating.
type FinishReason string

const (
	FinishReasonUnspecified           FinishReason = "FINISH_REASON_UNSPECIFIED"
	FinishReasonStop                  FinishReason = "STOP"
	FinishReasonMaxTokens             FinishReason = "MAX_TOKENS"
	FinishReasonSafety                FinishReason = "SAFETY"
	FinishReasonRecitation            FinishReason = "RECITATION"
	FinishReasonLanguage              FinishReason = "LANGUAGE"
	FinishReasonOther                 FinishReason = "OTHER"
	FinishReasonBlocklist             FinishReason = "BLOCKLIST"
	FinishReasonProhibitedContent     FinishReason = "PROHIBITED_CONTENT"
	FinishReasonSPII                  FinishReason = "SPII"
	FinishReasonMalformedFunctionCall FinishReason = "MALFORMED_FUNCTION_CALL"
)

type HarmCategory string

const (
	HarmCategoryUnspecified      HarmCategory = "HARM_CATEGORY_UNSPECIFIED"
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryCivicIntegrity   HarmCategory = "HARM_CATEGORY_CIVIC_INTEGRITY"
)

type HarmProbability string

const (
	HarmProbabilityUnspecified HarmProbability = "HARM_PROBABILITY_UNSPECIFIED"
	HarmProbabilityNegligible  HarmProbability = "NEGLIGIBLE"
	HarmProbabilityLow         HarmProbability = "LOW"
	HarmProbabilityMedium      HarmProbability = "MEDIUM"
	HarmProbabilityHigh        HarmProbability = "HIGH"
)

type HarmSeverity string

const (
	HarmSeverityUnspecified HarmSeverity = "HARM_SEVERITY_UNSPECIFIED"
	HarmSeverityNegligible  HarmSeverity = "HARM_SEVERITY_NEGLIGIBLE"
	HarmSeverityLow         HarmSeverity = "HARM_SEVERITY_LOW"
	HarmSeverityMedium      HarmSeverity = "HARM_SEVERITY_MEDIUM"
	HarmSeverityHigh        HarmSeverity = "HARM_SEVERITY_HIGH"
)

type HarmBlockThreshold string

const (
	HarmBlockThresholdUnspecified         HarmBlockThreshold = "HARM_BLOCK_THRESHOLD_UNSPECIFIED"
	HarmBlockThresholdBlockLowAndAbove    HarmBlockThreshold = "BLOCK_LOW_AND_ABOVE"
	HarmBlockThresholdBlockMediumAndAbove HarmBlockThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	HarmBlockThresholdBlockOnlyHigh       HarmBlockThreshold = "BLOCK_ONLY_HIGH"
	HarmBlockThresholdBlockNone           HarmBlockThreshold = "BLOCK_NONE"
	HarmBlockThresholdOff                 HarmBlockThreshold = "OFF"
)

type HarmBlockMethod string

const (
	HarmBlockMethodUnspecified HarmBlockMethod = "HARM_BLOCK_METHOD_UNSPECIFIED"
	HarmBlockMethodSeverity    HarmBlockMethod = "SEVERITY"
	HarmBlockMethodProbability HarmBlockMethod = "PROBABILITY"
)

// BlockedReason is set on PromptFeedback when the prompt itself was rejected.
type BlockedReason string

const (
	BlockedReasonUnspecified       BlockedReason = "BLOCKED_REASON_UNSPECIFIED"
	BlockedReasonSafety            BlockedReason = "SAFETY"
	BlockedReasonOther             BlockedReason = "OTHER"
	BlockedReasonBlocklist         BlockedReason = "BLOCKLIST"
	BlockedReasonProhibitedContent BlockedReason = "PROHIBITED_CONTENT"
)

// Outcome of a server-side code execution.
type Outcome string

const (
	OutcomeUnspecified      Outcome = "OUTCOME_UNSPECIFIED"
	OutcomeOK               Outcome = "OUTCOME_OK"
	OutcomeFailed           Outcome = "OUTCOME_FAILED"
	OutcomeDeadlineExceeded Outcome = "OUTCOME_DEADLINE_EXCEEDED"
)

type Language string

const (
	LanguageUnspecified Language = "LANGUAGE_UNSPECIFIED"
	LanguagePython      Language = "PYTHON"
)

// Type is the OpenAPI data type of a Schema node.
type Type string

const (
	TypeUnspecified Type = "TYPE_UNSPECIFIED"
	TypeString      Type = "STRING"
	TypeNumber      Type = "NUMBER"
	TypeInteger     Type = "INTEGER"
	TypeBoolean     Type = "BOOLEAN"
	TypeArray       Type = "ARRAY"
	TypeObject      Type = "OBJECT"
)

type FunctionCallingMode string

const (
	FunctionCallingModeUnspecified FunctionCallingMode = "MODE_UNSPECIFIED"
	FunctionCallingModeAuto        FunctionCallingMode = "AUTO"
	FunctionCallingModeAny         FunctionCallingMode = "ANY"
	FunctionCallingModeNone        FunctionCallingMode = "NONE"
)

type MediaResolution string

const (
	MediaResolutionUnspecified MediaResolution = "MEDIA_RESOLUTION_UNSPECIFIED"
	MediaResolutionLow         MediaResolution = "MEDIA_RESOLUTION_LOW"
	MediaResolutionMedium      MediaResolution = "MEDIA_RESOLUTION_MEDIUM"
	MediaResolutionHigh        MediaResolution = "MEDIA_RESOLUTION_HIGH"
)

type DynamicRetrievalMode string

const (
	DynamicRetrievalModeUnspecified DynamicRetrievalMode = "MODE_UNSPECIFIED"
	DynamicRetrievalModeDynamic     DynamicRetrievalMode = "MODE_DYNAMIC"
)

// Roles used in Content.Role.
const (
	RoleUser  = "user"
	RoleModel = "model"
)
