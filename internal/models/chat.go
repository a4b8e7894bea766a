package models

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// GenerationParams are the per-query output controls exposed to the user
type GenerationParams struct {
	MaxTokens        int     `json:"max_tokens,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	TopP             float64 `json:"top_p,omitempty"`
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64 `json:"presence_penalty,omitempty"`
}

// DefaultGenerationParams returns the documented output defaults
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		MaxTokens:   250,
		Temperature: 0.7,
		TopP:        0.999,
	}
}

// QueryRequest represents an incoming chat query for a session
type QueryRequest struct {
	Text   string            `json:"text"`
	Params *GenerationParams `json:"params,omitempty"`
}

// ContextChunk represents a retrieved document passage used as query context
type ContextChunk struct {
	Text     string                 `json:"text"`
	Score    float32                `json:"score,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// QueryMetrics reports per-query timing observed by the router
type QueryMetrics struct {
	RetrievalTimeMs  float64 `json:"retrieval_time_ms,omitempty"`
	CompletionTimeMs float64 `json:"completion_time_ms"`
	EndToEndTimeMs   float64 `json:"end_to_end_time_ms"`
	EstimatedTokens  int     `json:"estimated_tokens,omitempty"`
	TokensPerSecond  float64 `json:"tokens_per_second,omitempty"`
}

// QueryResponse represents the routed completion plus any retrieved context
type QueryResponse struct {
	Response string         `json:"response"`
	Context  []ContextChunk `json:"context,omitempty"`
	Metrics  QueryMetrics   `json:"metrics"`
	Mode     InferenceMode  `json:"mode"`
	Model    string         `json:"model"`
}
