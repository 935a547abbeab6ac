package models

const RoleUser = "user"

// AnalysisMessage pairs one instruction with exactly one image reference.
type AnalysisMessage struct {
	Role     string
	Text     string
	ImageURL string
}

// AnalysisRequest is everything sent to the inference service for one
// HTTP request.
type AnalysisRequest struct {
	SystemPrompt    string
	Messages        []AnalysisMessage
	MaxOutputTokens int64
}

// AnalyzeResponse represents a successful analysis
type AnalyzeResponse struct {
	Result string `json:"result" example:"Structural Components:<br>The foundation shows..."`
}

type ErrorResponse struct {
	Error string `json:"error" example:"No image provided."`
}

type HealthResponse struct {
	Message string `json:"message" example:"Backend is working!"`
}

type StreamChunk struct {
	Delta string `json:"delta,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Err   error  `json:"-"`
}
