package types

// GenerationRequest is the generation proxy request body.
type GenerationRequest struct {
	FieldContext *FieldContext `json:"fieldContext"`
}

// GenerationResponse is the generation proxy response body.
type GenerationResponse struct {
	Success       bool   `json:"success"`
	GeneratedText string `json:"generatedText,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Succeeded creates a successful generation response.
func Succeeded(text string) GenerationResponse {
	return GenerationResponse{Success: true, GeneratedText: text}
}

// Failed creates a failed generation response.
func Failed(message string) GenerationResponse {
	return GenerationResponse{Success: false, Error: message}
}
