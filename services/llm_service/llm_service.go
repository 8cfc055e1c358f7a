package llm_service

import "context"

// LLMService is the completion collaborator: prompt in, text out. The config
// map carries api_url, api_key and model_name so implementations stay
// interchangeable.
type LLMService interface {
	CallLLM(ctx context.Context, config map[string]interface{}, prompt string) (string, error)
}
