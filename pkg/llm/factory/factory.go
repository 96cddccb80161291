package factory

import (
	"fmt"

	"docuchat-be/internal/config"
	"docuchat-be/pkg/llm"
	"docuchat-be/pkg/llm/groq"
	"docuchat-be/pkg/llm/ollama"
)

// NewLLMProvider picks the generation backend. A hosted provider without an
// API key yields llm.Unconfigured so queries still answer.
func NewLLMProvider(cfg config.LLMConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return llm.Unconfigured{}, nil
		}
		return groq.NewGroqProvider(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.Model), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "", "none":
		return llm.Unconfigured{}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
