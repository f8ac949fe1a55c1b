package config

import "os"

// AIModels defines which OpenAI models to use for different tasks.
type AIModels struct {
	// Eval judges answer sufficiency; runs on every turn so it needs to be fast.
	Eval string `json:"eval"`

	// Guidance writes follow-up messages for insufficient answers.
	Guidance string `json:"guidance"`

	// Summary writes the final clinical summary (quality over speed).
	Summary string `json:"summary"`
}

// AIConfig holds all model-backend configuration.
type AIConfig struct {
	APIKey    string   `json:"-"` // never serialize
	BaseURL   string   `json:"baseUrl,omitempty"`
	Models    AIModels `json:"models"`
	TimeoutMS int      `json:"timeoutMs"`
}

// DefaultAIConfig returns the AI configuration from the environment.
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Models: AIModels{
			Eval:     getEnv("OPENAI_MODEL_EVAL", "gpt-4o-mini"),
			Guidance: getEnv("OPENAI_MODEL_GUIDANCE", "gpt-4o-mini"),
			Summary:  getEnv("OPENAI_MODEL_SUMMARY", "gpt-4o-mini"),
		},
		TimeoutMS: 30000,
	}
}

// IsEnabled reports whether a model backend is configured. When false, the
// engine runs entirely on its deterministic fallbacks.
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}
