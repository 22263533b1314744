package config

import "os"

// GeminiModels defines which Gemini models to use for different tasks
type GeminiModels struct {
	// Questions is for bulk question generation (quality over speed)
	Questions string `json:"questions"`

	// RAG answers ad-hoc questions about a single document (needs to be fast)
	RAG string `json:"rag"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	APIKey    string       `json:"-"` // Never serialize
	BaseURL   string       `json:"baseUrl"`
	Models    GeminiModels `json:"models"`
	TimeoutMS int          `json:"timeoutMs"`
}

// DefaultAIConfig returns the AI configuration read from the environment
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		Models: GeminiModels{
			Questions: getEnv("GEMINI_MODEL_QUESTIONS", "gemini-2.0-flash"),
			RAG:       getEnv("GEMINI_MODEL_RAG", "gemini-2.5-flash-preview-05-20"),
		},
		TimeoutMS: getEnvAsInt("GEMINI_TIMEOUT_MS", 30000),
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}
