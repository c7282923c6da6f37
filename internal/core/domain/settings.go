package domain

// AIProvider identifies a supported AI backend vendor
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
)

// AISettings configures one AI backend (embedding model or generator).
type AISettings struct {
	Provider AIProvider `json:"provider"`
	APIKey   string     `json:"api_key"`
	Model    string     `json:"model"`
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured reports whether the settings are complete enough to build a
// service. A missing API key leaves the dependent feature disabled rather
// than half-configured.
func (s *AISettings) IsConfigured() bool {
	return s != nil && s.Provider != "" && s.APIKey != ""
}
