package ai

import "fmt"

// AnthropicBaseURL is Anthropic's OpenAI-compatible endpoint.
const AnthropicBaseURL = "https://api.anthropic.com/v1/"

// NewAnthropicClient builds a client for Claude models through the OpenAI-compatible endpoint.
// That endpoint ignores response_format, so JSON output is requested in the prompt only.
func NewAnthropicClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	cfg.Provider = ProviderAnthropic
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = AnthropicBaseURL
	}
	return newClient(cfg, false), nil
}
