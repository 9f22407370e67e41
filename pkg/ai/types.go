package ai

import "context"

// Prompt is a single-turn request to a language model.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
	// JSON asks the provider to constrain output to a JSON object where supported.
	JSON bool
}

// Completion is the text returned by a language model.
type Completion struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Completer is the text-completion capability used for evaluation and insights.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
}
