package models

// Message is a single chat message sent to Ollama.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries model parameters.
type Options struct {
	Temperature float32 `json:"temperature,omitempty"`
}

type OllamaChatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// OllamaChatCompletionResponse is one line of the newline-delimited JSON stream.
type OllamaChatCompletionResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// OllamaError is the body Ollama returns on failure.
type OllamaError struct {
	Error string `json:"error"`
}
