package models

// StreamResponse is one event of a streamed chat completion.
type StreamResponse struct {
	Content string
	Done    bool
	Err     error
}
