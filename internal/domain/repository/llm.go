package repository

import (
	"context"
	"fmt"
)

// SamplingOptions carries the per-call sampling knobs understood by every engine.
type SamplingOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	MaxTokens   int     `json:"maxTokens"`
}

// Turn roles used in CompletionRequest.History.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one earlier message of a multi-turn conversation.
type Turn struct {
	Role    string
	Content string
}

// CompletionRequest is a system + user exchange sent to an engine.
// History holds earlier turns, oldest first, and is empty for single-shot calls.
// Options is nil when the engine's own defaults should be used.
type CompletionRequest struct {
	System  string
	History []Turn
	User    string
	Options *SamplingOptions
}

// Completion is the generated text plus usage metadata reported by the engine.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// CompletionEngine defines the interface for generating text from an instruction and a user message.
type CompletionEngine interface {
	Generate(ctx context.Context, req CompletionRequest) (*Completion, error)
	Name() string
}

// EngineError reports a transport or model failure surfaced by a completion engine.
type EngineError struct {
	Engine string
	Op     string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Engine, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
