package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/promptlab/modelrouter/internal/domain/repository"
	"github.com/promptlab/modelrouter/internal/usecase/routing"
)

// ErrEmptyInput is returned when a required text field is blank.
var ErrEmptyInput = errors.New("input must not be empty")

// DefaultCreativeStyle is used when a creative request names no style.
const DefaultCreativeStyle = "free-form"

const codeAnalysisTemplate = "Please analyse the following code:\n\n```\n%s\n```\n\nQuestion: %s\n\nGive a detailed analysis and concrete suggestions."

const creativeTemplate = "Write a piece in a '%s' style on the theme '%s'.\nIt can be a poem, a short story, an essay or any other creative form."

// Reply is a single generated answer.
type Reply struct {
	Response         string `json:"response"`
	Backend          string `json:"backend"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	DurationMillis   int64  `json:"duration"`
}

// CodeAnalysisReply adds the analysed code's length.
type CodeAnalysisReply struct {
	Reply
	CodeLength int `json:"codeLength"`
}

// CreativeReply echoes the topic and the style actually used.
type CreativeReply struct {
	Reply
	Topic string `json:"topic"`
	Style string `json:"style"`
}

// Service runs single-shot chats against fixed backends of the registry.
type Service struct {
	registry *routing.Registry
}

func NewService(registry *routing.Registry) *Service {
	return &Service{registry: registry}
}

// Basic sends message to the general backend.
func (s *Service) Basic(ctx context.Context, message string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message: %w", ErrEmptyInput)
	}
	return s.call(ctx, routing.BackendGeneral, message)
}

// AnalyzeCode wraps code and question in the analysis template and sends it to the technical backend.
func (s *Service) AnalyzeCode(ctx context.Context, code, question string) (*CodeAnalysisReply, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("code: %w", ErrEmptyInput)
	}
	reply, err := s.call(ctx, routing.BackendTechnical, fmt.Sprintf(codeAnalysisTemplate, code, question))
	if err != nil {
		return nil, err
	}
	return &CodeAnalysisReply{Reply: *reply, CodeLength: len([]rune(code))}, nil
}

// WriteCreative asks the creative backend for a piece on topic in style.
func (s *Service) WriteCreative(ctx context.Context, topic, style string) (*CreativeReply, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic: %w", ErrEmptyInput)
	}
	if strings.TrimSpace(style) == "" {
		style = DefaultCreativeStyle
	}
	reply, err := s.call(ctx, routing.BackendCreative, fmt.Sprintf(creativeTemplate, style, topic))
	if err != nil {
		return nil, err
	}
	return &CreativeReply{Reply: *reply, Topic: topic, Style: style}, nil
}

func (s *Service) call(ctx context.Context, backendName, prompt string) (*Reply, error) {
	backend, err := s.registry.Get(backendName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c, err := backend.Engine.Generate(ctx, repository.CompletionRequest{
		System: backend.Instruction,
		User:   prompt,
	})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", backendName, err)
	}

	log.Printf("[Chat] 💬 %s answered in %dms", backendName, elapsed)
	return &Reply{
		Response:         c.Text,
		Backend:          backendName,
		Model:            c.Model,
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
		DurationMillis:   elapsed,
	}, nil
}
