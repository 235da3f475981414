package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/promptlab/modelrouter/internal/domain/repository"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "llama3"
)

// OllamaClient implements repository.CompletionEngine and repository.EmbeddingClient
// against an Ollama server.
type OllamaClient struct {
	host       string
	model      string
	embedModel string
	httpClient *http.Client
}

// NewOllamaClient initializes a client for an Ollama instance.
// Empty host and model fall back to the local defaults; an empty embedModel reuses model.
func NewOllamaClient(host, model, embedModel string, httpClient *http.Client) *OllamaClient {
	if host == "" {
		host = defaultOllamaHost
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if embedModel == "" {
		embedModel = model
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaClient{
		host:       host,
		model:      model,
		embedModel: embedModel,
		httpClient: httpClient,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaOptions uses pointers so a temperature of 0 is still sent.
type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

type ollamaEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbeddingResponse struct {
	Embedding  []float32   `json:"embedding,omitempty"`
	Embeddings [][]float32 `json:"embeddings,omitempty"`
}

type ollamaPullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

func toOllamaOptions(o *repository.SamplingOptions) *ollamaOptions {
	if o == nil {
		return nil
	}
	temp := o.Temperature
	opts := &ollamaOptions{Temperature: &temp}
	if o.TopP > 0 {
		topP := o.TopP
		opts.TopP = &topP
	}
	if o.MaxTokens > 0 {
		n := o.MaxTokens
		opts.NumPredict = &n
	}
	return opts
}

// Generate sends the instruction, any history and the user message to Ollama's chat endpoint.
func (c *OllamaClient) Generate(ctx context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
	log.Printf("[Ollama] 🏠 Sending request to Ollama (%s)...", c.model)

	messages := make([]ollamaMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, t := range req.History {
		messages = append(messages, ollamaMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, ollamaMessage{Role: repository.RoleUser, Content: req.User})

	var chatResp ollamaChatResponse
	err := c.post(ctx, "/api/chat", ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  toOllamaOptions(req.Options),
	}, &chatResp)
	if err != nil {
		return nil, &repository.EngineError{Engine: c.Name(), Op: "generate", Err: err}
	}

	model := chatResp.Model
	if model == "" {
		model = c.model
	}
	log.Printf("[Ollama] 🏠 Response received from %s.", model)
	return &repository.Completion{
		Text:             chatResp.Message.Content,
		Model:            model,
		PromptTokens:     chatResp.PromptEvalCount,
		CompletionTokens: chatResp.EvalCount,
	}, nil
}

// Name returns the descriptive name of the client.
func (c *OllamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s)", c.model)
}

// Embed generates embeddings for the given texts using Ollama's embedding API.
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	log.Printf("[Ollama] 🏠 Generating embeddings for %d texts using %s...", len(texts), c.embedModel)

	var embResp ollamaEmbeddingResponse
	err := c.post(ctx, "/api/embed", ollamaEmbeddingRequest{
		Model: c.embedModel,
		Input: texts,
	}, &embResp)
	if err != nil {
		return nil, &repository.EngineError{Engine: c.Name(), Op: "embed", Err: err}
	}

	if len(embResp.Embeddings) > 0 {
		return embResp.Embeddings, nil
	}
	if len(embResp.Embedding) > 0 {
		return [][]float32{embResp.Embedding}, nil
	}
	return nil, &repository.EngineError{Engine: c.Name(), Op: "embed", Err: fmt.Errorf("no embeddings returned from ollama")}
}

// PullModel pulls the specified model from the Ollama library.
func (c *OllamaClient) PullModel(ctx context.Context, model string) error {
	log.Printf("[Ollama] 📥 Pulling model '%s'...", model)

	if err := c.post(ctx, "/api/pull", ollamaPullRequest{Model: model, Stream: false}, nil); err != nil {
		return &repository.EngineError{Engine: c.Name(), Op: "pull", Err: err}
	}

	log.Printf("[Ollama] 📥 Model '%s' pulled successfully.", model)
	return nil
}

// Models returns the chat and embedding model names this client uses.
func (c *OllamaClient) Models() []string {
	if c.embedModel == c.model {
		return []string{c.model}
	}
	return []string{c.model, c.embedModel}
}

// post encodes body, sends it to path and decodes the reply into out when out is non-nil.
func (c *OllamaClient) post(ctx context.Context, path string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama returned error status %d: %s", resp.StatusCode, string(b))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return nil
}
