package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/google/generative-ai-go/genai"
	"github.com/promptlab/modelrouter/internal/domain/repository"
	"google.golang.org/api/option"
)

const (
	defaultGeminiModel      = "gemini-1.5-flash"
	defaultGeminiEmbedModel = "text-embedding-004"
)

// GeminiClient implements repository.CompletionEngine and repository.EmbeddingClient on the Gemini API.
type GeminiClient struct {
	client     *genai.Client
	modelName  string
	embedModel string
}

// NewGeminiClient creates a client for modelName and embedModel, defaulting to
// gemini-1.5-flash and text-embedding-004.
func NewGeminiClient(ctx context.Context, apiKey, modelName, embedModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key must not be empty")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	if embedModel == "" {
		embedModel = defaultGeminiEmbedModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		modelName:  modelName,
		embedModel: embedModel,
	}, nil
}

// Generate builds a model handle per call, since instruction and sampling differ per branch.
func (c *GeminiClient) Generate(ctx context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
	log.Printf("[Gemini] ☁️ Sending request to %s...", c.modelName)

	model := c.client.GenerativeModel(c.modelName)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	applySampling(model, req.Options)

	var resp *genai.GenerateContentResponse
	var err error
	if len(req.History) == 0 {
		resp, err = model.GenerateContent(ctx, genai.Text(req.User))
	} else {
		cs := model.StartChat()
		cs.History = toGeminiHistory(req.History)
		resp, err = cs.SendMessage(ctx, genai.Text(req.User))
	}
	if err != nil {
		return nil, &repository.EngineError{Engine: c.Name(), Op: "generate", Err: err}
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, &repository.EngineError{Engine: c.Name(), Op: "generate", Err: err}
	}

	out := &repository.Completion{Text: text, Model: c.modelName}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	log.Printf("[Gemini] ☁️ Response received successfully.")
	return out, nil
}

// toGeminiHistory maps turns onto Gemini's "user" and "model" roles.
func toGeminiHistory(turns []repository.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == repository.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return out
}

func applySampling(model *genai.GenerativeModel, o *repository.SamplingOptions) {
	if o == nil {
		return
	}
	model.SetTemperature(float32(o.Temperature))
	if o.TopP > 0 {
		model.SetTopP(float32(o.TopP))
	}
	if o.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(o.MaxTokens))
	}
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from gemini")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("empty candidate returned from gemini")
	}

	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			return string(text), nil
		}
	}

	return "", fmt.Errorf("unexpected response format from gemini")
}

// Embed embeds texts in a single batch call.
func (c *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	log.Printf("[Gemini] ☁️ Generating embeddings for %d texts using %s...", len(texts), c.embedModel)

	em := c.client.EmbeddingModel(c.embedModel)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, &repository.EngineError{Engine: c.Name(), Op: "embed", Err: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &repository.EngineError{Engine: c.Name(), Op: "embed",
			Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))}
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// Models returns the chat and embedding model names this client uses.
func (c *GeminiClient) Models() []string {
	return []string{c.modelName, c.embedModel}
}

func (c *GeminiClient) Name() string {
	return fmt.Sprintf("Gemini (%s)", c.modelName)
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}
