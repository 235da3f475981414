package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/promptlab/modelrouter/internal/database"
	"github.com/promptlab/modelrouter/internal/domain/repository"
	"github.com/promptlab/modelrouter/internal/embedding"
	"github.com/promptlab/modelrouter/internal/infrastructure/metrics"
	"github.com/promptlab/modelrouter/internal/usecase/chat"
	"github.com/promptlab/modelrouter/internal/usecase/routing"
)

// maxBodyBytes caps request bodies; code-analysis payloads are the largest.
const maxBodyBytes = 1 << 20

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the use cases served over HTTP. Memory, Embeddings, Metrics and DB may be nil.
type Deps struct {
	Routing    *routing.Service
	Chat       *chat.Service
	Memory     *chat.MemoryChat
	Embeddings *embedding.Service
	Metrics    *metrics.Collectors
	DB         Pinger
	Provider   string
	Models     []string
}

// Server holds the dependencies for the HTTP API server
type Server struct {
	deps Deps
}

// NewServer initializes a new API server with the required dependencies
func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// RegisterRoutes registers all API endpoints with a new ServeMux
func (s *Server) RegisterRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/models/route", s.handleRoute)
	mux.HandleFunc("POST /api/v1/models/compare", s.handleCompare)
	mux.HandleFunc("GET /api/v1/models", s.handleListModels)

	mux.HandleFunc("POST /api/v1/tuning/parameter-comparison", s.handleParameterComparison)
	mux.HandleFunc("POST /api/v1/tuning/temperature-sweep", s.handleTemperatureSweep)
	mux.HandleFunc("GET /api/v1/tuning/recommendations/{use_case}", s.handleRecommendation)
	mux.HandleFunc("GET /api/v1/tuning/use-cases", s.handleUseCases)

	mux.HandleFunc("POST /api/v1/chat/basic", s.handleBasicChat)
	mux.HandleFunc("POST /api/v1/chat/code-analysis", s.handleCodeAnalysis)
	mux.HandleFunc("POST /api/v1/chat/creative-writing", s.handleCreativeWriting)
	mux.HandleFunc("POST /api/v1/chat/conversations", s.handleConversationChat)
	mux.HandleFunc("GET /api/v1/chat/conversations/{conversation_id}/messages", s.handleConversationHistory)
	mux.HandleFunc("DELETE /api/v1/chat/conversations/{conversation_id}", s.handleClearConversation)

	mux.HandleFunc("POST /api/v1/embeddings/embed", s.handleEmbed)
	mux.HandleFunc("POST /api/v1/embeddings/embed-batch", s.handleEmbedBatch)
	mux.HandleFunc("POST /api/v1/embeddings/similarity", s.handleSimilarity)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	return mux
}

// Handler returns the routes wrapped with request counting.
func (s *Server) Handler() http.Handler {
	mux := s.RegisterRoutes()
	if s.deps.Metrics == nil {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.deps.Metrics.RecordHTTPRequest(route, rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// ==========================================
// Routing
// ==========================================

type RouteRequest struct {
	Input    string `json:"input"`
	TaskType string `json:"taskType,omitempty"`
}

type PromptRequest struct {
	Prompt string `json:"prompt"`
}

type ComparisonResponse struct {
	Prompt         string                             `json:"prompt"`
	Results        map[string]routing.InvocationResult `json:"results"`
	Succeeded      int                                `json:"succeeded"`
	Total          int                                `json:"total"`
	DurationMillis int64                              `json:"totalDurationMs"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		http.Error(w, "Input field is required", http.StatusBadRequest)
		return
	}

	res, err := s.deps.Routing.RouteAndInvoke(r.Context(), req.Input, req.TaskType)
	if err != nil {
		s.writeServiceError(w, "route", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	prompt, ok := decodePrompt(w, r)
	if !ok {
		return
	}

	start := time.Now()
	results := s.deps.Routing.CompareAll(r.Context(), prompt)
	writeJSON(w, http.StatusOK, comparison(prompt, results, start))
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backends": s.deps.Routing.ListBackends(),
		"provider": s.deps.Provider,
		"models":   s.deps.Models,
	})
}

// ==========================================
// Tuning
// ==========================================

type SweepRequest struct {
	Prompt       string    `json:"prompt"`
	Temperatures []float64 `json:"temperatures,omitempty"`
}

func (s *Server) handleParameterComparison(w http.ResponseWriter, r *http.Request) {
	prompt, ok := decodePrompt(w, r)
	if !ok {
		return
	}

	start := time.Now()
	results := s.deps.Routing.CompareParameterProfiles(r.Context(), prompt)
	writeJSON(w, http.StatusOK, map[string]any{
		"comparison": comparison(prompt, results, start),
		"guide":      s.deps.Routing.Profiles().ParameterGuide(),
	})
}

func (s *Server) handleTemperatureSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		http.Error(w, "Prompt field is required", http.StatusBadRequest)
		return
	}
	if len(req.Temperatures) > routing.MaxSweepTemperatures {
		http.Error(w, fmt.Sprintf("At most %d temperatures per sweep", routing.MaxSweepTemperatures), http.StatusBadRequest)
		return
	}
	for _, t := range req.Temperatures {
		if t < 0 || t > 2 {
			http.Error(w, "Temperatures must be between 0 and 2", http.StatusBadRequest)
			return
		}
	}

	start := time.Now()
	results := s.deps.Routing.SweepTemperature(r.Context(), req.Prompt, req.Temperatures)
	succeeded := 0
	for _, res := range results {
		if res.Succeeded() {
			succeeded++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prompt":          req.Prompt,
		"results":         results,
		"succeeded":       succeeded,
		"total":           len(results),
		"totalDurationMs": time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	useCase := r.PathValue("use_case")
	rec := s.deps.Routing.ParameterRecommendation(useCase)
	writeJSON(w, http.StatusOK, map[string]any{
		"useCase":        useCase,
		"recommendation": rec,
		"fallback":       !strings.EqualFold(strings.TrimSpace(useCase), rec.Name),
	})
}

func (s *Server) handleUseCases(w http.ResponseWriter, r *http.Request) {
	profiles := s.deps.Routing.Profiles()
	compared := make([]routing.ParameterProfile, 0, len(routing.DefaultComparisonProfiles))
	for _, name := range routing.DefaultComparisonProfiles {
		compared = append(compared, profiles.Profile(name))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"useCases":           profiles.UseCases(),
		"comparisonProfiles": compared,
		"guide":              profiles.ParameterGuide(),
	})
}

// ==========================================
// Chat
// ==========================================

type BasicChatRequest struct {
	Message string `json:"message"`
}

type CodeAnalysisRequest struct {
	Code     string `json:"code"`
	Question string `json:"question"`
}

type CreativeWritingRequest struct {
	Topic string `json:"topic"`
	Style string `json:"style,omitempty"`
}

type ConversationRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	Message        string `json:"message"`
}

func (s *Server) handleBasicChat(w http.ResponseWriter, r *http.Request) {
	var req BasicChatRequest
	if !decode(w, r, &req) {
		return
	}
	reply, err := s.deps.Chat.Basic(r.Context(), req.Message)
	if err != nil {
		s.writeServiceError(w, "basic chat", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleCodeAnalysis(w http.ResponseWriter, r *http.Request) {
	var req CodeAnalysisRequest
	if !decode(w, r, &req) {
		return
	}
	reply, err := s.deps.Chat.AnalyzeCode(r.Context(), req.Code, req.Question)
	if err != nil {
		s.writeServiceError(w, "code analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleCreativeWriting(w http.ResponseWriter, r *http.Request) {
	var req CreativeWritingRequest
	if !decode(w, r, &req) {
		return
	}
	reply, err := s.deps.Chat.WriteCreative(r.Context(), req.Topic, req.Style)
	if err != nil {
		s.writeServiceError(w, "creative writing", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleConversationChat(w http.ResponseWriter, r *http.Request) {
	if !s.memoryEnabled(w) {
		return
	}
	var req ConversationRequest
	if !decode(w, r, &req) {
		return
	}
	reply, err := s.deps.Memory.Chat(r.Context(), req.ConversationID, req.UserID, req.Message)
	if err != nil {
		s.writeServiceError(w, "memory chat", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleConversationHistory(w http.ResponseWriter, r *http.Request) {
	if !s.memoryEnabled(w) {
		return
	}
	id := r.PathValue("conversation_id")

	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Query parameter 'count' must be a non-negative integer", http.StatusBadRequest)
			return
		}
		count = n
	}

	history, err := s.deps.Memory.History(r.Context(), id, count)
	if err != nil {
		s.writeServiceError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": id,
		"messages":       history,
		"count":          len(history),
	})
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	if !s.memoryEnabled(w) {
		return
	}
	id := r.PathValue("conversation_id")
	if err := s.deps.Memory.Clear(r.Context(), id); err != nil {
		s.writeServiceError(w, "clear", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": id,
		"action":         "cleared",
	})
}

func (s *Server) memoryEnabled(w http.ResponseWriter) bool {
	if s.deps.Memory == nil {
		http.Error(w, "Conversation memory is not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// ==========================================
// Embeddings
// ==========================================

type EmbedRequest struct {
	Text string `json:"text"`
}

type EmbedBatchRequest struct {
	Texts []string `json:"texts"`
}

type SimilarityRequest struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	if !s.embeddingsEnabled(w) {
		return
	}
	var req EmbedRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Text field is required", http.StatusBadRequest)
		return
	}
	vec, err := s.deps.Embeddings.Embed(r.Context(), req.Text)
	if err != nil {
		s.writeServiceError(w, "embed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":       req.Text,
		"embedding":  vec,
		"dimensions": len(vec),
	})
}

func (s *Server) handleEmbedBatch(w http.ResponseWriter, r *http.Request) {
	if !s.embeddingsEnabled(w) {
		return
	}
	var req EmbedBatchRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Texts) == 0 {
		http.Error(w, "Texts field is required", http.StatusBadRequest)
		return
	}
	vecs, err := s.deps.Embeddings.EmbedBatch(r.Context(), req.Texts)
	if err != nil {
		s.writeServiceError(w, "embed batch", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"texts":      req.Texts,
		"embeddings": vecs,
		"count":      len(vecs),
	})
}

func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	if !s.embeddingsEnabled(w) {
		return
	}
	var req SimilarityRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text1) == "" || strings.TrimSpace(req.Text2) == "" {
		http.Error(w, "Fields text1 and text2 are required", http.StatusBadRequest)
		return
	}
	res, err := s.deps.Embeddings.Similarity(r.Context(), req.Text1, req.Text2)
	if err != nil {
		s.writeServiceError(w, "similarity", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) embeddingsEnabled(w http.ResponseWriter) bool {
	if s.deps.Embeddings == nil {
		http.Error(w, "Embeddings are not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// ==========================================
// Health
// ==========================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":   "OK",
		"provider": s.deps.Provider,
		"backends": len(s.deps.Routing.ListBackends()),
	}
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			log.Printf("[Server] Health check database ping failed: %v", err)
			status = http.StatusServiceUnavailable
			body["status"] = "DEGRADED"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}
	writeJSON(w, status, body)
}

// ==========================================
// Helpers
// ==========================================

func comparison(prompt string, results map[string]routing.InvocationResult, start time.Time) ComparisonResponse {
	succeeded := 0
	for _, res := range results {
		if res.Succeeded() {
			succeeded++
		}
	}
	return ComparisonResponse{
		Prompt:         prompt,
		Results:        results,
		Succeeded:      succeeded,
		Total:          len(results),
		DurationMillis: time.Since(start).Milliseconds(),
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return false
	}
	return true
}

func decodePrompt(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req PromptRequest
	if !decode(w, r, &req) {
		return "", false
	}
	if strings.TrimSpace(req.Prompt) == "" {
		http.Error(w, "Prompt field is required", http.StatusBadRequest)
		return "", false
	}
	return req.Prompt, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Failed to encode response: %v", err)
	}
}

// writeServiceError maps use-case errors onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	var engineErr *repository.EngineError
	switch {
	case errors.Is(err, chat.ErrEmptyInput), errors.Is(err, embedding.ErrDimensionMismatch), errors.Is(err, embedding.ErrZeroVector):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, database.ErrNotFound):
		http.Error(w, "Conversation not found", http.StatusNotFound)
	case errors.Is(err, routing.ErrBackendNotFound):
		log.Printf("[Server] %s failed, registry misconfigured: %v", op, err)
		http.Error(w, "Backend registry misconfigured", http.StatusInternalServerError)
	case errors.As(err, &engineErr):
		log.Printf("[Server] %s failed upstream: %v", op, err)
		http.Error(w, "Completion engine failed: "+engineErr.Err.Error(), http.StatusBadGateway)
	default:
		log.Printf("[Server] %s failed: %v", op, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
