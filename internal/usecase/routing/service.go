package routing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/promptlab/modelrouter/internal/domain/repository"
)

// RouteResult is the answer to a single routed request.
type RouteResult struct {
	Input          string       `json:"input"`
	Category       TaskCategory `json:"detectedTaskType"`
	MatchedKeyword string       `json:"matchedKeyword,omitempty"`
	Mode           RouteMode    `json:"mode"`
	BackendName    string       `json:"backend"`
	DisplayName    string       `json:"selectedModel"`
	Response       string       `json:"response"`
	Model          string       `json:"model,omitempty"`
	DurationMillis int64        `json:"duration"`
}

// BackendInfo is the public description of a registered backend.
type BackendInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	SuitableFor []string `json:"suitableFor"`
}

// Service exposes routing, comparison and tuning to the HTTP and CLI surfaces.
type Service struct {
	registry *Registry
	router   *Router
	fanOut   *FanOutExecutor
	tuning   *ParameterComparisonRunner
	profiles *ParameterProfileStore
}

// NewService wires the default classifier, router, executor and runner around registry.
// Parameter comparisons run on the general backend's instruction.
func NewService(registry *Registry, profiles *ParameterProfileStore) (*Service, error) {
	general, err := registry.Get(BackendGeneral)
	if err != nil {
		return nil, fmt.Errorf("parameter comparison needs a general backend: %w", err)
	}

	return &Service{
		registry: registry,
		router:   NewRouter(NewTaskClassifier(), registry),
		fanOut:   NewFanOutExecutor(registry),
		tuning:   NewParameterComparisonRunner(general.Engine, general.Instruction, profiles),
		profiles: profiles,
	}, nil
}

// RouteAndInvoke routes input and calls the selected backend once.
// Engine failures are returned wrapped, so callers can match *repository.EngineError.
func (s *Service) RouteAndInvoke(ctx context.Context, input, explicitCategory string) (*RouteResult, error) {
	decision, err := s.router.Route(input, explicitCategory)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	completion, err := decision.Backend.Engine.Generate(ctx, repository.CompletionRequest{
		System: decision.Backend.Instruction,
		User:   input,
	})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", decision.Backend.Name, err)
	}

	log.Printf("[Service] Routed request answered by %s in %dms", decision.Backend.Name, elapsed)
	return &RouteResult{
		Input:          input,
		Category:       decision.Category,
		MatchedKeyword: decision.MatchedKeyword,
		Mode:           decision.Mode,
		BackendName:    decision.Backend.Name,
		DisplayName:    decision.Backend.DisplayName,
		Response:       completion.Text,
		Model:          completion.Model,
		DurationMillis: elapsed,
	}, nil
}

// CompareAll fans input out to every backend.
func (s *Service) CompareAll(ctx context.Context, input string) map[string]InvocationResult {
	return s.fanOut.CompareAll(ctx, input)
}

// CompareParameterProfiles runs input under the conservative, balanced and creative profiles.
func (s *Service) CompareParameterProfiles(ctx context.Context, input string) map[string]InvocationResult {
	return s.tuning.CompareProfiles(ctx, input, DefaultComparisonProfiles...)
}

// SweepTemperature runs input once per temperature, preserving order.
// An empty slice uses DefaultSweepTemperatures.
func (s *Service) SweepTemperature(ctx context.Context, input string, temperatures []float64) []InvocationResult {
	if len(temperatures) == 0 {
		temperatures = DefaultSweepTemperatures
	}
	return s.tuning.SweepTemperature(ctx, input, temperatures)
}

// ListBackends describes every registered backend in registration order.
func (s *Service) ListBackends() []BackendInfo {
	all := s.registry.All()
	out := make([]BackendInfo, len(all))
	for i, b := range all {
		out[i] = BackendInfo{
			Name:        b.Name,
			DisplayName: b.DisplayName,
			Description: b.Description,
			SuitableFor: append([]string(nil), b.SuitableFor...),
		}
	}
	return out
}

// ParameterRecommendation returns the profile for useCase, or chat when unknown.
func (s *Service) ParameterRecommendation(useCase string) ParameterProfile {
	return s.profiles.Recommend(useCase)
}

// Profiles exposes the profile store for listing endpoints.
func (s *Service) Profiles() *ParameterProfileStore {
	return s.profiles
}
