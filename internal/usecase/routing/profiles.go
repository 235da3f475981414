package routing

import (
	"sort"
	"strings"

	"github.com/promptlab/modelrouter/internal/domain/repository"
)

// Comparison profile names.
const (
	ProfileConservative = "conservative"
	ProfileBalanced     = "balanced"
	ProfileCreative     = "creative"
)

// DefaultRecommendationUseCase is returned for use cases the store does not know.
const DefaultRecommendationUseCase = "chat"

// DefaultComparisonProfiles is the fixed order used by CompareProfiles.
var DefaultComparisonProfiles = []string{ProfileConservative, ProfileBalanced, ProfileCreative}

// ParameterProfile is a named sampling configuration and the reason to use it.
type ParameterProfile struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	MaxTokens   int     `json:"maxTokens"`
	Rationale   string  `json:"rationale"`
}

// Options converts the profile into engine sampling options.
func (p ParameterProfile) Options() *repository.SamplingOptions {
	return &repository.SamplingOptions{
		Temperature: p.Temperature,
		TopP:        p.TopP,
		MaxTokens:   p.MaxTokens,
	}
}

// ParameterProfileStore is a static lookup of comparison profiles and use-case recommendations.
type ParameterProfileStore struct {
	profiles        map[string]ParameterProfile
	recommendations map[string]ParameterProfile
}

// NewParameterProfileStore returns the built-in tables.
func NewParameterProfileStore() *ParameterProfileStore {
	return &ParameterProfileStore{
		profiles: map[string]ParameterProfile{
			ProfileConservative: {
				Name: ProfileConservative, Label: "Conservative",
				Temperature: 0.0, TopP: 0.1, MaxTokens: 200,
				Rationale: "Accuracy first: question answering and fact lookup",
			},
			ProfileBalanced: {
				Name: ProfileBalanced, Label: "Balanced",
				Temperature: 0.7, TopP: 0.9, MaxTokens: 500,
				Rationale: "Everyday conversation, balancing accuracy and naturalness",
			},
			ProfileCreative: {
				Name: ProfileCreative, Label: "Creative",
				Temperature: 1.2, TopP: 0.95, MaxTokens: 800,
				Rationale: "Creative writing and brainstorming that need divergent output",
			},
		},
		recommendations: map[string]ParameterProfile{
			"qa": {
				Name: "qa", Label: "Question answering",
				Temperature: 0.1, TopP: 0.1, MaxTokens: 300,
				Rationale: "Needs accurate, consistent answers",
			},
			"creative": {
				Name: "creative", Label: "Creative writing",
				Temperature: 1.0, TopP: 0.9, MaxTokens: 1000,
				Rationale: "Needs creativity and variety",
			},
			"chat": {
				Name: "chat", Label: "Everyday chat",
				Temperature: 0.7, TopP: 0.9, MaxTokens: 500,
				Rationale: "Balances accuracy and naturalness",
			},
			"code": {
				Name: "code", Label: "Code generation",
				Temperature: 0.0, TopP: 0.1, MaxTokens: 800,
				Rationale: "Needs precise syntax and logic",
			},
		},
	}
}

// Profile returns the comparison profile called name, or balanced when unknown.
func (s *ParameterProfileStore) Profile(name string) ParameterProfile {
	if p, ok := s.profiles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return s.profiles[ProfileBalanced]
}

// Recommend returns the profile suited to useCase, falling back to chat.
func (s *ParameterProfileStore) Recommend(useCase string) ParameterProfile {
	if p, ok := s.recommendations[strings.ToLower(strings.TrimSpace(useCase))]; ok {
		return p
	}
	return s.recommendations[DefaultRecommendationUseCase]
}

// UseCases lists every recommendation, sorted by name.
func (s *ParameterProfileStore) UseCases() []ParameterProfile {
	out := make([]ParameterProfile, 0, len(s.recommendations))
	for _, p := range s.recommendations {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ParameterGuide describes what each sampling knob does.
func (s *ParameterProfileStore) ParameterGuide() map[string]string {
	return map[string]string{
		"temperature": "Controls randomness: 0.0 is most deterministic, 2.0 most random",
		"topP":        "Nucleus sampling: 0.1 keeps the candidate pool narrow, 1.0 keeps all of it",
		"maxTokens":   "Upper bound on generated output length",
	}
}
