package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/promptlab/modelrouter/internal/domain/repository"
)

// Backend names.
const (
	BackendGeneral   = "general"
	BackendTechnical = "technical"
	BackendCreative  = "creative"
	BackendBusiness  = "business"
)

// ErrBackendNotFound means the registry was built without a backend the router needs.
var ErrBackendNotFound = errors.New("backend not found in registry")

const (
	generalInstruction = "You are a professional AI assistant, good at technical answers and code analysis. Answer clearly and concisely."

	technicalInstruction = `You are a senior software engineer who specialises in code review and analysis.
Answer in professional but approachable language and give concrete code examples.
Cover the following in your answer:
1. What the code does
2. Potential problems
3. Suggested improvements
4. Recommended best practices`

	creativeInstruction = `You are a creative writer, skilled at imaginative writing and content creation.
Answer in a vivid, engaging style and use metaphor and imagery where it helps.`

	businessInstruction = `You are a senior business consultant, skilled at business analysis, market strategy and management.
Answer business questions in professional yet easy to follow language.`
)

// BackendSpec describes a backend before it is bound to an engine.
type BackendSpec struct {
	Name        string
	DisplayName string
	Description string
	SuitableFor []string
	Instruction string
}

// Backend is an instruction profile bound to a completion engine.
// Values are created once by NewRegistry and only read afterwards.
type Backend struct {
	Name        string
	DisplayName string
	Description string
	SuitableFor []string
	Instruction string
	Engine      repository.CompletionEngine
}

// DefaultBackendSpecs returns the general, technical, creative and business profiles.
func DefaultBackendSpecs() []BackendSpec {
	return []BackendSpec{
		{
			Name:        BackendGeneral,
			DisplayName: "General Assistant",
			Description: "General assistant for everyday questions",
			SuitableFor: []string{"everyday Q&A", "general consulting", "information lookup", "study help"},
			Instruction: generalInstruction,
		},
		{
			Name:        BackendTechnical,
			DisplayName: "Technical Expert",
			Description: "Technical expert focused on code analysis and technical answers",
			SuitableFor: []string{"code analysis", "technical consulting", "debugging", "architecture design"},
			Instruction: technicalInstruction,
		},
		{
			Name:        BackendCreative,
			DisplayName: "Creative Writing Assistant",
			Description: "Creative writer for literature and content ideas",
			SuitableFor: []string{"creative writing", "content creation", "storytelling", "poetry"},
			Instruction: creativeInstruction,
		},
		{
			Name:        BackendBusiness,
			DisplayName: "Business Consultant",
			Description: "Business consultant focused on analysis and strategic planning",
			SuitableFor: []string{"business analysis", "market strategy", "management consulting", "data analysis"},
			Instruction: businessInstruction,
		},
	}
}

// Registry is an immutable, ordered set of backends with name lookup.
// Concurrent reads need no locking.
type Registry struct {
	backends []Backend
	index    map[string]int
}

// NewRegistry binds every spec to engine. Names must be non-empty and unique.
func NewRegistry(engine repository.CompletionEngine, specs ...BackendSpec) (*Registry, error) {
	if engine == nil {
		return nil, fmt.Errorf("completion engine must not be nil")
	}

	r := &Registry{
		backends: make([]Backend, 0, len(specs)),
		index:    make(map[string]int, len(specs)),
	}
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("backend name must not be empty")
		}
		if _, dup := r.index[name]; dup {
			return nil, fmt.Errorf("duplicate backend name %q", name)
		}
		r.index[name] = len(r.backends)
		r.backends = append(r.backends, Backend{
			Name:        name,
			DisplayName: spec.DisplayName,
			Description: spec.Description,
			SuitableFor: append([]string(nil), spec.SuitableFor...),
			Instruction: spec.Instruction,
			Engine:      engine,
		})
	}
	return r, nil
}

// Get returns the backend called name.
func (r *Registry) Get(name string) (Backend, error) {
	i, ok := r.index[name]
	if !ok {
		return Backend{}, fmt.Errorf("%w: %q", ErrBackendNotFound, name)
	}
	return r.backends[i], nil
}

// All returns every backend in registration order.
func (r *Registry) All() []Backend {
	return append([]Backend(nil), r.backends...)
}

// Len reports the number of registered backends.
func (r *Registry) Len() int {
	return len(r.backends)
}
