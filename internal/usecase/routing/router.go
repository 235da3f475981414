package routing

import (
	"fmt"
	"log"
	"strings"
)

// RouteMode records whether the category came from the caller or the classifier.
type RouteMode string

const (
	RouteModeManual RouteMode = "manual"
	RouteModeAuto   RouteMode = "auto"
)

// categoryAliases maps explicit task types onto backend names.
// Anything absent resolves to the general backend.
var categoryAliases = map[string]string{
	"creative":    BackendCreative,
	"writing":     BackendCreative,
	"story":       BackendCreative,
	"technical":   BackendTechnical,
	"code":        BackendTechnical,
	"programming": BackendTechnical,
	"business":    BackendBusiness,
	"strategy":    BackendBusiness,
	"analysis":    BackendBusiness,
}

// Decision is the outcome of routing one request.
type Decision struct {
	Category       TaskCategory
	MatchedKeyword string
	Mode           RouteMode
	Backend        Backend
}

// Router resolves a request to a single backend.
type Router struct {
	classifier *TaskClassifier
	registry   *Registry
}

// NewRouter initializes the router over the given classifier and registry.
func NewRouter(classifier *TaskClassifier, registry *Registry) *Router {
	return &Router{
		classifier: classifier,
		registry:   registry,
	}
}

// Route picks the backend for input. A non-blank explicitCategory is trusted as-is
// and the classifier is skipped. The only error is ErrBackendNotFound.
func (r *Router) Route(input, explicitCategory string) (Decision, error) {
	var d Decision

	if explicit := strings.ToLower(strings.TrimSpace(explicitCategory)); explicit != "" {
		d.Mode = RouteModeManual
		d.Category = CategoryForBackend(BackendForCategory(explicit))
	} else {
		res := r.classifier.ClassifyDetailed(input)
		d.Mode = RouteModeAuto
		d.Category = res.Category
		d.MatchedKeyword = res.MatchedKeyword
	}

	backend, err := r.registry.Get(BackendForCategory(string(d.Category)))
	if err != nil {
		return Decision{}, fmt.Errorf("route %s category %q: %w", d.Mode, d.Category, err)
	}
	d.Backend = backend

	log.Printf("[Router] 🛤️  Routing %s task '%s' to %s", d.Mode, d.Category, backend.DisplayName)
	return d, nil
}

// BackendForCategory maps a category or task-type alias to a backend name.
func BackendForCategory(category string) string {
	if name, ok := categoryAliases[strings.ToLower(strings.TrimSpace(category))]; ok {
		return name
	}
	return BackendGeneral
}

// CategoryForBackend is the inverse of BackendForCategory for canonical names.
func CategoryForBackend(name string) TaskCategory {
	switch name {
	case BackendTechnical:
		return CategoryTechnical
	case BackendCreative:
		return CategoryCreative
	case BackendBusiness:
		return CategoryBusiness
	default:
		return CategoryGeneral
	}
}
