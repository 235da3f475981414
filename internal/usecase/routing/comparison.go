package routing

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/promptlab/modelrouter/internal/domain/repository"
)

// SweepMaxTokens bounds every temperature sweep branch.
const SweepMaxTokens = 200

// MaxSweepTemperatures is the longest sweep callers should accept.
const MaxSweepTemperatures = 20

// SweepConcurrency caps in-flight engine calls during a sweep.
const SweepConcurrency = 4

// DefaultSweepTemperatures is used when a sweep is requested without explicit values.
var DefaultSweepTemperatures = []float64{0.0, 0.3, 0.7, 1.0, 1.5}

// ParameterComparisonRunner varies only sampling parameters over one instruction and engine.
type ParameterComparisonRunner struct {
	engine      repository.CompletionEngine
	instruction string
	profiles    *ParameterProfileStore
}

// NewParameterComparisonRunner fixes the engine and instruction shared by every branch.
// An empty instruction sends the user message alone.
func NewParameterComparisonRunner(engine repository.CompletionEngine, instruction string, profiles *ParameterProfileStore) *ParameterComparisonRunner {
	return &ParameterComparisonRunner{
		engine:      engine,
		instruction: instruction,
		profiles:    profiles,
	}
}

// CompareProfiles runs input once per named profile, concurrently, and keys results by the requested name.
// With no names it uses conservative, balanced and creative.
func (r *ParameterComparisonRunner) CompareProfiles(ctx context.Context, input string, names ...string) map[string]InvocationResult {
	if len(names) == 0 {
		names = DefaultComparisonProfiles
	}
	log.Printf("[Tuning] 🎛️  Comparing %d parameter profiles...", len(names))

	branches := make([]branch, len(names))
	for i, name := range names {
		p := r.profiles.Profile(name)
		branches[i] = branch{
			component:   "Tuning",
			name:        name,
			description: p.Label + " configuration",
			engine:      r.engine,
			req: repository.CompletionRequest{
				System:  r.instruction,
				User:    input,
				Options: p.Options(),
			},
		}
	}

	results := runBranches(ctx, branches, 0)

	out := make(map[string]InvocationResult, len(results))
	for _, res := range results {
		out[res.Name] = res
	}
	return out
}

// SweepTemperature runs one branch per temperature, at most SweepConcurrency at a time.
// The i-th result belongs to temperatures[i].
func (r *ParameterComparisonRunner) SweepTemperature(ctx context.Context, input string, temperatures []float64) []InvocationResult {
	log.Printf("[Tuning] 🌡️  Sweeping %d temperatures...", len(temperatures))

	branches := make([]branch, len(temperatures))
	for i, t := range temperatures {
		branches[i] = branch{
			component:   "Tuning",
			name:        "temperature=" + strconv.FormatFloat(t, 'f', -1, 64),
			description: fmt.Sprintf("temperature %.1f", t),
			engine:      r.engine,
			req: repository.CompletionRequest{
				System: r.instruction,
				User:   input,
				Options: &repository.SamplingOptions{
					Temperature: t,
					MaxTokens:   SweepMaxTokens,
				},
			},
		}
	}

	return runBranches(ctx, branches, SweepConcurrency)
}
