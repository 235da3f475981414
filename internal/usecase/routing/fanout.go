package routing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/promptlab/modelrouter/internal/domain/repository"
	"golang.org/x/sync/errgroup"
)

// InvocationStatus is the outcome of one branch.
type InvocationStatus string

const (
	StatusSuccess InvocationStatus = "success"
	StatusFailed  InvocationStatus = "failed"
)

// InvocationResult is the outcome of one branch of a fan-out.
// Response is set on success and Error on failure.
type InvocationResult struct {
	Name           string                      `json:"name"`
	Status         InvocationStatus            `json:"status"`
	Response       string                      `json:"response,omitempty"`
	Error          string                      `json:"error,omitempty"`
	LatencyMillis  int64                       `json:"durationMs"`
	Description    string                      `json:"description"`
	ResponseLength int                         `json:"responseLength,omitempty"`
	Model          string                      `json:"model,omitempty"`
	Parameters     *repository.SamplingOptions `json:"parameters,omitempty"`
}

// Succeeded reports whether the branch produced a response.
func (r InvocationResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// branch is one unit of work for runBranches.
type branch struct {
	component   string
	name        string
	description string
	engine      repository.CompletionEngine
	req         repository.CompletionRequest
}

// runBranches runs every branch and waits for all of them. A positive limit caps
// how many run at once; otherwise they all start together.
// Slot i of the returned slice belongs to branches[i].
func runBranches(ctx context.Context, branches []branch, limit int) []InvocationResult {
	results := make([]InvocationResult, len(branches))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, b := range branches {
		g.Go(func() error {
			results[i] = invoke(ctx, b)
			return nil
		})
	}
	// Branches never return an error; Wait is purely the join barrier.
	_ = g.Wait()

	return results
}

// invoke runs a single engine call and converts any failure, panics included, into a result.
func invoke(ctx context.Context, b branch) (res InvocationResult) {
	res = InvocationResult{
		Name:        b.name,
		Description: b.description,
		Parameters:  b.req.Options,
	}

	var start time.Time
	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusFailed
			res.Response = ""
			res.Error = fmt.Sprintf("engine panicked: %v", p)
			if !start.IsZero() {
				res.LatencyMillis = time.Since(start).Milliseconds()
			}
			log.Printf("[%s] 💥 Branch '%s' panicked: %v", b.component, b.name, p)
		}
	}()

	start = time.Now()
	completion, err := b.engine.Generate(ctx, b.req)
	res.LatencyMillis = time.Since(start).Milliseconds()

	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		log.Printf("[%s] ❌ Branch '%s' failed after %dms: %v", b.component, b.name, res.LatencyMillis, err)
		return res
	}
	if completion == nil {
		res.Status = StatusFailed
		res.Error = "engine returned no completion"
		return res
	}

	res.Status = StatusSuccess
	res.Response = completion.Text
	res.ResponseLength = len([]rune(completion.Text))
	res.Model = completion.Model
	log.Printf("[%s] ✅ Branch '%s' completed in %dms", b.component, b.name, res.LatencyMillis)
	return res
}

// FanOutExecutor invokes every registered backend concurrently.
type FanOutExecutor struct {
	registry *Registry
}

// NewFanOutExecutor creates an executor over registry.
func NewFanOutExecutor(registry *Registry) *FanOutExecutor {
	return &FanOutExecutor{registry: registry}
}

// CompareAll sends input to every backend and returns one result per backend name.
// It returns only after every branch has finished; failed branches are reported, never raised.
func (e *FanOutExecutor) CompareAll(ctx context.Context, input string) map[string]InvocationResult {
	backends := e.registry.All()
	log.Printf("[FanOut] 🔀 Dispatching prompt to %d backends...", len(backends))

	branches := make([]branch, len(backends))
	for i, b := range backends {
		branches[i] = branch{
			component:   "FanOut",
			name:        b.Name,
			description: b.Description,
			engine:      b.Engine,
			req: repository.CompletionRequest{
				System: b.Instruction,
				User:   input,
			},
		}
	}

	results := runBranches(ctx, branches, 0)

	out := make(map[string]InvocationResult, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	log.Printf("[FanOut] Comparison complete: %d/%d succeeded", countSucceeded(results), len(results))
	return out
}

func countSucceeded(results []InvocationResult) int {
	n := 0
	for _, r := range results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}
