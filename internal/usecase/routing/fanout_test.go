package routing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/promptlab/modelrouter/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// specsNamed returns one spec per name with the name doubling as the instruction.
func specsNamed(names ...string) []BackendSpec {
	specs := make([]BackendSpec, len(names))
	for i, n := range names {
		specs[i] = BackendSpec{Name: n, Description: "desc " + n, Instruction: n}
	}
	return specs
}

func TestCompareAll_IsolatesFailures(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}

	cases := []map[string]bool{
		{},
		{"a": true},
		{"b": true, "d": true},
		{"a": true, "b": true, "c": true, "d": true, "e": true},
	}

	for _, failing := range cases {
		t.Run(fmt.Sprintf("%d failing", len(failing)), func(t *testing.T) {
			engine := &funcEngine{
				name: "selective",
				fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
					if failing[req.System] {
						return nil, &repository.EngineError{Engine: "selective", Op: "generate", Err: errors.New("boom " + req.System)}
					}
					return &repository.Completion{Text: "ok " + req.System}, nil
				},
			}

			exec := NewFanOutExecutor(mustRegistry(engine, specsNamed(names...)...))
			results := exec.CompareAll(context.Background(), "prompt")

			require.Len(t, results, len(names))
			failed := 0
			for _, n := range names {
				res, ok := results[n]
				require.True(t, ok, "missing result for %s", n)
				assert.Equal(t, n, res.Name)
				assert.Equal(t, "desc "+n, res.Description)
				if failing[n] {
					failed++
					assert.Equal(t, StatusFailed, res.Status)
					assert.Contains(t, res.Error, "boom "+n)
					assert.Empty(t, res.Response)
				} else {
					assert.Equal(t, StatusSuccess, res.Status)
					assert.Equal(t, "ok "+n, res.Response)
					assert.Empty(t, res.Error)
				}
			}
			assert.Equal(t, len(failing), failed)
		})
	}
}

func TestCompareAll_WaitsForSlowestBranch(t *testing.T) {
	const slow = 150 * time.Millisecond

	engine := &funcEngine{
		name: "sleepy",
		fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			if req.System == "slow" {
				time.Sleep(slow)
			}
			return &repository.Completion{Text: req.System}, nil
		},
	}

	exec := NewFanOutExecutor(mustRegistry(engine, specsNamed("fast1", "slow", "fast2")...))

	start := time.Now()
	results := exec.CompareAll(context.Background(), "prompt")
	elapsed := time.Since(start)

	require.Contains(t, results, "slow")
	assert.Equal(t, StatusSuccess, results["slow"].Status)
	assert.GreaterOrEqual(t, elapsed, slow)
	assert.GreaterOrEqual(t, results["slow"].LatencyMillis, slow.Milliseconds())
	assert.Less(t, results["fast1"].LatencyMillis, slow.Milliseconds())
}

func TestCompareAll_BranchesRunConcurrently(t *testing.T) {
	const delay = 100 * time.Millisecond

	engine := &funcEngine{
		name: "sleepy",
		fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			time.Sleep(delay)
			return &repository.Completion{Text: req.System}, nil
		},
	}

	exec := NewFanOutExecutor(mustRegistry(engine, specsNamed("a", "b", "c", "d")...))

	start := time.Now()
	results := exec.CompareAll(context.Background(), "prompt")
	elapsed := time.Since(start)

	require.Len(t, results, 4)
	// Sequential execution would take 4x the delay.
	assert.Less(t, elapsed, 3*delay)
}

func TestCompareAll_RecoversPanickingBranch(t *testing.T) {
	engine := &funcEngine{
		name: "panicky",
		fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			if req.System == "bad" {
				panic("kaboom")
			}
			return &repository.Completion{Text: "fine"}, nil
		},
	}

	exec := NewFanOutExecutor(mustRegistry(engine, specsNamed("good", "bad")...))
	results := exec.CompareAll(context.Background(), "prompt")

	require.Len(t, results, 2)
	assert.Equal(t, StatusSuccess, results["good"].Status)
	assert.Equal(t, StatusFailed, results["bad"].Status)
	assert.Contains(t, results["bad"].Error, "kaboom")
}

func TestCompareAll_NilCompletionIsFailure(t *testing.T) {
	engine := &funcEngine{
		name: "nil",
		fn: func(context.Context, repository.CompletionRequest) (*repository.Completion, error) {
			return nil, nil
		},
	}

	results := NewFanOutExecutor(mustRegistry(engine, specsNamed("x")...)).CompareAll(context.Background(), "p")
	assert.Equal(t, StatusFailed, results["x"].Status)
}

func TestCompareAll_EmptyRegistry(t *testing.T) {
	exec := NewFanOutExecutor(mustRegistry(echoEngine()))
	results := exec.CompareAll(context.Background(), "prompt")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestCompareAll_SendsInstructionAndInput(t *testing.T) {
	engine := echoEngine()
	exec := NewFanOutExecutor(mustRegistry(engine, DefaultBackendSpecs()...))

	results := exec.CompareAll(context.Background(), "hello")
	require.Len(t, results, 4)

	calls := engine.Calls()
	require.Len(t, calls, 4)
	seen := map[string]bool{}
	for _, c := range calls {
		assert.Equal(t, "hello", c.User)
		assert.Nil(t, c.Options)
		seen[c.System] = true
	}
	assert.Len(t, seen, 4, "each backend must send its own instruction")
	assert.Equal(t, len([]rune("echo: hello")), results[BackendGeneral].ResponseLength)
}
