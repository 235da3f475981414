package routing

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/promptlab/modelrouter/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareProfiles_DefaultNames(t *testing.T) {
	engine := echoEngine()
	runner := NewParameterComparisonRunner(engine, "be helpful", NewParameterProfileStore())

	results := runner.CompareProfiles(context.Background(), "explain gravity")

	require.Len(t, results, 3)
	for _, name := range []string{ProfileConservative, ProfileBalanced, ProfileCreative} {
		res, ok := results[name]
		require.True(t, ok, "missing %s", name)
		assert.Equal(t, name, res.Name)
		assert.Equal(t, StatusSuccess, res.Status)
	}

	want := map[string]repository.SamplingOptions{
		ProfileConservative: {Temperature: 0.0, TopP: 0.1, MaxTokens: 200},
		ProfileBalanced:     {Temperature: 0.7, TopP: 0.9, MaxTokens: 500},
		ProfileCreative:     {Temperature: 1.2, TopP: 0.95, MaxTokens: 800},
	}
	got := map[string]repository.SamplingOptions{}
	for name, res := range results {
		require.NotNil(t, res.Parameters)
		got[name] = *res.Parameters
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected parameters (-want +got):\n%s", diff)
	}

	for _, c := range engine.Calls() {
		assert.Equal(t, "be helpful", c.System, "instruction must be held constant")
		assert.Equal(t, "explain gravity", c.User)
	}
}

func TestCompareProfiles_IndependentOfCompletionOrder(t *testing.T) {
	delays := map[float64]time.Duration{0.0: 60 * time.Millisecond, 0.7: 30 * time.Millisecond, 1.2: 0}
	engine := &funcEngine{
		name: "delayed",
		fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			time.Sleep(delays[req.Options.Temperature])
			return &repository.Completion{Text: "done"}, nil
		},
	}

	results := NewParameterComparisonRunner(engine, "", NewParameterProfileStore()).
		CompareProfiles(context.Background(), "prompt")

	var names []string
	for n := range results {
		names = append(names, n)
	}
	assert.ElementsMatch(t, DefaultComparisonProfiles, names)
}

func TestCompareProfiles_FailureIsolation(t *testing.T) {
	engine := &funcEngine{
		name: "flaky",
		fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			if req.Options.Temperature > 1 {
				return nil, errors.New("temperature rejected")
			}
			return &repository.Completion{Text: "fine"}, nil
		},
	}

	results := NewParameterComparisonRunner(engine, "", NewParameterProfileStore()).
		CompareProfiles(context.Background(), "prompt")

	require.Len(t, results, 3)
	assert.Equal(t, StatusFailed, results[ProfileCreative].Status)
	assert.Equal(t, "temperature rejected", results[ProfileCreative].Error)
	assert.Equal(t, StatusSuccess, results[ProfileConservative].Status)
	assert.Equal(t, StatusSuccess, results[ProfileBalanced].Status)
}

func TestCompareProfiles_UnknownNameUsesBalancedValues(t *testing.T) {
	results := NewParameterComparisonRunner(echoEngine(), "", NewParameterProfileStore()).
		CompareProfiles(context.Background(), "prompt", "mystery")

	require.Len(t, results, 1)
	res := results["mystery"]
	require.NotNil(t, res.Parameters)
	assert.Equal(t, 0.7, res.Parameters.Temperature)
	assert.Equal(t, 500, res.Parameters.MaxTokens)
}

func TestSweepTemperature_PreservesOrder(t *testing.T) {
	temps := []float64{0.0, 0.3, 0.7, 1.0, 1.5}

	// Earlier temperatures finish last, so completion order is the reverse of input order.
	var mu sync.Mutex
	var finished []float64
	engine := &funcEngine{
		name: "reverse",
		fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			time.Sleep(time.Duration((1.5-req.Options.Temperature)*40) * time.Millisecond)
			mu.Lock()
			finished = append(finished, req.Options.Temperature)
			mu.Unlock()
			return &repository.Completion{Text: "t"}, nil
		},
	}

	results := NewParameterComparisonRunner(engine, "", NewParameterProfileStore()).
		SweepTemperature(context.Background(), "prompt", temps)

	require.Len(t, results, len(temps))
	for i, res := range results {
		require.NotNil(t, res.Parameters)
		assert.Equal(t, temps[i], res.Parameters.Temperature)
		assert.Equal(t, SweepMaxTokens, res.Parameters.MaxTokens)
		assert.Equal(t, StatusSuccess, res.Status)
	}
	assert.Equal(t, "temperature=0", results[0].Name)
	assert.Equal(t, "temperature=1.5", results[4].Name)
	assert.Len(t, finished, len(temps))
}

func TestSweepTemperature_FailedBranchKeepsSlot(t *testing.T) {
	engine := &funcEngine{
		name: "picky",
		fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			if req.Options.Temperature == 1.0 {
				return nil, errors.New("unsupported")
			}
			return &repository.Completion{Text: "ok"}, nil
		},
	}

	results := NewParameterComparisonRunner(engine, "", NewParameterProfileStore()).
		SweepTemperature(context.Background(), "prompt", []float64{0.5, 1.0, 1.5})

	require.Len(t, results, 3)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, StatusSuccess, results[2].Status)
}

func TestSweepTemperature_Empty(t *testing.T) {
	results := NewParameterComparisonRunner(echoEngine(), "", NewParameterProfileStore()).
		SweepTemperature(context.Background(), "prompt", nil)
	assert.Empty(t, results)
}

func TestSweepTemperature_BoundsConcurrency(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	engine := &funcEngine{
		name: "slow",
		fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return &repository.Completion{Text: "t"}, nil
		},
	}

	temps := make([]float64, 200)
	for i := range temps {
		temps[i] = float64(i%21) / 10
	}

	results := NewParameterComparisonRunner(engine, "", NewParameterProfileStore()).
		SweepTemperature(context.Background(), "prompt", temps)

	require.Len(t, results, len(temps))
	for i, res := range results {
		assert.Equal(t, temps[i], res.Parameters.Temperature)
		assert.Equal(t, StatusSuccess, res.Status)
	}
	assert.LessOrEqual(t, peak, SweepConcurrency)
	assert.Positive(t, peak)
}

func TestCompareProfiles_RunsAllAtOnce(t *testing.T) {
	// Every branch blocks until all three have started.
	var started sync.WaitGroup
	started.Add(len(DefaultComparisonProfiles))
	engine := &funcEngine{
		name: "barrier",
		fn: func(ctx context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			started.Done()
			started.Wait()
			return &repository.Completion{Text: "ok"}, nil
		},
	}

	results := NewParameterComparisonRunner(engine, "", NewParameterProfileStore()).
		CompareProfiles(context.Background(), "prompt")

	assert.Len(t, results, len(DefaultComparisonProfiles))
}

func TestSweepTemperature_LogsAsTuning(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })

	NewParameterComparisonRunner(echoEngine(), "", NewParameterProfileStore()).
		SweepTemperature(context.Background(), "prompt", []float64{0})

	out := buf.String()
	assert.Contains(t, out, "[Tuning] ✅ Branch 'temperature=0'")
	assert.NotContains(t, out, "[FanOut]")
}
