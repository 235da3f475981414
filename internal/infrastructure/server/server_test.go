package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/promptlab/modelrouter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat":
			_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"pong"}}`))
		case "/api/embed":
			_, _ = w.Write([]byte(`{"embeddings":[[1,0],[1,0]]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(t *testing.T, host string) *config.Config {
	t.Helper()
	return &config.Config{
		HTTPAddr:         "127.0.0.1:0",
		Engine:           config.EngineOllama,
		OllamaHost:       host,
		OllamaModel:      "llama3",
		OllamaEmbedModel: "nomic-embed-text",
		EngineTimeout:    5 * time.Second,
		BreakerThreshold: 3,
		BreakerOpen:      time.Second,
		DBPath:           filepath.Join(t.TempDir(), "app.db"),
		MemoryWindow:     10,
	}
}

func TestBuild_WiresHandler(t *testing.T) {
	ollama := fakeOllama(t)
	app, err := Build(context.Background(), testConfig(t, ollama.URL), true)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	assert.Equal(t, 4, app.Registry.Len())
	require.NotNil(t, app.Memory)

	api := httptest.NewServer(app.Handler())
	defer api.Close()

	resp, err := http.Post(api.URL+"/api/v1/models/route", "application/json", strings.NewReader(`{"input":"hello"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Response string `json:"response"`
		Backend  string `json:"backend"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "pong", got.Response)
	assert.Equal(t, "general", got.Backend)

	health, err := http.Get(api.URL + "/healthz")
	require.NoError(t, err)
	_ = health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestBuild_WithoutStore(t *testing.T) {
	app, err := Build(context.Background(), testConfig(t, fakeOllama(t).URL), false)
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	assert.Nil(t, app.Store)
	assert.Nil(t, app.Memory)
}

func TestBuild_UnknownEngine(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	cfg.Engine = "mystery"

	_, err := Build(context.Background(), cfg, false)
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t, fakeOllama(t).URL)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- New(cfg).Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
