package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/metarag-go/internal/config"
	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

// fakeOllama answers the supervisor with verdict, map prompts with "Yes" and anything else with "42".
func fakeOllama(t *testing.T, verdict string, generateCalls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/embeddings":
			json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float32{1, 0, 0}})
		case "/api/generate":
			atomic.AddInt32(generateCalls, 1)
			var req struct {
				Prompt string `json:"prompt"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			resp := "42"
			switch {
			case strings.HasPrefix(req.Prompt, "You supervise"):
				resp = verdict
			case strings.HasPrefix(req.Prompt, ": Mark"):
				resp = "Yes"
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"response": resp, "done": true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, baseURL string) *config.AppConfig {
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderOllama
	cfg.LLM.BaseURL = baseURL
	cfg.Embedding.Provider = config.ProviderOllama
	cfg.Embedding.BaseURL = baseURL
	cfg.Store.Type = config.StoreSQLite
	cfg.Store.Path = t.TempDir()
	return cfg
}

func writeCorpus(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestApp_IngestAndAskFact(t *testing.T) {
	var calls int32
	server := fakeOllama(t, "FACT", &calls)

	a, err := New(testConfig(t, server.URL), nil)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	dir := writeCorpus(t, map[string]string{"a.txt": "The answer is 42.", "b.md": "# Notes"})
	n, err := a.Ingest.IngestDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	chunks, err := a.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, chunks)

	answer, err := a.Engine.Route(ctx, "What is the answer?", nil)
	require.NoError(t, err)
	assert.Equal(t, entities.VerdictFact, answer.Kind)
	assert.Equal(t, "42", answer.Text)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestApp_AskMeta(t *testing.T) {
	var calls int32
	server := fakeOllama(t, "META\nMAP: Mark headers with Yes.\nREDUCE: Count the Yes.", &calls)

	cfg := testConfig(t, server.URL)
	cfg.Store.Type = config.StoreMemory
	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	dir := writeCorpus(t, map[string]string{"a.txt": "first", "b.txt": "second", "c.txt": "third"})
	_, err = a.Ingest.IngestDir(ctx, dir)
	require.NoError(t, err)

	answer, err := a.Engine.Route(ctx, "How many documents are there?", nil)
	require.NoError(t, err)
	assert.Equal(t, entities.VerdictMeta, answer.Kind)
	assert.Equal(t, []string{"Yes", "Yes", "Yes"}, answer.IntermediateSteps)
	// classifier + 3 map + 1 reduce
	assert.EqualValues(t, 5, atomic.LoadInt32(&calls))
}

func TestApp_OpenAIRequiresKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKeyEnv = "METARAG_TEST_UNSET_KEY"
	cfg.Store.Type = config.StoreMemory

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METARAG_TEST_UNSET_KEY")
}

func TestApp_OpenAIWiring(t *testing.T) {
	t.Setenv("METARAG_TEST_KEY", "sk-test")
	cfg := config.Default()
	cfg.LLM.APIKeyEnv = "METARAG_TEST_KEY"
	cfg.Store.Type = config.StoreMemory

	a, err := New(cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

func TestApp_PDFSupportFollowsConfig(t *testing.T) {
	var calls int32
	server := fakeOllama(t, "FACT", &calls)

	cfg := testConfig(t, server.URL)
	cfg.Store.Type = config.StoreMemory
	a, err := New(cfg, nil)
	require.NoError(t, err)
	assert.NotContains(t, a.Loader.SupportedExtensions(), ".pdf")

	cfg.Ingest.PDFServiceURL = "http://localhost:8081"
	a, err = New(cfg, nil)
	require.NoError(t, err)
	assert.Contains(t, a.Loader.SupportedExtensions(), ".pdf")
}

func TestApp_CheckPDFService(t *testing.T) {
	var calls int32
	ollama := fakeOllama(t, "FACT", &calls)
	pdf := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
		}
	}))
	defer pdf.Close()

	cfg := testConfig(t, ollama.URL)
	cfg.Store.Type = config.StoreMemory
	a, err := New(cfg, nil)
	require.NoError(t, err)
	assert.False(t, a.CheckPDFService(context.Background()))

	cfg.Ingest.PDFServiceURL = pdf.URL
	a, err = New(cfg, nil)
	require.NoError(t, err)
	assert.True(t, a.CheckPDFService(context.Background()))

	cfg.Ingest.PDFServiceURL = "http://127.0.0.1:1"
	a, err = New(cfg, nil)
	require.NoError(t, err)
	assert.False(t, a.CheckPDFService(context.Background()))
}

func TestEngineConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.MetaQuery = "documents"
	cfg.Engine.MaxChunks = 10

	ec := EngineConfig(cfg)
	assert.Equal(t, "documents", ec.MetaQuery)
	assert.Equal(t, 10, ec.MaxChunks)
	assert.Equal(t, cfg.Models, ec.Roles)
	assert.True(t, ec.ReturnIntermediateSteps)
}
