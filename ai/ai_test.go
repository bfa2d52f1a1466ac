package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/cottongenomics/cotton-toolkit/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range config.ProviderNames {
		t.Setenv(EnvVarName(name), "")
		if v, ok := providerEnv[name]; ok {
			t.Setenv(v, "")
		}
	}
	return home
}

func TestResolveKey_Order(t *testing.T) {
	home := isolateHome(t)

	_, _, err := ResolveKey(DefaultSources("openai", ""))
	assert.ErrorIs(t, err, ErrNoAPIKey)

	require.NoError(t, SaveKey("openai", "  from-file \n"))
	assert.True(t, KeyFileExists("openai"))
	info, err := os.Stat(filepath.Join(home, ".cotton_toolkit", "openai.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	key, from, err := ResolveKey(DefaultSources("openai", ""))
	require.NoError(t, err)
	assert.Equal(t, "from-file", key)
	assert.Contains(t, from, "openai.key")

	t.Setenv("OPENAI_API_KEY", "from-provider-env")
	key, _, _ = ResolveKey(DefaultSources("openai", ""))
	assert.Equal(t, "from-provider-env", key)

	t.Setenv("COTTON_TOOLKIT_OPENAI_API_KEY", "from-toolkit-env")
	key, _, _ = ResolveKey(DefaultSources("openai", ""))
	assert.Equal(t, "from-toolkit-env", key)

	key, from, _ = ResolveKey(DefaultSources("openai", "from-config"))
	assert.Equal(t, "from-config", key)
	assert.Equal(t, "config file", from)

	require.NoError(t, DeleteKey("openai"))
	assert.False(t, KeyFileExists("openai"))
	require.NoError(t, DeleteKey("openai"))
}

func TestSaveKey_Empty(t *testing.T) {
	isolateHome(t)
	assert.Error(t, SaveKey("google", "   "))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "abcd****mnop", MaskKey("abcdefghmnop"))
	assert.Equal(t, "*****", MaskKey("short"))
}

func TestRenderPrompt(t *testing.T) {
	assert.Equal(t, "Translate: kinase", RenderPrompt("Translate: {text}", "kinase"))
	assert.Equal(t, "a x b x", RenderPrompt("a {text} b {text}", "x"))
	assert.Equal(t, "Summarize\n\nkinase", RenderPrompt("Summarize", "kinase"))
	assert.Equal(t, "kinase", RenderPrompt("", "kinase"))
}

func TestSettingsFor(t *testing.T) {
	isolateHome(t)
	cfg := config.Default()

	_, err := SettingsFor(cfg, "claude")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = SettingsFor(cfg, "deepseek")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	cfg.Provider("deepseek").APIKey = "k"
	s, err := SettingsFor(cfg, " DeepSeek ")
	require.NoError(t, err)
	assert.Equal(t, "deepseek", s.Name)
	assert.Equal(t, "k", s.APIKey)
	assert.Equal(t, "deepseek-chat", s.Model)
	assert.NotNil(t, s.HTTPClient)

	t.Setenv("COTTON_TOOLKIT_GOOGLE_API_KEY", "g")
	s, err = SettingsFor(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, cfg.AIServices.DefaultProvider, s.Name)

	cfg.AIServices.Providers["google"] = &config.ProviderConfig{APIKey: "g"}
	s, err = SettingsFor(cfg, "google")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultModel("google"), s.Model)
	assert.NotEmpty(t, s.Model)
}

func TestSettingsFor_Proxy(t *testing.T) {
	isolateHome(t)
	cfg := config.Default()
	cfg.Provider("openai").APIKey = "k"
	cfg.Proxies.HTTPS = "http://127.0.0.1:7890"
	cfg.AIServices.UseProxyForAI = true

	s, err := SettingsFor(cfg, "openai")
	require.NoError(t, err)
	tr := s.HTTPClient.Transport.(*http.Transport)
	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1/models", nil)
	u, err := tr.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7890", u.Host)

	cfg.AIServices.UseProxyForAI = false
	s, err = SettingsFor(cfg, "openai")
	require.NoError(t, err)
	assert.Nil(t, s.HTTPClient.Transport.(*http.Transport).Proxy)
}

func newCompatibleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
			return
		}
		switch r.URL.Path {
		case "/v1/models":
			w.Write([]byte(`{"data":[{"id":"m-b"},{"id":"m-a"}]}`))
		case "/v1/chat/completions":
			var req chatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 1 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if strings.Contains(req.Messages[0].Content, "fail") {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("upstream down"))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"role": "assistant", "content": " " + req.Model + ":" + req.Messages[0].Content + " "}},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompatibleProvider(t *testing.T) {
	srv := newCompatibleServer(t)
	ctx := context.Background()

	p, err := New(ctx, Settings{Name: "openai", APIKey: "secret", Model: "m-a", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	reply, err := p.Complete(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "m-a:hello", reply)

	models, err := p.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m-a", "m-b"}, models)

	_, err = p.Complete(ctx, "please fail")
	assert.ErrorContains(t, err, "HTTP 500: upstream down")

	bad, err := New(ctx, Settings{Name: "openai", APIKey: "wrong", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	_, err = bad.Models(ctx)
	assert.ErrorContains(t, err, "invalid api key")
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, Settings{Name: "openai"})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = New(ctx, Settings{Name: "mystery", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	assert.Equal(t, "https://api.x.ai/v1", DefaultBaseURL("grok"))
	assert.Empty(t, DefaultBaseURL("google"))
}

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if strings.Contains(prompt, "bad") {
		return "", errors.New("refused")
	}
	return strings.ToUpper(prompt), nil
}

func (f *fakeProvider) Models(context.Context) ([]string, error) {
	return []string{"fake-1"}, nil
}

func TestAnnotateTable(t *testing.T) {
	table := &tabular.Table{
		Header: []string{"gene", "desc"},
		Rows: [][]string{
			{"g1", "kinase"},
			{"g2", ""},
			{"g3", "bad input"},
			{"g4", "  transporter "},
		},
	}
	p := &fakeProvider{}
	var last int
	var mu sync.Mutex

	stats, err := AnnotateTable(context.Background(), table, p, AnnotateOptions{
		Column:    "desc",
		NewColumn: "summary",
		Template:  "t:{text}",
		Workers:   3,
		Progress: func(done, total int) {
			mu.Lock()
			last = max(last, done)
			mu.Unlock()
			assert.Equal(t, 3, total)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, AnnotateStats{Processed: 2, Skipped: 1, Failed: 1}, stats)
	assert.Equal(t, 3, last)
	assert.Len(t, p.prompts, 3)

	values, err := table.Values("summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"T:KINASE", "", ErrorPrefix + "refused", "T:TRANSPORTER"}, values)
}

func TestAnnotateTable_Errors(t *testing.T) {
	table := &tabular.Table{Header: []string{"gene"}, Rows: [][]string{{"g1"}}}
	_, err := AnnotateTable(context.Background(), table, &fakeProvider{}, AnnotateOptions{Column: "desc", NewColumn: "x"})
	assert.ErrorContains(t, err, "desc")

	_, err = AnnotateTable(context.Background(), table, &fakeProvider{}, AnnotateOptions{Column: "gene"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = AnnotateTable(ctx, table, &fakeProvider{}, AnnotateOptions{Column: "gene", NewColumn: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, table.Header, 1)
}
