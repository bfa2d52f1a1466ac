package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cottongenomics/cotton-toolkit/config"
	"github.com/cottongenomics/cotton-toolkit/download"
)

// ErrUnknownProvider is returned for provider keys NewProvider does not know.
var ErrUnknownProvider = errors.New("unknown AI provider")

// Provider sends prompts to one hosted model.
type Provider interface {
	// Name returns the provider key, such as "google".
	Name() string

	// Complete sends prompt and returns the model's reply text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Models lists the model IDs the account can use.
	Models(ctx context.Context) ([]string, error)
}

// defaultBaseURLs holds the OpenAI-compatible endpoint of each provider.
var defaultBaseURLs = map[string]string{
	"openai":      "https://api.openai.com/v1",
	"deepseek":    "https://api.deepseek.com/v1",
	"qwen":        "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"siliconflow": "https://api.siliconflow.cn/v1",
	"grok":        "https://api.x.ai/v1",
	"openrouter":  "https://openrouter.ai/api/v1",
}

// DefaultBaseURL returns the built-in endpoint for an OpenAI-compatible
// provider, or "" for providers that have none.
func DefaultBaseURL(name string) string {
	return defaultBaseURLs[name]
}

// Settings are the resolved parameters used to build a Provider.
type Settings struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string

	// HTTPClient is used for every request. Nil means a client with a
	// two minute timeout.
	HTTPClient *http.Client
}

// SettingsFor resolves the settings of a provider from cfg: the key comes
// from the credential chain and the proxy from cfg.Proxies when
// use_proxy_for_ai is set.
func SettingsFor(cfg *config.Config, name string) (Settings, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = cfg.AIServices.DefaultProvider
	}
	if !known(name) {
		return Settings{}, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	s := Settings{Name: name}
	if pc := cfg.Provider(name); pc != nil {
		s.APIKey = pc.APIKey
		s.Model = pc.Model
		s.BaseURL = pc.BaseURL
	}
	if s.Model == "" {
		s.Model = config.DefaultModel(name)
	}

	key, _, err := ResolveKey(DefaultSources(name, s.APIKey))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w (set api_key in the config, %s, or run ct-ai-key set %s)",
			name, err, EnvVarName(name), name)
	}
	s.APIKey = key

	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.AIServices.UseProxyForAI {
		tr.Proxy = download.ProxyFunc(cfg.Proxies.HTTP, cfg.Proxies.HTTPS)
	} else {
		tr.Proxy = nil
	}
	s.HTTPClient = &http.Client{Transport: tr, Timeout: 2 * time.Minute}
	return s, nil
}

// NewProvider builds the provider called name using cfg. An empty name
// selects ai_services.default_provider.
func NewProvider(ctx context.Context, cfg *config.Config, name string) (Provider, error) {
	s, err := SettingsFor(cfg, name)
	if err != nil {
		return nil, err
	}
	return New(ctx, s)
}

// New builds a provider from resolved settings.
func New(ctx context.Context, s Settings) (Provider, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", s.Name, ErrNoAPIKey)
	}
	if s.HTTPClient == nil {
		s.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if s.Name == "google" {
		return newGoogle(ctx, s)
	}
	if s.BaseURL == "" {
		s.BaseURL = defaultBaseURLs[s.Name]
	}
	if s.BaseURL == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, s.Name)
	}
	return newCompatible(s), nil
}

func known(name string) bool {
	for _, n := range config.ProviderNames {
		if n == name {
			return true
		}
	}
	return false
}

// RenderPrompt substitutes text for every {text} in template. A template
// without the placeholder gets the text appended on a new paragraph.
func RenderPrompt(template, text string) string {
	if !strings.Contains(template, "{text}") {
		if template == "" {
			return text
		}
		return template + "\n\n" + text
	}
	return strings.ReplaceAll(template, "{text}", text)
}
