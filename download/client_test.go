package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	c := NewClient()
	if c.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", c.MaxRetries, DefaultMaxRetries)
	}
	if c.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", c.UserAgent, DefaultUserAgent)
	}
	if c.HTTPClient == nil {
		t.Fatal("HTTPClient should be set")
	}

	custom := &http.Client{}
	c = NewClient(WithHTTPClient(custom), WithMaxRetries(7), WithUserAgent("test/1"))
	if c.HTTPClient != custom {
		t.Error("HTTPClient option not applied")
	}
	if c.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", c.MaxRetries)
	}
	if c.UserAgent != "test/1" {
		t.Errorf("UserAgent = %q, want test/1", c.UserAgent)
	}
}

func TestProxyFunc(t *testing.T) {
	tests := []struct {
		name       string
		httpProxy  string
		httpsProxy string
		target     string
		want       string
	}{
		{"https uses https proxy", "http://h:1", "http://s:2", "https://example.org/x", "http://s:2"},
		{"http uses http proxy", "http://h:1", "http://s:2", "http://example.org/x", "http://h:1"},
		{"https falls back", "http://h:1", "", "https://example.org/x", "http://h:1"},
		{"http falls back", "", "http://s:2", "http://example.org/x", "http://s:2"},
		{"none", "", "", "http://example.org/x", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, tt.target, nil)
			u, err := ProxyFunc(tt.httpProxy, tt.httpsProxy)(req)
			if err != nil {
				t.Fatalf("ProxyFunc() error = %v", err)
			}
			got := ""
			if u != nil {
				got = u.String()
			}
			if got != tt.want {
				t.Errorf("proxy = %q, want %q", got, tt.want)
			}
		})
	}

	req, _ := http.NewRequest(http.MethodGet, "http://example.org", nil)
	if _, err := ProxyFunc("not a url", "")(req); err == nil {
		t.Error("ProxyFunc() should reject an address without host")
	}
}

func TestClient_Fetch(t *testing.T) {
	body := "##gff-version 3\nChr01\tsrc\tgene\t1\t10\t.\t+\t.\tID=g1\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "NBI_v1.1", "genes.gff3")
	var lastWritten int64
	n, err := NewClient().Fetch(context.Background(), server.URL+"/genes.gff3", dest, func(written, total int64) {
		lastWritten = written
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n != int64(len(body)) {
		t.Errorf("n = %d, want %d", n, len(body))
	}
	if lastWritten != n {
		t.Errorf("last progress = %d, want %d", lastWritten, n)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != body {
		t.Errorf("content = %q", got)
	}
	if _, err := os.Stat(dest + partSuffix); !os.IsNotExist(err) {
		t.Error("part file should be gone")
	}
}

func TestClient_FetchRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := NewClient()
	c.RetryDelay = time.Millisecond
	dest := filepath.Join(t.TempDir(), "f.txt")
	if _, err := c.Fetch(context.Background(), server.URL, dest, nil); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_FetchErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	c := NewClient(WithMaxRetries(2))
	c.RetryDelay = time.Millisecond
	dir := t.TempDir()

	_, err := c.Fetch(context.Background(), server.URL+"/missing", filepath.Join(dir, "a"), nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("Fetch() error = %v, want 404 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("404 should not be retried, calls = %d", calls.Load())
	}

	calls.Store(0)
	dest := filepath.Join(dir, "b")
	_, err = c.Fetch(context.Background(), server.URL+"/broken", dest, nil)
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("Fetch() error = %v, want 502 StatusError", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	for _, p := range []string{dest, dest + partSuffix} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should not exist", p)
		}
	}
}

func TestTestProxy(t *testing.T) {
	if _, err := TestProxy(context.Background(), "", " ", "http://example.org"); !errors.Is(err, ErrNoProxy) {
		t.Errorf("TestProxy() error = %v, want ErrNoProxy", err)
	}

	var proxied atomic.Bool
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Host == "cotton.invalid" {
			proxied.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer proxy.Close()

	if _, err := TestProxy(context.Background(), proxy.URL, "", "http://cotton.invalid/"); err != nil {
		t.Fatalf("TestProxy() error = %v", err)
	}
	if !proxied.Load() {
		t.Error("request did not go through the proxy")
	}
}
