package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bregydoc/gtranslate"

	"github.com/minios-linux/transtree/config"
)

// ---------------------------------------------------------------------------
// OpenAI-compatible backend
// ---------------------------------------------------------------------------

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func newTestOpenAI(url string) *OpenAI {
	o := NewOpenAI(url, "secret", "test-model", 5*time.Second, 2)
	o.Backoff = time.Millisecond
	return o
}

func TestOpenAITranslate(t *testing.T) {
	var gotAuth, gotModel, gotUser, gotSystem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotModel = req.Model
		if len(req.Messages) == 2 {
			gotSystem = req.Messages[0].Content
			gotUser = req.Messages[1].Content
		}
		io.WriteString(w, chatReply("  // 안녕하세요\n"))
	}))
	defer srv.Close()

	o := newTestOpenAI(srv.URL + "/v1/")
	out, err := o.Translate(context.Background(), "// hello", "auto", "ko")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "// 안녕하세요" {
		t.Fatalf("out = %q", out)
	}
	if gotAuth != "Bearer secret" || gotModel != "test-model" || gotUser != "// hello" {
		t.Fatalf("request: auth=%q model=%q user=%q", gotAuth, gotModel, gotUser)
	}
	if !strings.Contains(gotSystem, "Korean") || strings.Contains(gotSystem, "{{") {
		t.Fatalf("system prompt not resolved: %q", gotSystem)
	}
}

func TestOpenAIRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, chatReply("ok"))
	}))
	defer srv.Close()

	out, err := newTestOpenAI(srv.URL).Translate(context.Background(), "x", "auto", "ko")
	if err != nil || out != "ok" {
		t.Fatalf("Translate = %q, %v", out, err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits = %d, want 3", hits.Load())
	}
}

func TestOpenAIRateLimitHonoursRetryAfter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, chatReply("ok"))
	}))
	defer srv.Close()

	out, err := newTestOpenAI(srv.URL).Translate(context.Background(), "x", "auto", "ko")
	if err != nil || out != "ok" {
		t.Fatalf("Translate = %q, %v", out, err)
	}
}

func TestOpenAIClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestOpenAI(srv.URL).Translate(context.Background(), "x", "auto", "ko")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v, want status 401", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

func TestExtractResponseText(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{"chat", chatReply("hi"), "hi", ""},
		{"api error", `{"error":{"message":"quota"}}`, "", "API error: quota"},
		{"not json", `<html>`, "", "invalid JSON"},
		{"no choices", `{"choices":[]}`, "", "could not extract"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractResponseText([]byte(tc.body))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("got %q, %v", got, err)
			}
		})
	}
}

func TestRetryDelay(t *testing.T) {
	body := []byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"12s"}]}}`)
	if got := parseRetryDelay(body); got != 17*time.Second {
		t.Fatalf("parseRetryDelay = %s, want 17s", got)
	}
	if got := parseRetryDelay([]byte("nope")); got != 65*time.Second {
		t.Fatalf("parseRetryDelay(default) = %s", got)
	}
	if got := retryAfter("3", body); got != 3*time.Second {
		t.Fatalf("retryAfter header = %s, want 3s", got)
	}
	if got := retryAfter("soon", body); got != 17*time.Second {
		t.Fatalf("retryAfter bad header = %s, want body delay", got)
	}
}

func TestCleanResponse(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  hello  ", "hello"},
		{"```\n// 주석\n```", "// 주석"},
		{"```text\n# 제목\n```\n", "# 제목"},
		{"plain", "plain"},
		{"```js", "```js"},
	}
	for _, tc := range cases {
		if got := cleanResponse(tc.in); got != tc.want {
			t.Errorf("cleanResponse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Google backend
// ---------------------------------------------------------------------------

func TestGoogleTranslate(t *testing.T) {
	g := NewGoogle(2)
	var got gtranslate.TranslationParams
	g.translate = func(text string, p gtranslate.TranslationParams) (string, error) {
		got = p
		return "번역:" + text, nil
	}

	out, err := g.Translate(context.Background(), "hello", "", "ko_KR")
	if err != nil || out != "번역:hello" {
		t.Fatalf("Translate = %q, %v", out, err)
	}
	if got.From != "auto" || got.To != "ko" || got.Tries != 3 {
		t.Fatalf("params = %+v", got)
	}

	g.translate = func(string, gtranslate.TranslationParams) (string, error) {
		return "", errors.New("network down")
	}
	if _, err := g.Translate(context.Background(), "hello", "auto", "ko"); err == nil || !strings.Contains(err.Error(), "network down") {
		t.Fatalf("err = %v", err)
	}
}

func TestGoogleTranslateCancelled(t *testing.T) {
	g := NewGoogle(0)
	release := make(chan struct{})
	defer close(release)
	g.translate = func(string, gtranslate.TranslationParams) (string, error) {
		<-release
		return "late", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Translate(ctx, "x", "auto", "ko"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestGoogleCode(t *testing.T) {
	cases := map[string]string{
		"ko":    "ko",
		"ko-KR": "ko",
		"zh_cn": "zh-CN",
		"zh-TW": "zh-TW",
		"AUTO":  "auto",
		"pt-BR": "pt",
	}
	for in, want := range cases {
		if got := googleCode(in); got != want {
			t.Errorf("googleCode(%q) = %q, want %q", in, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Factory
// ---------------------------------------------------------------------------

func TestNewService(t *testing.T) {
	ctx := context.Background()

	svc, err := NewService(ctx, config.Engine{ID: config.EngineGoogle, MaxRetries: 1})
	if err != nil {
		t.Fatalf("google: %v", err)
	}
	if _, ok := svc.(*Google); !ok {
		t.Fatalf("google service = %T", svc)
	}

	svc, err = NewService(ctx, config.Engine{ID: config.EngineEcho})
	if err != nil {
		t.Fatalf("echo: %v", err)
	}
	if out, _ := svc.Translate(ctx, "same", "auto", "ko"); out != "same" {
		t.Fatalf("echo translate = %q", out)
	}

	if _, err := NewService(ctx, config.Engine{ID: config.EngineOpenAI}); err == nil {
		t.Fatal("openai without key against the public endpoint should fail")
	}

	svc, err = NewService(ctx, config.Engine{ID: config.EngineOpenAI, BaseURL: "http://localhost:11434/v1"})
	if err != nil {
		t.Fatalf("openai (local): %v", err)
	}
	o := svc.(*OpenAI)
	if o.Model != DefaultOpenAIModel || o.BaseURL != "http://localhost:11434/v1" {
		t.Fatalf("openai service = %+v", o)
	}

	svc, err = NewService(ctx, config.Engine{ID: config.EngineGemini, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if svc.Name() != "Gemini:"+DefaultGeminiModel {
		t.Fatalf("gemini name = %q", svc.Name())
	}

	if _, err := NewService(ctx, config.Engine{ID: "babelfish"}); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}
