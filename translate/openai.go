package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minios-linux/transtree/langmeta"
)

// ---------------------------------------------------------------------------
// System prompt
// ---------------------------------------------------------------------------

// SystemPrompt instructs LLM backends to behave like a plain machine
// translator. {{sourceLang}} and {{targetLang}} are substituted.
const SystemPrompt = `You are a machine translation engine for software source code comments and documentation.

Translate the text the user sends from {{sourceLang}} into {{targetLang}}.

RULES:
- Reply with the translation ONLY: no quotes, no explanations, no code fences
- The input is a single line; the output must be a single line
- Keep comment markers (//, /*, *, */) and Markdown syntax (#, -, *, >, |, backticks) exactly where they are
- Do NOT translate inline code, identifiers, URLs, file paths, HTML tags or placeholders like {name}, %s, $1
- If the text is already in {{targetLang}} or has nothing to translate, return it unchanged`

func resolvePrompt(from, to string) string {
	src := langmeta.EnglishName(from)
	if from == "" || from == "auto" {
		src = "the detected source language"
	}
	p := strings.ReplaceAll(SystemPrompt, "{{sourceLang}}", src)
	return strings.ReplaceAll(p, "{{targetLang}}", langmeta.EnglishName(to))
}

// ---------------------------------------------------------------------------
// HTTP client with proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// OpenAI-compatible chat completions
// ---------------------------------------------------------------------------

// OpenAI talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAI struct {
	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Model is the model identifier.
	Model string
	// MaxRetries bounds retries on 429, 5xx and network errors.
	MaxRetries int
	// Backoff is the base delay for exponential backoff (default 1s).
	Backoff time.Duration
	// Verbose logs every request.
	Verbose bool

	client *http.Client
}

// NewOpenAI returns an OpenAI-compatible backend.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration, maxRetries int) *OpenAI {
	return &OpenAI{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		MaxRetries: maxRetries,
		Backoff:    time.Second,
		client:     makeHTTPClient("", timeout),
	}
}

// Name implements Service.
func (o *OpenAI) Name() string {
	return fmt.Sprintf("OpenAI-compatible (%s, %s)", o.BaseURL, o.Model)
}

// Translate implements Service.
func (o *OpenAI) Translate(ctx context.Context, text, from, to string) (string, error) {
	body, err := buildOpenAIChatRequest(o.Model, resolvePrompt(from, to), text, 0)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if o.APIKey != "" {
		headers["Authorization"] = "Bearer " + o.APIKey
	}

	respBody, err := doWithRetry(ctx, o.client, o.BaseURL+"/chat/completions", headers, body, o.MaxRetries, o.Backoff, o.Verbose)
	if err != nil {
		return "", err
	}
	out, err := extractResponseText(respBody)
	if err != nil {
		return "", err
	}
	return cleanResponse(out), nil
}

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		Stream:      false,
	}
	return json.Marshal(req)
}

// doWithRetry POSTs body to endpoint, retrying network errors and 5xx with
// exponential backoff and 429 with the server-provided delay.
func doWithRetry(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, body []byte, maxRetries int, backoff time.Duration, verbose bool) ([]byte, error) {
	if backoff <= 0 {
		backoff = time.Second
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		if verbose {
			log.Printf("[DEBUG] attempt %d: POST %s", attempt+1, endpoint)
		}

		resp, err := client.Do(req)
		if err != nil {
			if attempt < maxRetries {
				if err := sleepCtx(ctx, backoff<<attempt); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("API request failed: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryDelay := retryAfter(resp.Header.Get("Retry-After"), respBody)
			if verbose {
				log.Printf("[WARN] 429 rate limited, waiting %v before retry (attempt %d/%d)", retryDelay, attempt+1, maxRetries)
			}
			if attempt < maxRetries {
				if err := sleepCtx(ctx, retryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("rate limited after %d retries: %s", maxRetries, truncate(string(respBody), 200))
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < maxRetries && resp.StatusCode >= 500 {
				if err := sleepCtx(ctx, backoff<<attempt); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("exhausted all %d retries", maxRetries)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// extractResponseText pulls the reply text out of an OpenAI chat
// completion, reporting API errors embedded in the body.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok && errObj != nil {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// retryAfter returns the delay requested by a 429 response: the Retry-After
// header (seconds) if present, else Google's RetryInfo detail in the body.
func retryAfter(header string, body []byte) time.Duration {
	if header != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return parseRetryDelay(body)
}

// parseRetryDelay extracts the retry delay from a 429 response body.
// Looks for Google's RetryInfo detail with retryDelay field.
// Returns the delay to wait, defaulting to 60s + 5s buffer.
func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}

	return defaultDelay
}

// cleanResponse strips wrapping an LLM sometimes adds despite the prompt:
// surrounding whitespace and a markdown code fence around the whole reply.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 6 && strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && strings.Contains(s, "\n") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
