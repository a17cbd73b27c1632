// Package translate wraps a machine-translation service behind an Adapter
// that paces calls, memoizes results and contains failures.
//
// Backends: the free Google Translate web endpoint (google), Google Gemini
// via the GenAI SDK (gemini), any OpenAI-compatible chat completions API
// (openai: OpenAI, Groq, Ollama, custom) and a no-op echo service.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/minios-linux/transtree/ratelimit"
)

// Service is an external translation engine.
type Service interface {
	// Name is the display name used in logs.
	Name() string
	// Translate translates text from one language to another. from may be
	// "auto" to let the service detect the source language.
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// ---------------------------------------------------------------------------
// Outcome
// ---------------------------------------------------------------------------

// Outcome is the result of one translation request. A failed outcome still
// carries text: the original input, so callers can fall back to it.
type Outcome struct {
	text string
	err  error
}

// Success returns a successful outcome.
func Success(text string) Outcome {
	return Outcome{text: text}
}

// Failure returns a failed outcome carrying the original text.
func Failure(original string, err error) Outcome {
	if err == nil {
		err = errors.New("translation failed")
	}
	return Outcome{text: original, err: err}
}

// OK reports whether the translation succeeded.
func (o Outcome) OK() bool { return o.err == nil }

// Text returns the translation, or the original text on failure.
func (o Outcome) Text() string { return o.text }

// Err returns the failure reason, nil on success.
func (o Outcome) Err() error { return o.err }

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// AdapterOptions configures an Adapter.
type AdapterOptions struct {
	// Source is the source language code ("auto" when empty).
	Source string
	// Target is the fixed destination language code.
	Target string
	// Limiter paces service calls. Defaults to a fixed 100ms delay.
	Limiter ratelimit.Limiter
	// CacheSize is the number of memoized translations (0 disables).
	CacheSize int
	// OnFailure receives the offending text and error of every failed call.
	// Calls aborted by context cancellation are not reported.
	OnFailure func(text string, err error)
}

// Adapter sends text to a Service one call at a time, waiting on the
// limiter before every call. Failures never propagate as errors: they come
// back as a failed Outcome holding the original text.
type Adapter struct {
	svc       Service
	from, to  string
	limiter   ratelimit.Limiter
	cache     *lru.Cache[string, string]
	onFailure func(text string, err error)

	mu    sync.Mutex // held across wait+call: one request in flight
	calls int
}

// NewAdapter creates an Adapter for svc.
func NewAdapter(svc Service, opts AdapterOptions) (*Adapter, error) {
	if svc == nil {
		return nil, fmt.Errorf("translation service is nil")
	}
	if strings.TrimSpace(opts.Target) == "" {
		return nil, fmt.Errorf("target language is empty")
	}
	a := &Adapter{
		svc:       svc,
		from:      opts.Source,
		to:        opts.Target,
		limiter:   opts.Limiter,
		onFailure: opts.OnFailure,
	}
	if a.from == "" {
		a.from = "auto"
	}
	if a.limiter == nil {
		a.limiter = ratelimit.FixedDelay{Interval: defaultDelay}
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, string](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating translation cache: %w", err)
		}
		a.cache = cache
	}
	return a, nil
}

// Translate translates text. It never returns an error; inspect the
// Outcome instead.
func (a *Adapter) Translate(ctx context.Context, text string) Outcome {
	if out, ok := a.cached(text); ok {
		return Success(out)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another caller may have filled the cache while we waited for the lock.
	if out, ok := a.cached(text); ok {
		return Success(out)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return Failure(text, err)
	}

	a.calls++
	out, err := a.svc.Translate(ctx, text, a.from, a.to)
	if err != nil {
		if ctx.Err() == nil && a.onFailure != nil {
			a.onFailure(text, err)
		}
		return Failure(text, err)
	}

	if a.cache != nil && out != "" {
		a.cache.Add(text, out)
	}
	return Success(out)
}

func (a *Adapter) cached(text string) (string, bool) {
	if a.cache == nil {
		return "", false
	}
	return a.cache.Get(text)
}

// Calls returns the number of requests sent to the service so far.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// ServiceName returns the wrapped service's display name.
func (a *Adapter) ServiceName() string {
	return a.svc.Name()
}
