package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bregydoc/gtranslate"
)

// Google uses the free Google Translate web endpoint. It needs no API key
// and detects the source language when from is "auto".
type Google struct {
	// Tries is the number of attempts gtranslate makes per call.
	Tries int
	// Delay is gtranslate's pause between its own attempts.
	Delay time.Duration

	// translate is swapped out in tests.
	translate func(text string, params gtranslate.TranslationParams) (string, error)
}

// NewGoogle returns a Google Translate backend.
func NewGoogle(maxRetries int) *Google {
	return &Google{
		Tries:     maxRetries + 1,
		Delay:     time.Second,
		translate: gtranslate.TranslateWithParams,
	}
}

// Name implements Service.
func (g *Google) Name() string { return "Google Translate" }

// Translate implements Service. gtranslate has no context support, so the
// call runs in a goroutine and is abandoned when ctx is done.
func (g *Google) Translate(ctx context.Context, text, from, to string) (string, error) {
	if from == "" {
		from = "auto"
	}
	params := gtranslate.TranslationParams{
		From:  googleCode(from),
		To:    googleCode(to),
		Tries: g.Tries,
		Delay: g.Delay,
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		out, err := g.translate(text, params)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("google translate: %w", r.err)
		}
		return r.text, nil
	}
}

// googleCode maps canonical codes to the ones Google Translate expects:
// "zh-CN" and "zh-TW" keep their region, other regions are dropped.
func googleCode(code string) string {
	code = strings.ReplaceAll(code, "_", "-")
	lower := strings.ToLower(code)
	switch lower {
	case "zh-cn", "zh-tw":
		return "zh-" + strings.ToUpper(lower[3:])
	case "auto":
		return lower
	}
	if i := strings.IndexByte(lower, '-'); i > 0 {
		return lower[:i]
	}
	return lower
}
