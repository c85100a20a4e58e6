package services

import (
	"context"
	"fmt"

	"github.com/qufrids/ad-analyzer-sub000/internal/metrics"
)

// generateParsed runs one model call and decodes the response into out.
func generateParsed(ctx context.Context, invoker ModelInvoker, prompt Prompt, out interface{}) error {
	text, err := invoker.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return ParseModelJSON(text, out)
}

// GenerateWithRetry runs invoke-then-parse and retries the whole call exactly
// once on any failure (network, no-text, malformed JSON). A second failure
// becomes the terminal ErrUpstreamGeneration. No backoff, no jitter: this is
// a cheap mitigation for flaky model output, not an outage strategy. Caller
// cancellation is surfaced as the context error, not as an upstream failure,
// so the handler can report a timeout distinctly.
func GenerateWithRetry(ctx context.Context, invoker ModelInvoker, prompt Prompt, out interface{}) error {
	firstErr := generateParsed(ctx, invoker, prompt, out)
	if firstErr == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	infoLog("Model call failed, retrying once: %v", firstErr)
	metrics.ModelRetriesTotal.Inc()

	secondErr := generateParsed(ctx, invoker, prompt, out)
	if secondErr == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	infoLog("Model retry also failed: %v", secondErr)
	return fmt.Errorf("%v: %w", secondErr, ErrUpstreamGeneration)
}
