// Package llm defines the external LLM transport contract (spec §6). The
// concrete backend (codex/api/gemini-cli/claude-cli) is an out-of-scope
// collaborator; the core only ever depends on the Adapter interface.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Adapter is the core's only view of a language model: a single stateless
// text-completion call. Grounded on provider.Provider's shape
// (CreateMessage/Available/GetUsage) narrowed to the one method spec §6
// actually names, since the vendor-specific request/response framing is
// explicitly out of scope here.
type Adapter interface {
	Generate(ctx context.Context, prompt string, maxTokens int, timeout time.Duration) (string, error)
}

// TimeoutError wraps a Generate call that exceeded its configured
// timeout (spec §5 "Cancellation & timeouts").
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm: generate call exceeded timeout of %s", e.Timeout)
}

// WithTimeout wraps an Adapter so that Generate calls are bounded by the
// supplied context.Context in addition to the explicit timeout parameter,
// surfacing a *TimeoutError when the deadline is hit before the adapter
// returns.
func WithTimeout(a Adapter) Adapter {
	return timeoutAdapter{inner: a}
}

type timeoutAdapter struct{ inner Adapter }

func (t timeoutAdapter) Generate(ctx context.Context, prompt string, maxTokens int, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := t.inner.Generate(ctx, prompt, maxTokens, timeout)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", &TimeoutError{Timeout: timeout}
	}
}
