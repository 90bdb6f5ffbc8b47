// Package llm holds helpers shared by the generation adapters in its
// sub-packages (ollama, openai, anthropic).
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// maxErrorBody caps how much of an error response is quoted.
const maxErrorBody = 512

// TransportError classifies a failed HTTP round trip. Deadline and client
// timeouts wrap domain.ErrGenerationTimeout, caller cancellation is returned
// as is, and everything else wraps domain.ErrGenerationUnavailable.
func TransportError(ctx context.Context, provider string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %w", domain.ErrGenerationTimeout, provider, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrGenerationUnavailable, provider, err)
}

// StatusError builds the error for a non-2xx response, quoting the body.
// 408 and 504 are treated as timeouts.
func StatusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	sentinel := domain.ErrGenerationUnavailable
	if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout {
		sentinel = domain.ErrGenerationTimeout
	}
	return fmt.Errorf("%w: %s error (status %d): %s",
		sentinel, provider, resp.StatusCode, strings.TrimSpace(string(body)))
}

// Temperature returns a pointer for JSON encoding so an explicit 0 is sent.
func Temperature(t float64) *float64 {
	return &t
}
