// Package provider defines the boundary to the text-generation backend.
// Each adapter (openai.go, anthropic.go) implements the Completer interface,
// converting the unified message sequence into its vendor's API format and
// normalizing every failure into a *BackendError.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ── Message types ────────────────────────────────────────────────────────────

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single prompt message sent to the backend.
type Message struct {
	Role Role
	Text string
}

// ── Sampling parameters ──────────────────────────────────────────────────────

// Params hold the sampling parameters for one completion call.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// DefaultParams returns the sales-conversation defaults: a higher
// temperature for livelier responses, capped short for spoken delivery.
func DefaultParams(model string) Params {
	return Params{
		Model:       model,
		Temperature: 0.7,
		MaxTokens:   150,
		TopP:        0.9,
	}
}

// ── Completer interface ──────────────────────────────────────────────────────

// Completer is the unified interface to a text-completion backend.
// Complete blocks for at most the context deadline; callers bound it with
// context.WithTimeout. Any transport, timeout, or API failure is returned
// as a *BackendError.
type Completer interface {
	Complete(ctx context.Context, msgs []Message, p Params) (string, error)

	// Name returns the backend identifier, e.g. "openai", "anthropic".
	Name() string
}

// ── Errors ───────────────────────────────────────────────────────────────────

// BackendError wraps a generation backend failure (network, timeout, quota,
// error status). The orchestrator substitutes a fixed fallback line when it
// sees one; it never surfaces to the caller on the phone.
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsBackendError reports whether err is (or wraps) a BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
