// Package provider abstracts the vision model backend. The core never
// talks to a model vendor directly; it holds a Provider injected at
// construction time so deployments can swap backends and tests can
// substitute a stub.
package provider

import "context"

// Provider invokes a vision-capable model with a prompt and one image
// and returns the raw answer text. A single failed attempt is final:
// no retry is performed, callers route failures to manual review.
type Provider interface {
	Invoke(ctx context.Context, prompt string, imageDataURI string) (string, error)
}
