// Package explain provides explanations of math concepts for the calculator's
// modal dialog.
package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zephyrtronium/calculette/internal/config"
)

// Provider explains a math concept.
type Provider interface {
	// Explain returns a short explanation of concept. It returns promptly
	// with ctx.Err() when ctx is cancelled.
	Explain(ctx context.Context, concept string) (string, error)
}

// ErrEmptyConcept is returned for a concept with no text.
var ErrEmptyConcept = errors.New("explain: empty concept")

// New returns the provider selected by cfg.
func New(cfg config.ExplainConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "simulated":
		return &Simulated{Delay: cfg.Delay.Duration}, nil
	case "ollama":
		return NewOllama(OllamaConfig{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.Ollama.Timeout.Duration,
		}), nil
	default:
		return nil, fmt.Errorf("explain: unknown provider %q", cfg.Provider)
	}
}

// normalize trims concept and reports ErrEmptyConcept for blank input.
func normalize(concept string) (string, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return "", ErrEmptyConcept
	}
	return concept, nil
}
