package explain

import (
	"context"
	"time"
)

// DefaultDelay is the simulated lookup time.
const DefaultDelay = 1500 * time.Millisecond

// Simulated is a provider that answers every concept with placeholder text
// after a fixed delay.
type Simulated struct {
	// Delay is the time to wait before answering. Zero means DefaultDelay;
	// use a negative value to answer immediately.
	Delay time.Duration
}

// Explain waits for the delay and returns Placeholder(concept).
func (s *Simulated) Explain(ctx context.Context, concept string) (string, error) {
	concept, err := normalize(concept)
	if err != nil {
		return "", err
	}
	d := s.Delay
	if d == 0 {
		d = DefaultDelay
	}
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}
	return Placeholder(concept), nil
}

// Placeholder is the text of a simulated explanation.
func Placeholder(concept string) string {
	return concept + " est un concept mathématique très important. (Remplace ce texte par une vraie explication via une API ou base de données)"
}
