package engine

import "fmt"

const (
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenLength   = 8
	// tokenMaxAttempts bounds collision retries. With a 36^8 space the
	// loop effectively never runs twice, but collisions are checked, not
	// assumed.
	tokenMaxAttempts = 50
)

// generateToken produces a session token that is unique across the store,
// regenerating on collision. Collisions are retried internally and never
// surfaced to callers.
func (e *Engine) generateToken() (string, error) {
	for attempt := 0; attempt < tokenMaxAttempts; attempt++ {
		token := e.randomToken()
		exists, err := e.store.TokenExists(token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
	}
	return "", fmt.Errorf("token space exhausted after %d attempts", tokenMaxAttempts)
}

func (e *Engine) randomToken() string {
	buf := make([]byte, tokenLength)
	for i := range buf {
		buf[i] = tokenAlphabet[e.rng.Intn(len(tokenAlphabet))]
	}
	return string(buf)
}
