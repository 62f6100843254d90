package processor

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
)

// Lengths of the generated public identifiers.
const (
	AccountNumberLength = 10
	CustomerIDLength    = 8
	CardNumberLength    = 16
	maxGenerateAttempts = 10
)

// ErrExhaustedRetries is returned when a fresh unique id could not be found
// within maxGenerateAttempts collision retries.
var ErrExhaustedRetries = errors.New("exhausted unique id generation attempts")

type existsFunc func(ctx context.Context, id string) (bool, error)

// generateUniqueNumber produces a random numeric string of the given length
// that does not yet exist in the corresponding store. Retry is bounded.
func generateUniqueNumber(ctx context.Context, length int, exists existsFunc) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		candidate, err := randomDigits(length)
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check id collision: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: length %d", ErrExhaustedRetries, length)
}

func randomDigits(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	digits := make([]byte, length)
	for i, v := range b {
		digits[i] = '0' + v%10
	}
	return string(digits), nil
}
