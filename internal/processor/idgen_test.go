package processor

import (
	"context"
	"errors"
	"testing"
)

func TestGenerateUniqueNumber(t *testing.T) {
	ctx := context.Background()
	never := func(context.Context, string) (bool, error) { return false, nil }

	number, err := generateUniqueNumber(ctx, AccountNumberLength, never)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(number) != AccountNumberLength {
		t.Fatalf("expected %d digits, got %q", AccountNumberLength, number)
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", number)
		}
	}
}

func TestGenerateUniqueNumber_SkipsCollisions(t *testing.T) {
	ctx := context.Background()
	collisions := 0
	exists := func(context.Context, string) (bool, error) {
		collisions++
		return collisions <= 3, nil
	}

	if _, err := generateUniqueNumber(ctx, CustomerIDLength, exists); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collisions != 4 {
		t.Errorf("expected 4 existence checks, got %d", collisions)
	}
}

func TestGenerateUniqueNumber_ExhaustedRetries(t *testing.T) {
	ctx := context.Background()
	always := func(context.Context, string) (bool, error) { return true, nil }

	_, err := generateUniqueNumber(ctx, CardNumberLength, always)
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}
}

func TestGenerateUniqueNumber_PropagatesCheckError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store unavailable")
	failing := func(context.Context, string) (bool, error) { return false, boom }

	_, err := generateUniqueNumber(ctx, AccountNumberLength, failing)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the store error, got %v", err)
	}
}
