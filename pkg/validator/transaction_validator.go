package validator

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"bankcore/internal/domain"
)

var (
	ErrInvalidAmount        = errors.New("invalid transaction amount")
	ErrInvalidAccount       = errors.New("invalid account")
	ErrSameAccount          = errors.New("sender and receiver accounts cannot be the same")
	ErrUnknownType          = errors.New("unknown transaction type")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrInvalidPhone         = errors.New("invalid phone number")
)

type TransactionValidator struct {
	phoneRegex *regexp.Regexp
	mu         sync.Mutex
	seen       map[string]struct{}
}

func NewTransactionValidator() *TransactionValidator {
	return &TransactionValidator{
		phoneRegex: regexp.MustCompile(`^\+?[0-9]{7,15}$`),
		seen:       make(map[string]struct{}),
	}
}

// ValidateTransaction rejects malformed requests before any side effect.
// A transaction id is accepted once; resubmission of the same id fails.
func (v *TransactionValidator) ValidateTransaction(tx *domain.Transaction) error {
	var errs []error

	if !tx.Amount.IsPositive() {
		errs = append(errs, ErrInvalidAmount)
	}

	switch tx.Type {
	case domain.TypeTransfer:
		if tx.SenderNumber == "" || tx.ReceiverNumber == "" {
			errs = append(errs, ErrInvalidAccount)
		}
		if tx.SenderNumber != "" && tx.SenderNumber == tx.ReceiverNumber {
			errs = append(errs, ErrSameAccount)
		}
	case domain.TypeWithdrawal:
		if tx.SenderNumber == "" {
			errs = append(errs, ErrInvalidAccount)
		}
	case domain.TypeDeposit:
		if tx.ReceiverNumber == "" {
			errs = append(errs, ErrInvalidAccount)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownType, tx.Type))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %w", errors.Join(errs...))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[tx.ID]; ok {
		return ErrDuplicateTransaction
	}
	v.seen[tx.ID] = struct{}{}

	return nil
}

// ValidatePhone checks contact numbers on customer writes.
func (v *TransactionValidator) ValidatePhone(phone string) error {
	if !v.phoneRegex.MatchString(phone) {
		return fmt.Errorf("%w: %s", ErrInvalidPhone, phone)
	}
	return nil
}

// IsValidation reports whether the error is a pre-mutation rejection.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidAccount) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrUnknownType) ||
		errors.Is(err, ErrDuplicateTransaction) ||
		errors.Is(err, ErrInvalidPhone)
}
