package processor

import (
	"github.com/shopspring/decimal"

	"bankcore/internal/domain"
)

// The funds check runs twice for transfers: here against the processor's
// read, and again inside the account store at commit time against the
// stored balance. The store's verdict is the authoritative one.
const (
	checkSufficientFunds    = "sufficient_funds"
	reasonInsufficientFunds = "insufficient funds in your account"
)

// An admissionCheck is a named business precondition on a money movement.
// A failed check is a business outcome, not an error: the transaction is
// finalized as Failed with the check's reason and no balance is touched.
type admissionCheck struct {
	Name  string
	Check func(sender, receiver *domain.Account, amount decimal.Decimal) (bool, string)
}

func transferChecks() []admissionCheck {
	return []admissionCheck{
		{
			Name: "sender_active",
			Check: func(sender, _ *domain.Account, _ decimal.Decimal) (bool, string) {
				return sender.CanSend(), "the sender account not being active"
			},
		},
		{
			Name: "receiver_accepts_credits",
			Check: func(_, receiver *domain.Account, _ decimal.Decimal) (bool, string) {
				return receiver.CanReceive(), "the receiver account not accepting credits"
			},
		},
		{
			Name: "transfer_limit",
			Check: func(sender, _ *domain.Account, amount decimal.Decimal) (bool, string) {
				return amount.LessThanOrEqual(sender.TransferLimit), "the transfer limit being exceeded"
			},
		},
		{
			Name: checkSufficientFunds,
			Check: func(sender, _ *domain.Account, amount decimal.Decimal) (bool, string) {
				return sender.Balance.GreaterThanOrEqual(amount), reasonInsufficientFunds
			},
		},
	}
}

func withdrawalChecks() []admissionCheck {
	return []admissionCheck{
		{
			Name: "sender_active",
			Check: func(sender, _ *domain.Account, _ decimal.Decimal) (bool, string) {
				return sender.CanSend(), "the sender account not being active"
			},
		},
		{
			Name: "withdrawal_limit",
			Check: func(sender, _ *domain.Account, amount decimal.Decimal) (bool, string) {
				return amount.LessThanOrEqual(sender.WithdrawalLimit), "the withdrawal limit being exceeded"
			},
		},
		{
			Name: checkSufficientFunds,
			Check: func(sender, _ *domain.Account, amount decimal.Decimal) (bool, string) {
				return sender.Balance.GreaterThanOrEqual(amount), reasonInsufficientFunds
			},
		},
	}
}

func depositChecks() []admissionCheck {
	return []admissionCheck{
		{
			Name: "receiver_accepts_credits",
			Check: func(_, receiver *domain.Account, _ decimal.Decimal) (bool, string) {
				return receiver.CanReceive(), "the receiver account not accepting credits"
			},
		},
	}
}

// runChecks evaluates checks in order and returns the first failure.
func runChecks(checks []admissionCheck, sender, receiver *domain.Account, amount decimal.Decimal) (string, string, bool) {
	for _, c := range checks {
		if ok, reason := c.Check(sender, receiver, amount); !ok {
			return c.Name, reason, false
		}
	}
	return "", "", true
}
