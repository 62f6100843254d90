package domain

import "time"

type CardType string
type CardStatus string

const (
	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"

	CardInactive CardStatus = "inactive"
	CardActive   CardStatus = "active"
	CardBlocked  CardStatus = "blocked"
)

// CardValidityDays is the card lifetime set at creation.
const CardValidityDays = 365

type Card struct {
	Number        string     `json:"number"`
	AccountNumber string     `json:"account_number"`
	Type          CardType   `json:"type"`
	Status        CardStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
}

func NewCard(accountNumber, cardNumber string, cardType CardType) *Card {
	now := time.Now()
	return &Card{
		Number:        cardNumber,
		AccountNumber: accountNumber,
		Type:          cardType,
		Status:        CardInactive,
		CreatedAt:     now,
		ExpiresAt:     now.AddDate(0, 0, CardValidityDays),
	}
}
