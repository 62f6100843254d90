package domain

import "time"

type OfferStatus string
type OfferType string

const (
	OfferActive   OfferStatus = "active"
	OfferInactive OfferStatus = "inactive"

	OfferLoan       OfferType = "loan"
	OfferInsurance  OfferType = "insurance"
	OfferCreditCard OfferType = "credit_card"
)

type Offer struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      OfferStatus `json:"status"`
	Type        OfferType   `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
