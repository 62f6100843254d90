package memory

import (
	"bankcore/internal/repository"
)

var (
	_ repository.CustomerRepository    = (*CustomerRepository)(nil)
	_ repository.AccountRepository     = (*AccountRepository)(nil)
	_ repository.TransactionRepository = (*TransactionRepository)(nil)
	_ repository.CardRepository        = (*CardRepository)(nil)
	_ repository.OfferRepository       = (*OfferRepository)(nil)
	_ repository.EventRepository       = (*EventRepository)(nil)
)
