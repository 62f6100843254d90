package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bankcore/internal/domain"
)

// OpenAccount assigns a fresh account number when the record carries the
// sentinel, persists the account, purges any lingering sentinel rows, and
// welcomes the customer over SMS.
func (p *TransferProcessor) OpenAccount(ctx context.Context, account *domain.Account) error {
	customer, err := p.stores.Customers.GetByID(ctx, account.CustomerID)
	if err != nil {
		return fmt.Errorf("account owner: %w", err)
	}

	if account.Unassigned() {
		number, err := generateUniqueNumber(ctx, AccountNumberLength, p.stores.Accounts.Exists)
		if err != nil {
			return fmt.Errorf("failed to assign account number: %w", err)
		}
		account.Number = number
	}
	if account.Status == "" {
		account.Status = domain.AccountActive
	}
	if account.TransferLimit.IsZero() {
		account.TransferLimit = domain.NewAccount(account.CustomerID, account.Type).TransferLimit
	}
	if account.WithdrawalLimit.IsZero() {
		account.WithdrawalLimit = domain.NewAccount(account.CustomerID, account.Type).WithdrawalLimit
	}

	if err := p.stores.Accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	if purged, err := p.stores.Accounts.PurgeUnassigned(ctx); err != nil {
		p.logger.ErrorContext(ctx, "Failed to purge unassigned accounts",
			slog.String("error", err.Error()))
	} else if purged > 0 {
		p.logger.WarnContext(ctx, "Purged orphaned account rows",
			slog.Int("count", purged))
	}

	body := fmt.Sprintf("Thank you for creating a new bank account with us. "+
		"Your account number is %s, and your current balance is Rs. %s",
		account.Number, account.Balance.StringFixed(2))
	if err := p.notifier.Notify(ctx, customer.Phone, body, "welcome"); err != nil {
		p.logger.ErrorContext(ctx, "Failed to queue welcome notification",
			slog.String("account", account.Number),
			slog.String("error", err.Error()))
	}

	p.logger.InfoContext(ctx, "Account opened",
		slog.String("account", account.Number),
		slog.String("customer_id", account.CustomerID))
	return nil
}

// RegisterCustomer assigns a fresh customer id when the record carries the
// sentinel and persists it. No notification is sent.
func (p *TransferProcessor) RegisterCustomer(ctx context.Context, customer *domain.Customer) error {
	if err := p.validator.ValidatePhone(customer.Phone); err != nil {
		return err
	}

	if customer.Unassigned() {
		id, err := generateUniqueNumber(ctx, CustomerIDLength, p.stores.Customers.Exists)
		if err != nil {
			return fmt.Errorf("failed to assign customer id: %w", err)
		}
		customer.CustomerID = id
	}

	if err := p.stores.Customers.Save(ctx, customer); err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}

	p.logger.InfoContext(ctx, "Customer registered",
		slog.String("customer_id", customer.CustomerID))
	return nil
}

// RequestCard creates an inactive card for the account and notifies the
// owning customer.
func (p *TransferProcessor) RequestCard(ctx context.Context, accountNumber string, cardType domain.CardType) (*domain.Card, error) {
	account, err := p.stores.Accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("card account: %w", err)
	}

	cardNumber, err := generateUniqueNumber(ctx, CardNumberLength, p.stores.Cards.Exists)
	if err != nil {
		return nil, fmt.Errorf("failed to assign card number: %w", err)
	}

	card := domain.NewCard(account.Number, cardNumber, cardType)
	if err := p.stores.Cards.Save(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to save card: %w", err)
	}

	if phone, ok := p.customerPhone(ctx, account); ok {
		body := fmt.Sprintf("We have received your request for a %s card for the account %s. "+
			"The new card will be dispatched to your address after further processing.",
			cardType, account.Number)
		if err := p.notifier.Notify(ctx, phone, body, "card_request"); err != nil {
			p.logger.ErrorContext(ctx, "Failed to queue card notification",
				slog.String("account", account.Number),
				slog.String("error", err.Error()))
		}
	}

	p.logger.InfoContext(ctx, "Card requested",
		slog.String("account", account.Number),
		slog.String("card_type", string(cardType)))
	return card, nil
}

// PublishOffer persists the offer and, when active, broadcasts its
// description to every customer.
func (p *TransferProcessor) PublishOffer(ctx context.Context, offer *domain.Offer) error {
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}

	if err := p.stores.Offers.Save(ctx, offer); err != nil {
		return fmt.Errorf("failed to save offer: %w", err)
	}

	if offer.Status != domain.OfferActive {
		return nil
	}

	phones, err := p.stores.Customers.AllPhones(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to list customer phones for offer broadcast",
			slog.String("offer_id", offer.ID),
			slog.String("error", err.Error()))
		return nil
	}

	if err := p.notifier.Broadcast(ctx, phones, offer.Description, "offer"); err != nil {
		p.logger.ErrorContext(ctx, "Failed to queue offer broadcast",
			slog.String("offer_id", offer.ID),
			slog.String("error", err.Error()))
	}

	p.logger.InfoContext(ctx, "Offer broadcast queued",
		slog.String("offer_id", offer.ID),
		slog.Int("recipients", len(phones)))
	return nil
}

// ScheduleEvent persists the event and registers its broadcast with the
// scheduler for delivery at the fire time.
func (p *TransferProcessor) ScheduleEvent(ctx context.Context, event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if err := p.stores.Events.Save(ctx, event); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	p.registerEventDelivery(event)

	p.logger.InfoContext(ctx, "Event scheduled",
		slog.String("event_id", event.ID),
		slog.Time("fire_at", event.FireAt))
	return nil
}

func (p *TransferProcessor) registerEventDelivery(event *domain.Event) {
	eventID := event.ID
	description := event.Description

	p.scheduler.Schedule(event.FireAt, func(deliverCtx context.Context) {
		phones, err := p.stores.Customers.AllPhones(deliverCtx)
		if err != nil {
			p.logger.ErrorContext(deliverCtx, "Failed to list customer phones for event broadcast",
				slog.String("event_id", eventID),
				slog.String("error", err.Error()))
			return
		}

		if err := p.notifier.Broadcast(deliverCtx, phones, description, "event"); err != nil {
			p.logger.ErrorContext(deliverCtx, "Failed to queue event broadcast",
				slog.String("event_id", eventID),
				slog.String("error", err.Error()))
			return
		}

		if err := p.stores.Events.MarkDelivered(deliverCtx, eventID); err != nil {
			p.logger.ErrorContext(deliverCtx, "Failed to mark event delivered",
				slog.String("event_id", eventID),
				slog.String("error", err.Error()))
		}
	})
}

// ResumePendingEvents re-registers undelivered events with the scheduler.
// Called at startup so deliveries interrupted by a shutdown still fire.
func (p *TransferProcessor) ResumePendingEvents(ctx context.Context) error {
	pending, err := p.stores.Events.GetPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending events: %w", err)
	}

	for _, event := range pending {
		p.registerEventDelivery(event)
	}

	if len(pending) > 0 {
		p.logger.InfoContext(ctx, "Resumed pending events",
			slog.Int("count", len(pending)))
	}
	return nil
}

// RequestBalance answers a balance inquiry over SMS.
func (p *TransferProcessor) RequestBalance(ctx context.Context, phone, accountNumber string) error {
	account, err := p.stores.Accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		return fmt.Errorf("balance inquiry: %w", err)
	}

	body := fmt.Sprintf("Your current account balance is Rs. %s", account.Balance.StringFixed(2))
	return p.notifier.Notify(ctx, phone, body, "balance_inquiry")
}

// RequestAccountStatus answers a status inquiry over SMS.
func (p *TransferProcessor) RequestAccountStatus(ctx context.Context, phone, accountNumber string) error {
	account, err := p.stores.Accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		return fmt.Errorf("status inquiry: %w", err)
	}

	body := fmt.Sprintf("Thank you for reaching out to us, your account is currently %s", account.Status)
	return p.notifier.Notify(ctx, phone, body, "status_inquiry")
}

// RequestChequeBook acknowledges a cheque book request over SMS.
func (p *TransferProcessor) RequestChequeBook(ctx context.Context, phone, accountNumber string) error {
	if _, err := p.stores.Accounts.GetByNumber(ctx, accountNumber); err != nil {
		return fmt.Errorf("cheque book request: %w", err)
	}

	body := fmt.Sprintf("We have received your request to dispatch a new cheque book for the "+
		"account %s. Your request will be processed soon.", accountNumber)
	return p.notifier.Notify(ctx, phone, body, "cheque_request")
}
