package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bankcore/internal/domain"
	"bankcore/internal/repository"
)

func TestAccountRepository_SaveAndGetByNumber(t *testing.T) {
	repo := NewAccountRepository()
	account := domain.NewAccount("c1", domain.AccountPersonal)
	account.Number = "1111111111"
	account.Balance = decimal.NewFromInt(100)

	if err := repo.Save(context.Background(), account); err != nil {
		t.Fatalf("unexpected error on Save: %v", err)
	}

	got, err := repo.GetByNumber(context.Background(), "1111111111")
	if err != nil {
		t.Fatalf("unexpected error on GetByNumber: %v", err)
	}
	if got.Number != account.Number || got.CustomerID != "c1" || !got.Balance.Equal(account.Balance) {
		t.Errorf("expected account %+v, got %+v", account, got)
	}
}

func TestAccountRepository_SaveDuplicate(t *testing.T) {
	repo := NewAccountRepository()
	account := domain.NewAccount("c1", domain.AccountPersonal)
	account.Number = "1111111111"
	_ = repo.Save(context.Background(), account)

	err := repo.Save(context.Background(), account)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAccountRepository_StoredRowIsolatedFromCaller(t *testing.T) {
	repo := NewAccountRepository()
	account := domain.NewAccount("c1", domain.AccountPersonal)
	account.Number = "1111111111"
	account.Balance = decimal.NewFromInt(100)
	_ = repo.Save(context.Background(), account)

	// Mutating the caller's copy must not leak into the store.
	account.Balance = decimal.NewFromInt(999)

	got, _ := repo.GetByNumber(context.Background(), "1111111111")
	if !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected stored balance 100, got %s", got.Balance)
	}
}

func TestAccountRepository_ApplyTransfer(t *testing.T) {
	repo := NewAccountRepository()
	sender := domain.NewAccount("c1", domain.AccountPersonal)
	sender.Number = "1111111111"
	sender.Balance = decimal.NewFromInt(700)
	receiver := domain.NewAccount("c2", domain.AccountPersonal)
	receiver.Number = "2222222222"
	receiver.Balance = decimal.NewFromInt(500)
	_ = repo.Save(context.Background(), sender)
	_ = repo.Save(context.Background(), receiver)

	remaining, err := repo.ApplyTransfer(context.Background(), "1111111111", "2222222222", decimal.NewFromInt(300))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !remaining.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected remaining 400, got %s", remaining)
	}

	gotSender, _ := repo.GetByNumber(context.Background(), "1111111111")
	gotReceiver, _ := repo.GetByNumber(context.Background(), "2222222222")
	if !gotSender.Balance.Equal(decimal.NewFromInt(400)) || !gotReceiver.Balance.Equal(decimal.NewFromInt(800)) {
		t.Errorf("expected 400/800, got %s/%s", gotSender.Balance, gotReceiver.Balance)
	}
}

func TestAccountRepository_ApplyTransferGuardsStoredBalance(t *testing.T) {
	repo := NewAccountRepository()
	sender := domain.NewAccount("c1", domain.AccountPersonal)
	sender.Number = "1111111111"
	sender.Balance = decimal.NewFromInt(1000)
	receiver := domain.NewAccount("c2", domain.AccountPersonal)
	receiver.Number = "2222222222"
	receiver.Balance = decimal.NewFromInt(0)
	_ = repo.Save(context.Background(), sender)
	_ = repo.Save(context.Background(), receiver)

	// Two debits admitted against the same 1000 balance: the second must
	// be refused by the store no matter what its caller read earlier.
	if _, err := repo.ApplyTransfer(context.Background(), "1111111111", "2222222222", decimal.NewFromInt(800)); err != nil {
		t.Fatalf("unexpected error on first transfer: %v", err)
	}
	_, err := repo.ApplyTransfer(context.Background(), "1111111111", "2222222222", decimal.NewFromInt(800))
	if !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	gotSender, _ := repo.GetByNumber(context.Background(), "1111111111")
	gotReceiver, _ := repo.GetByNumber(context.Background(), "2222222222")
	if !gotSender.Balance.Equal(decimal.NewFromInt(200)) || !gotReceiver.Balance.Equal(decimal.NewFromInt(800)) {
		t.Errorf("expected 200/800 after the refused debit, got %s/%s", gotSender.Balance, gotReceiver.Balance)
	}
}

func TestAccountRepository_ApplyTransferMissingRowWritesNothing(t *testing.T) {
	repo := NewAccountRepository()
	sender := domain.NewAccount("c1", domain.AccountPersonal)
	sender.Number = "1111111111"
	sender.Balance = decimal.NewFromInt(700)
	_ = repo.Save(context.Background(), sender)

	_, err := repo.ApplyTransfer(context.Background(), "1111111111", "9999999999", decimal.NewFromInt(100))
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, _ := repo.GetByNumber(context.Background(), "1111111111")
	if !got.Balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("sender row must be untouched, got %s", got.Balance)
	}
}

func TestAccountRepository_PurgeUnassigned(t *testing.T) {
	repo := NewAccountRepository()
	sentinel := domain.NewAccount("c1", domain.AccountPersonal)
	real := domain.NewAccount("c1", domain.AccountPersonal)
	real.Number = "1111111111"
	_ = repo.Save(context.Background(), sentinel)
	_ = repo.Save(context.Background(), real)

	purged, err := repo.PurgeUnassigned(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged row, got %d", purged)
	}
	if _, err := repo.GetByNumber(context.Background(), "1111111111"); err != nil {
		t.Errorf("real row must survive the purge: %v", err)
	}
	if got := repo.customerIndex["c1"]; len(got) != 1 || got[0] != "1111111111" {
		t.Errorf("customer index must only reference surviving rows, got %v", got)
	}
}

func TestAccountRepository_PurgeUnassignedDropsIndexEntry(t *testing.T) {
	repo := NewAccountRepository()
	sentinel := domain.NewAccount("c1", domain.AccountPersonal)
	_ = repo.Save(context.Background(), sentinel)

	if _, err := repo.PurgeUnassigned(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.customerIndex["c1"]; ok {
		t.Error("customer index must not keep entries for purged rows")
	}
}

func TestCustomerRepository_PhoneUniqueness(t *testing.T) {
	repo := NewCustomerRepository()
	first := &domain.Customer{CustomerID: "c1", Name: "Asha", Phone: "+911111111111"}
	second := &domain.Customer{CustomerID: "c2", Name: "Ravi", Phone: "+911111111111"}

	if err := repo.Save(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Save(context.Background(), second); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a reused phone, got %v", err)
	}
}

func TestCustomerRepository_GetByPhone(t *testing.T) {
	repo := NewCustomerRepository()
	customer := &domain.Customer{CustomerID: "c1", Name: "Asha", Phone: "+911111111111"}
	_ = repo.Save(context.Background(), customer)

	got, err := repo.GetByPhone(context.Background(), "+911111111111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CustomerID != "c1" {
		t.Errorf("expected c1, got %s", got.CustomerID)
	}
}

func TestCustomerRepository_AllPhones(t *testing.T) {
	repo := NewCustomerRepository()
	_ = repo.Save(context.Background(), &domain.Customer{CustomerID: "c1", Phone: "+911111111111"})
	_ = repo.Save(context.Background(), &domain.Customer{CustomerID: "c2", Phone: "+922222222222"})

	phones, err := repo.AllPhones(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(phones) != 2 {
		t.Errorf("expected 2 phones, got %v", phones)
	}
}

func TestTransactionRepository_FinalizedIsImmutable(t *testing.T) {
	repo := NewTransactionRepository()
	tx := domain.NewTransaction(domain.TypeTransfer, decimal.NewFromInt(100)).
		WithAccounts("1111111111", "2222222222")
	tx.Status = domain.StatusSuccess
	tx.FinalizedAt = time.Now()

	if err := repo.Save(context.Background(), tx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	overwrite := *tx
	overwrite.Status = domain.StatusFailed
	if err := repo.Save(context.Background(), &overwrite); !errors.Is(err, repository.ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
}

func TestTransactionRepository_StoredRowIsolatedFromCaller(t *testing.T) {
	repo := NewTransactionRepository()
	tx := domain.NewTransaction(domain.TypeTransfer, decimal.NewFromInt(100)).
		WithAccounts("1111111111", "2222222222")
	tx.Status = domain.StatusSuccess
	tx.FinalizedAt = time.Now()
	_ = repo.Save(context.Background(), tx)

	// Neither the saved pointer nor a fetched one may reach the audit row.
	tx.Status = domain.StatusFailed
	fetched, err := repo.GetByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.Status != domain.StatusSuccess {
		t.Fatalf("mutating the saved pointer reached the store: got %s", fetched.Status)
	}

	fetched.Status = domain.StatusFailed
	again, _ := repo.GetByID(context.Background(), tx.ID)
	if again.Status != domain.StatusSuccess {
		t.Errorf("mutating a fetched row reached the store: got %s", again.Status)
	}
}

func TestTransactionRepository_PendingCanBeFinalized(t *testing.T) {
	repo := NewTransactionRepository()
	tx := domain.NewTransaction(domain.TypeTransfer, decimal.NewFromInt(100)).
		WithAccounts("1111111111", "2222222222")

	if err := repo.Save(context.Background(), tx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	final := *tx
	final.Status = domain.StatusSuccess
	final.FinalizedAt = time.Now()
	if err := repo.Save(context.Background(), &final); err != nil {
		t.Fatalf("finalizing a pending record must succeed: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), tx.ID)
	if got.Status != domain.StatusSuccess {
		t.Errorf("expected success, got %s", got.Status)
	}
}

func TestTransactionRepository_GetByAccount(t *testing.T) {
	repo := NewTransactionRepository()
	for i := 0; i < 3; i++ {
		tx := domain.NewTransaction(domain.TypeTransfer, decimal.NewFromInt(int64(100+i))).
			WithAccounts("1111111111", "2222222222")
		tx.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		_ = repo.Save(context.Background(), tx)
	}

	txs, err := repo.GetByAccount(context.Background(), "1111111111", 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].CreatedAt.Before(txs[1].CreatedAt) {
		t.Error("expected newest first ordering")
	}
}

func TestTransactionRepository_GetByPeriod(t *testing.T) {
	repo := NewTransactionRepository()
	now := time.Now()

	inside := domain.NewTransaction(domain.TypeDeposit, decimal.NewFromInt(50)).WithAccounts("", "1111111111")
	inside.CreatedAt = now
	outside := domain.NewTransaction(domain.TypeDeposit, decimal.NewFromInt(60)).WithAccounts("", "1111111111")
	outside.CreatedAt = now.Add(-48 * time.Hour)
	_ = repo.Save(context.Background(), inside)
	_ = repo.Save(context.Background(), outside)

	txs, err := repo.GetByPeriod(context.Background(), now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != inside.ID {
		t.Errorf("expected only the transaction inside the window, got %+v", txs)
	}
}

func TestCardRepository_SaveAndGetByAccount(t *testing.T) {
	repo := NewCardRepository()
	card := domain.NewCard("1111111111", "4111111111111111", domain.CardDebit)

	if err := repo.Save(context.Background(), card); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cards, err := repo.GetByAccount(context.Background(), "1111111111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].Number != card.Number {
		t.Errorf("expected the saved card, got %+v", cards)
	}
}

func TestOfferRepository_GetActive(t *testing.T) {
	repo := NewOfferRepository()
	_ = repo.Save(context.Background(), &domain.Offer{ID: "o1", Name: "Loan", Status: domain.OfferActive})
	_ = repo.Save(context.Background(), &domain.Offer{ID: "o2", Name: "Draft", Status: domain.OfferInactive})

	active, err := repo.GetActive(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 1 || active[0].ID != "o1" {
		t.Errorf("expected only the active offer, got %+v", active)
	}
}

func TestEventRepository_GetPendingAndMarkDelivered(t *testing.T) {
	repo := NewEventRepository()
	_ = repo.Save(context.Background(), &domain.Event{ID: "ev1", Title: "Notice", FireAt: time.Now()})
	_ = repo.Save(context.Background(), &domain.Event{ID: "ev2", Title: "Old", FireAt: time.Now(), Delivered: true})

	pending, err := repo.GetPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "ev1" {
		t.Fatalf("expected only the undelivered event, got %+v", pending)
	}

	if err := repo.MarkDelivered(context.Background(), "ev1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending, _ = repo.GetPending(context.Background())
	if len(pending) != 0 {
		t.Errorf("expected no pending events, got %+v", pending)
	}
}
