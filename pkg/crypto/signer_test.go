package crypto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSigner_SignAndVerify(t *testing.T) {
	s := NewSigner("secret", nil)

	sig := s.Sign([]byte("payload"))
	if ok, err := s.Verify([]byte("payload"), sig); !ok || err != nil {
		t.Fatalf("expected valid signature, got ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Verify([]byte("tampered"), sig); ok {
		t.Fatal("tampered payload must not verify")
	}
}

func TestSigner_VerifyTransfer(t *testing.T) {
	s := NewSigner("secret", nil)
	amount := decimal.NewFromInt(300)
	ts := time.Now().Unix()

	sig := s.SignTransfer("1111111111", "2222222222", amount, ts)
	if ok, err := s.VerifyTransfer("1111111111", "2222222222", amount, ts, sig); !ok || err != nil {
		t.Fatalf("expected valid signature, got ok=%v err=%v", ok, err)
	}
	if ok, _ := s.VerifyTransfer("1111111111", "2222222222", decimal.NewFromInt(999), ts, sig); ok {
		t.Fatal("changed amount must not verify")
	}
	if ok, _ := s.VerifyTransfer("1111111111", "3333333333", amount, ts, sig); ok {
		t.Fatal("changed receiver must not verify")
	}
}

func TestSigner_KeysDiffer(t *testing.T) {
	a := NewSigner("key-a", nil)
	b := NewSigner("key-b", nil)

	sig := a.Sign([]byte("payload"))
	if ok, _ := b.Verify([]byte("payload"), sig); ok {
		t.Fatal("signature must not verify under a different key")
	}
}
