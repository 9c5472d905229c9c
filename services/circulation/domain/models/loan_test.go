package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLoan_IsActive(t *testing.T) {
	if !(&Loan{Status: LoanActive}).IsActive() {
		t.Fatal("ACTIVE loan reported inactive")
	}
	if (&Loan{Status: LoanReturned}).IsActive() {
		t.Fatal("RETURNED loan reported active")
	}
}

func TestLoan_CloneCopiesReturnedAt(t *testing.T) {
	returned := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	loan := &Loan{ID: uuid.New(), Status: LoanReturned, ReturnedAt: &returned}

	cp := loan.Clone()
	*cp.ReturnedAt = cp.ReturnedAt.Add(time.Hour)

	if !loan.ReturnedAt.Equal(returned) {
		t.Fatal("mutating the clone's ReturnedAt changed the original")
	}
}

func TestNewBorrower(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		b, err := NewBorrower("John Doe", "john@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.Name != "John Doe" || b.Contact != "john@example.com" {
			t.Fatalf("fields not copied: %+v", b)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		if _, err := NewBorrower("", "john@example.com"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("empty contact", func(t *testing.T) {
		if _, err := NewBorrower("John Doe", ""); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
