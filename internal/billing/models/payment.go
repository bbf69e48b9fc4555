package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the outcome of a settlement attempt.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "Success"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

// PaymentMethodSimulated marks payments produced by the in-process settlement.
const PaymentMethodSimulated = "Mock Payment"

// Payment records a settlement of one bill.
//
// Invariants:
//   - At most one Success payment exists per bill
//   - A Success payment exists iff its bill is Paid
//   - Amount is copied from the bill at settlement time
//   - TransactionID is unique (enforced by the store)
type Payment struct {
	ID            string        `json:"id"`
	BillID        string        `json:"bill_id"`
	OwnerID       string        `json:"owner_id"`
	Amount        int64         `json:"amount"`
	TransactionID string        `json:"transaction_id"`
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`

	// Populated on history reads.
	BillNumber string   `json:"bill_number,omitempty"`
	BillType   BillType `json:"bill_type,omitempty"`
}

// NewSettlementPayment builds the Success payment produced by settling b.
func NewSettlementPayment(id string, b *Bill, now time.Time) *Payment {
	return &Payment{
		ID:            id,
		BillID:        b.ID,
		OwnerID:       b.OwnerID,
		Amount:        b.Amount,
		TransactionID: NewTransactionID(),
		Method:        PaymentMethodSimulated,
		Status:        PaymentStatusSuccess,
		CreatedAt:     now,
		BillNumber:    b.BillNumber,
		BillType:      b.BillType,
	}
}

// NewTransactionID returns a fresh "TXN"-prefixed uppercase identifier.
func NewTransactionID() string {
	return "TXN" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Settlement is the result of a successful settle: the paid bill and its payment.
type Settlement struct {
	Bill    *Bill    `json:"bill"`
	Payment *Payment `json:"payment"`
}

// PaymentFilter is a declarative payment predicate. Nil fields match everything.
type PaymentFilter struct {
	OwnerID *string
	BillID  *string
}

func (f PaymentFilter) Matches(p *Payment) bool {
	if p == nil {
		return false
	}
	if f.OwnerID != nil && p.OwnerID != *f.OwnerID {
		return false
	}
	if f.BillID != nil && p.BillID != *f.BillID {
		return false
	}
	return true
}
