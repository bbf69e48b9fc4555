package models

import (
	"strings"
	"time"

	dErrors "cityconnect/pkg/domain-errors"
)

// BillType is the closed set of utility bill kinds.
type BillType string

const (
	BillTypeElectricity BillType = "Electricity"
	BillTypeWater       BillType = "Water"
	BillTypePropertyTax BillType = "Property Tax"
)

// ParseBillType matches case-insensitively against the known bill types.
func ParseBillType(s string) (BillType, error) {
	s = strings.TrimSpace(s)
	for _, t := range []BillType{BillTypeElectricity, BillTypeWater, BillTypePropertyTax} {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "bill_type is required")
	}
	return "", dErrors.New(dErrors.CodeValidation, "bill_type must be one of Electricity, Water, Property Tax")
}

func (t BillType) IsValid() bool {
	switch t {
	case BillTypeElectricity, BillTypeWater, BillTypePropertyTax:
		return true
	}
	return false
}

// BillStatus is the settlement state of a bill.
type BillStatus string

const (
	BillStatusPending BillStatus = "Pending"
	BillStatusPaid    BillStatus = "Paid"
)

// ParseBillStatus matches case-insensitively.
func ParseBillStatus(s string) (BillStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return BillStatusPending, nil
	case "paid":
		return BillStatusPaid, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "status must be Pending or Paid")
}

func (s BillStatus) IsValid() bool {
	return s == BillStatusPending || s == BillStatusPaid
}

// CanTransitionTo allows only Pending -> Paid. Paid is terminal.
func (s BillStatus) CanTransitionTo(next BillStatus) bool {
	return s == BillStatusPending && next == BillStatusPaid
}

// Bill is an amount owed by a citizen.
//
// Invariants:
//   - Amount is non-negative, in minor currency units
//   - BillNumber is non-empty and unique across all bills (enforced by the store)
//   - Status moves Pending -> Paid exactly once and never reverses
type Bill struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	BillType   BillType   `json:"bill_type"`
	Amount     int64      `json:"amount"`
	DueDate    time.Time  `json:"due_date"`
	Status     BillStatus `json:"status"`
	BillNumber string     `json:"bill_number"`
	Period     string     `json:"period"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// BillDraft is the admin-supplied create payload.
type BillDraft struct {
	OwnerID    string
	BillType   BillType
	Amount     int64
	DueDate    time.Time
	BillNumber string
	Period     string
}

// NewBill builds a Pending bill from a draft.
func NewBill(id string, d BillDraft, now time.Time) (*Bill, error) {
	number := strings.TrimSpace(d.BillNumber)
	period := strings.TrimSpace(d.Period)
	switch {
	case id == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "bill id is required")
	case strings.TrimSpace(d.OwnerID) == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "bill owner is required")
	case !d.BillType.IsValid():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown bill type")
	case d.Amount < 0:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "amount must not be negative")
	case d.DueDate.IsZero():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "due date is required")
	case number == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "bill number is required")
	case period == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "period is required")
	}
	return &Bill{
		ID:         id,
		OwnerID:    strings.TrimSpace(d.OwnerID),
		BillType:   d.BillType,
		Amount:     d.Amount,
		DueDate:    d.DueDate,
		Status:     BillStatusPending,
		BillNumber: number,
		Period:     period,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (b *Bill) IsOwnedBy(subjectID string) bool {
	return subjectID != "" && b.OwnerID == subjectID
}

func (b *Bill) IsPaid() bool {
	return b.Status == BillStatusPaid
}

// CanSettle checks the status precondition for settlement.
func (b *Bill) CanSettle() error {
	if !b.Status.CanTransitionTo(BillStatusPaid) {
		return dErrors.New(dErrors.CodeInvariantViolation, "bill is already paid")
	}
	return nil
}

// ApplySettlement flips the bill to Paid. Call CanSettle first.
func (b *Bill) ApplySettlement(now time.Time) {
	b.Status = BillStatusPaid
	b.UpdatedAt = now
	paidAt := now
	b.PaidAt = &paidAt
}

// BillFilter is a declarative bill predicate. Nil fields match everything.
type BillFilter struct {
	OwnerID *string
	Status  *BillStatus
}

func (f BillFilter) Matches(b *Bill) bool {
	if b == nil {
		return false
	}
	if f.OwnerID != nil && b.OwnerID != *f.OwnerID {
		return false
	}
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	return true
}
