package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cityconnect/internal/billing/models"
	"cityconnect/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the bill or payment does not exist
// - Return sentinel.ErrAlreadyUsed when a bill id or bill number is reused
// - Return sentinel.ErrInvalidState when Settle finds the bill not Pending or not owned by the caller
//
// Returned values are copies; callers may modify them freely.

// InMemory stores bills and payments in memory. Settlement runs under one lock,
// so a bill can only be flipped to Paid by a single caller.
type InMemory struct {
	mu       sync.RWMutex
	bills    map[string]*models.Bill
	numbers  map[string]string
	payments map[string]*models.Payment
}

func NewInMemory() *InMemory {
	return &InMemory{
		bills:    make(map[string]*models.Bill),
		numbers:  make(map[string]string),
		payments: make(map[string]*models.Payment),
	}
}

func (s *InMemory) CreateBill(_ context.Context, b *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bills[b.ID]; exists {
		return fmt.Errorf("bill %s: %w", b.ID, sentinel.ErrAlreadyUsed)
	}
	if _, exists := s.numbers[b.BillNumber]; exists {
		return fmt.Errorf("bill number %s: %w", b.BillNumber, sentinel.ErrAlreadyUsed)
	}
	s.bills[b.ID] = cloneBill(b)
	s.numbers[b.BillNumber] = b.ID
	return nil
}

func (s *InMemory) FindBill(_ context.Context, id string) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bills[id]
	if !ok {
		return nil, fmt.Errorf("bill not found: %w", sentinel.ErrNotFound)
	}
	return cloneBill(b), nil
}

// ListBills returns the bills matching filter, newest first.
func (s *InMemory) ListBills(_ context.Context, filter models.BillFilter) ([]*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		if filter.Matches(b) {
			out = append(out, cloneBill(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Settle flips a Pending bill owned by ownerID to Paid and records its Success payment.
func (s *InMemory) Settle(_ context.Context, billID, ownerID, paymentID string, now time.Time) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[billID]
	if !ok {
		return nil, fmt.Errorf("bill not found: %w", sentinel.ErrNotFound)
	}
	if !b.IsOwnedBy(ownerID) || b.CanSettle() != nil {
		return nil, fmt.Errorf("bill %s is not payable: %w", billID, sentinel.ErrInvalidState)
	}
	for _, p := range s.payments {
		if p.BillID == billID && p.Status == models.PaymentStatusSuccess {
			return nil, fmt.Errorf("bill %s already has a successful payment: %w", billID, sentinel.ErrInvalidState)
		}
	}

	paid := cloneBill(b)
	paid.ApplySettlement(now)
	payment := models.NewSettlementPayment(paymentID, paid, now)
	s.bills[billID] = paid
	s.payments[payment.ID] = clonePayment(payment)
	return &models.Settlement{Bill: cloneBill(paid), Payment: payment}, nil
}

func (s *InMemory) FindPayment(_ context.Context, id string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
	}
	return s.enrich(p), nil
}

// ListPayments returns the payments matching filter, newest first, with bill details.
func (s *InMemory) ListPayments(_ context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if filter.Matches(p) {
			out = append(out, s.enrich(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) enrich(p *models.Payment) *models.Payment {
	cp := clonePayment(p)
	if b, ok := s.bills[p.BillID]; ok {
		cp.BillNumber = b.BillNumber
		cp.BillType = b.BillType
	}
	return cp
}

func cloneBill(b *models.Bill) *models.Bill {
	cp := *b
	if b.PaidAt != nil {
		paidAt := *b.PaidAt
		cp.PaidAt = &paidAt
	}
	return &cp
}

func clonePayment(p *models.Payment) *models.Payment {
	cp := *p
	return &cp
}
