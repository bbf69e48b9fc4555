package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cityconnect/internal/billing/models"
	"cityconnect/internal/billing/store"
	"cityconnect/internal/platform/db"
	"cityconnect/pkg/platform/sentinel"
)

type billingStore interface {
	CreateBill(ctx context.Context, b *models.Bill) error
	FindBill(ctx context.Context, id string) (*models.Bill, error)
	ListBills(ctx context.Context, filter models.BillFilter) ([]*models.Bill, error)
	Settle(ctx context.Context, billID, ownerID, paymentID string, now time.Time) (*models.Settlement, error)
	FindPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
}

// StoreSuite is the behaviour every billing store must share.
type StoreSuite struct {
	suite.Suite
	newStore func() billingStore
	store    billingStore
	base     time.Time
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore()
	s.base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() billingStore { return store.NewInMemory() }})
}

func TestSQLiteStoreSuite(t *testing.T) {
	st := &StoreSuite{}
	st.newStore = func() billingStore {
		sqlDB, err := db.Open(context.Background(), db.DriverSQLite, filepath.Join(st.T().TempDir(), "billing.db"))
		st.Require().NoError(err)
		st.T().Cleanup(func() { _ = sqlDB.Close() })
		return store.NewSQL(sqlDB)
	}
	suite.Run(t, st)
}

func strPtr(s string) *string { return &s }

func (s *StoreSuite) seedBill(id, owner, number string, offset time.Duration) *models.Bill {
	b, err := models.NewBill(id, models.BillDraft{
		OwnerID:    owner,
		BillType:   models.BillTypeWater,
		Amount:     45050,
		DueDate:    s.base.AddDate(0, 1, 0),
		BillNumber: number,
		Period:     "2024-06",
	}, s.base.Add(offset))
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateBill(context.Background(), b))
	return b
}

func (s *StoreSuite) TestCreateAndFindBill() {
	ctx := context.Background()
	created := s.seedBill("b-1", "citizen-1", "WTR-0001", 0)

	found, err := s.store.FindBill(ctx, "b-1")
	s.Require().NoError(err)
	s.Equal(created.BillNumber, found.BillNumber)
	s.Equal(int64(45050), found.Amount)
	s.Equal(models.BillStatusPending, found.Status)
	s.True(created.DueDate.Equal(found.DueDate))
	s.Nil(found.PaidAt)

	s.Run("duplicate bill number", func() {
		dup, err := models.NewBill("b-2", models.BillDraft{
			OwnerID: "citizen-2", BillType: models.BillTypeElectricity, Amount: 100,
			DueDate: s.base, BillNumber: "WTR-0001", Period: "2024-06",
		}, s.base)
		s.Require().NoError(err)
		s.ErrorIs(s.store.CreateBill(ctx, dup), sentinel.ErrAlreadyUsed)
	})

	s.Run("missing bill", func() {
		_, err := s.store.FindBill(ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestListBills() {
	ctx := context.Background()
	s.seedBill("b-1", "citizen-1", "WTR-0001", 0)
	s.seedBill("b-2", "citizen-2", "WTR-0002", time.Minute)
	s.seedBill("b-3", "citizen-1", "WTR-0003", 2*time.Minute)

	list, err := s.store.ListBills(ctx, models.BillFilter{OwnerID: strPtr("citizen-1")})
	s.Require().NoError(err)
	s.Equal([]string{"b-3", "b-1"}, billIDs(list))

	_, err = s.store.Settle(ctx, "b-1", "citizen-1", "p-1", s.base.Add(time.Hour))
	s.Require().NoError(err)

	paid := models.BillStatusPaid
	list, err = s.store.ListBills(ctx, models.BillFilter{Status: &paid})
	s.Require().NoError(err)
	s.Equal([]string{"b-1"}, billIDs(list))
}

func (s *StoreSuite) TestSettle() {
	ctx := context.Background()
	s.seedBill("b-1", "citizen-1", "WTR-0001", 0)
	paidAt := s.base.Add(time.Hour)

	s.Run("non-owner cannot settle", func() {
		_, err := s.store.Settle(ctx, "b-1", "citizen-2", "p-0", paidAt)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("owner settles once", func() {
		settlement, err := s.store.Settle(ctx, "b-1", "citizen-1", "p-1", paidAt)
		s.Require().NoError(err)
		s.Equal(models.BillStatusPaid, settlement.Bill.Status)
		s.Require().NotNil(settlement.Bill.PaidAt)
		s.True(paidAt.Equal(*settlement.Bill.PaidAt))
		s.Equal("b-1", settlement.Payment.BillID)
		s.Equal("citizen-1", settlement.Payment.OwnerID)
		s.Equal(int64(45050), settlement.Payment.Amount)
		s.Equal(models.PaymentStatusSuccess, settlement.Payment.Status)
		s.Regexp(`^TXN[0-9A-F]{32}$`, settlement.Payment.TransactionID)
	})

	s.Run("retry conflicts and creates no payment", func() {
		_, err := s.store.Settle(ctx, "b-1", "citizen-1", "p-2", paidAt)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		payments, err := s.store.ListPayments(ctx, models.PaymentFilter{BillID: strPtr("b-1")})
		s.Require().NoError(err)
		s.Len(payments, 1)
	})

	s.Run("missing bill", func() {
		_, err := s.store.Settle(ctx, "missing", "citizen-1", "p-3", paidAt)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestConcurrentSettleHasOneWinner() {
	ctx := context.Background()
	s.seedBill("b-1", "citizen-1", "WTR-0001", 0)
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := s.store.Settle(ctx, "b-1", "citizen-1", fmt.Sprintf("p-%d", idx), s.base.Add(time.Hour))
			switch {
			case err == nil:
				successCount.Add(1)
			case isInvalidState(err):
				conflictCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one settle should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "every other settle should conflict")

	payments, err := s.store.ListPayments(ctx, models.PaymentFilter{BillID: strPtr("b-1")})
	s.Require().NoError(err)
	s.Len(payments, 1)

	bill, err := s.store.FindBill(ctx, "b-1")
	s.Require().NoError(err)
	s.True(bill.IsPaid())
}

func (s *StoreSuite) TestPaymentsAreEnriched() {
	ctx := context.Background()
	s.seedBill("b-1", "citizen-1", "WTR-0001", 0)
	s.seedBill("b-2", "citizen-1", "WTR-0002", time.Minute)
	s.seedBill("b-3", "citizen-2", "WTR-0003", 2*time.Minute)

	_, err := s.store.Settle(ctx, "b-1", "citizen-1", "p-1", s.base.Add(time.Hour))
	s.Require().NoError(err)
	_, err = s.store.Settle(ctx, "b-2", "citizen-1", "p-2", s.base.Add(2*time.Hour))
	s.Require().NoError(err)
	_, err = s.store.Settle(ctx, "b-3", "citizen-2", "p-3", s.base.Add(3*time.Hour))
	s.Require().NoError(err)

	list, err := s.store.ListPayments(ctx, models.PaymentFilter{OwnerID: strPtr("citizen-1")})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("p-2", list[0].ID)
	s.Equal("WTR-0002", list[0].BillNumber)
	s.Equal(models.BillTypeWater, list[0].BillType)
	s.Equal(models.PaymentMethodSimulated, list[0].Method)

	found, err := s.store.FindPayment(ctx, "p-3")
	s.Require().NoError(err)
	s.Equal("WTR-0003", found.BillNumber)

	_, err = s.store.FindPayment(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func isInvalidState(err error) bool {
	return errors.Is(err, sentinel.ErrInvalidState)
}

func billIDs(list []*models.Bill) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.ID)
	}
	return out
}
