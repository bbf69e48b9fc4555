package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cityconnect/internal/billing/models"
	"cityconnect/internal/platform/db"
	"cityconnect/pkg/platform/sentinel"
	txctx "cityconnect/pkg/platform/tx"
)

const billColumns = `id, owner_id, bill_type, amount, due_date, status, bill_number, period,
	created_at, updated_at, paid_at`

const paymentColumns = `p.id, p.bill_id, p.owner_id, p.amount, p.transaction_id, p.method, p.status,
	p.created_at, b.bill_number, b.bill_type`

// SQL persists bills and payments in PostgreSQL or SQLite.
//
// Settlement is a single transaction whose first statement is a conditional
// UPDATE on the bill row; only the caller that flips Pending to Paid goes on
// to insert the payment. A partial unique index on successful payments per
// bill backs this up.
type SQL struct {
	db *sql.DB
}

func NewSQL(sqlDB *sql.DB) *SQL {
	return &SQL{db: sqlDB}
}

func (s *SQL) CreateBill(ctx context.Context, b *models.Bill) error {
	_, err := txctx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO bills (`+billColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.OwnerID, string(b.BillType), b.Amount, db.ToMillis(b.DueDate), string(b.Status),
		b.BillNumber, b.Period, db.ToMillis(b.CreatedAt), db.ToMillis(b.UpdatedAt), nullMillis(b.PaidAt),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("bill number %s: %w", b.BillNumber, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

func (s *SQL) FindBill(ctx context.Context, id string) (*models.Bill, error) {
	row := txctx.QuerierFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
	b, err := scanBill(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bill not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find bill by id: %w", err)
	}
	return b, nil
}

// ListBills returns the bills matching filter, newest first.
func (s *SQL) ListBills(ctx context.Context, filter models.BillFilter) ([]*models.Bill, error) {
	var where db.Where
	if filter.OwnerID != nil {
		where.Add("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != nil {
		where.Add("status = ?", string(*filter.Status))
	}
	rows, err := txctx.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills`+where.SQL()+` ORDER BY created_at DESC, id DESC`,
		where.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var out []*models.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return out, nil
}

// Settle flips a Pending bill owned by ownerID to Paid and records its Success payment.
func (s *SQL) Settle(ctx context.Context, billID, ownerID, paymentID string, now time.Time) (*models.Settlement, error) {
	var settlement *models.Settlement
	err := db.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		q := txctx.QuerierFrom(txCtx, s.db)
		row := q.QueryRowContext(txCtx, `
			UPDATE bills
			SET status = $3, updated_at = $5, paid_at = $5
			WHERE id = $1 AND owner_id = $2 AND status = $4
			RETURNING `+billColumns,
			billID, ownerID, string(models.BillStatusPaid), string(models.BillStatusPending), db.ToMillis(now),
		)
		bill, err := scanBill(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return s.settleMiss(txCtx, q, billID)
			}
			return fmt.Errorf("mark bill paid: %w", err)
		}

		payment := models.NewSettlementPayment(paymentID, bill, now)
		_, err = q.ExecContext(txCtx, `
			INSERT INTO payments (id, bill_id, owner_id, amount, transaction_id, method, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			payment.ID, payment.BillID, payment.OwnerID, payment.Amount, payment.TransactionID,
			payment.Method, string(payment.Status), db.ToMillis(payment.CreatedAt),
		)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("bill %s already has a successful payment: %w", billID, sentinel.ErrInvalidState)
			}
			return fmt.Errorf("insert payment: %w", err)
		}
		settlement = &models.Settlement{Bill: bill, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// settleMiss reports why the conditional update matched no row.
func (s *SQL) settleMiss(ctx context.Context, q txctx.Querier, billID string) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM bills WHERE id = $1`, billID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("bill not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check bill: %w", err)
	}
	return fmt.Errorf("bill %s is not payable: %w", billID, sentinel.ErrInvalidState)
}

func (s *SQL) FindPayment(ctx context.Context, id string) (*models.Payment, error) {
	row := txctx.QuerierFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p JOIN bills b ON b.id = p.bill_id WHERE p.id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find payment by id: %w", err)
	}
	return p, nil
}

// ListPayments returns the payments matching filter, newest first, with bill details.
func (s *SQL) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	var where db.Where
	if filter.OwnerID != nil {
		where.Add("p.owner_id = ?", *filter.OwnerID)
	}
	if filter.BillID != nil {
		where.Add("p.bill_id = ?", *filter.BillID)
	}
	rows, err := txctx.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p JOIN bills b ON b.id = p.bill_id`+
			where.SQL()+` ORDER BY p.created_at DESC, p.id DESC`,
		where.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*models.Bill, error) {
	var (
		b                             models.Bill
		billType, status              string
		dueDate, createdAt, updatedAt int64
		paidAt                        sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &billType, &b.Amount, &dueDate, &status, &b.BillNumber,
		&b.Period, &createdAt, &updatedAt, &paidAt); err != nil {
		return nil, err
	}
	b.BillType = models.BillType(billType)
	b.Status = models.BillStatus(status)
	b.DueDate = db.FromMillis(dueDate)
	b.CreatedAt = db.FromMillis(createdAt)
	b.UpdatedAt = db.FromMillis(updatedAt)
	if paidAt.Valid {
		t := db.FromMillis(paidAt.Int64)
		b.PaidAt = &t
	}
	return &b, nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p                models.Payment
		status, billType string
		createdAt        int64
	)
	if err := row.Scan(&p.ID, &p.BillID, &p.OwnerID, &p.Amount, &p.TransactionID, &p.Method, &status,
		&createdAt, &p.BillNumber, &billType); err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	p.BillType = models.BillType(billType)
	p.CreatedAt = db.FromMillis(createdAt)
	return &p, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: db.ToMillis(*t), Valid: true}
}
