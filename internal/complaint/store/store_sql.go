package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cityconnect/internal/complaint/models"
	"cityconnect/internal/platform/db"
	"cityconnect/pkg/platform/sentinel"
	txctx "cityconnect/pkg/platform/tx"
)

const complaintColumns = `id, owner_id, title, description, category, location, image_ref, status,
	assigned_department, remarks, created_at, updated_at`

// SQL persists complaints in PostgreSQL or SQLite.
type SQL struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewSQL(sqlDB *sql.DB, dialect db.Dialect) *SQL {
	return &SQL{db: sqlDB, dialect: dialect}
}

func (s *SQL) Create(ctx context.Context, c *models.Complaint) error {
	_, err := txctx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO complaints (`+complaintColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.OwnerID, c.Title, c.Description, string(c.Category), c.Location,
		db.NullString(c.ImageRef), string(c.Status), db.NullString(c.AssignedDepartment),
		db.NullString(c.Remarks), db.ToMillis(c.CreatedAt), db.ToMillis(c.UpdatedAt),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("complaint %s: %w", c.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

func (s *SQL) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	return s.findByID(ctx, txctx.QuerierFrom(ctx, s.db), id, "")
}

// List returns the complaints matching filter, newest first.
func (s *SQL) List(ctx context.Context, filter models.Filter) ([]*models.Complaint, error) {
	var where db.Where
	if filter.OwnerID != nil {
		where.Add("owner_id = ?", *filter.OwnerID)
	}
	if filter.AssignedDepartment != nil {
		where.Add("assigned_department = ?", *filter.AssignedDepartment)
	}
	if filter.Status != nil {
		where.Add("status = ?", string(*filter.Status))
	}
	if filter.Category != nil {
		where.Add("category = ?", string(*filter.Category))
	}

	rows, err := txctx.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints`+where.SQL()+` ORDER BY created_at DESC, id DESC`,
		where.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var out []*models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaints: %w", err)
	}
	return out, nil
}

// Execute loads the complaint inside a transaction, runs validate and mutate,
// and writes the mutable columns back. Nothing is written when validate fails.
func (s *SQL) Execute(ctx context.Context, id string, validate func(*models.Complaint) error, mutate func(*models.Complaint)) (*models.Complaint, error) {
	var updated *models.Complaint
	err := db.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		q := txctx.QuerierFrom(txCtx, s.db)
		c, err := s.findByID(txCtx, q, id, s.dialect.ForUpdate())
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		_, err = q.ExecContext(txCtx, `
			UPDATE complaints
			SET status = $2, assigned_department = $3, remarks = $4, updated_at = $5
			WHERE id = $1`,
			c.ID, string(c.Status), db.NullString(c.AssignedDepartment), db.NullString(c.Remarks),
			db.ToMillis(c.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("update complaint: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SQL) findByID(ctx context.Context, q txctx.Querier, id, lock string) (*models.Complaint, error) {
	row := q.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`+lock, id)
	c, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("complaint not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find complaint by id: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	var (
		c                           models.Complaint
		category, status            string
		imageRef, assigned, remarks sql.NullString
		createdAt, updatedAt        int64
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &category, &c.Location,
		&imageRef, &status, &assigned, &remarks, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Category = models.Category(category)
	c.Status = models.Status(status)
	c.ImageRef = db.StringPtr(imageRef)
	c.AssignedDepartment = db.StringPtr(assigned)
	c.Remarks = db.StringPtr(remarks)
	c.CreatedAt = db.FromMillis(createdAt)
	c.UpdatedAt = db.FromMillis(updatedAt)
	return &c, nil
}
