package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cityconnect/internal/job/models"
	"cityconnect/internal/platform/db"
	"cityconnect/pkg/platform/sentinel"
	txctx "cityconnect/pkg/platform/tx"
)

const jobColumns = `id, posted_by, title, description, department, location, salary,
	requirements, contact_email, contact_phone, is_active, created_at, updated_at`

// SQL persists job postings in PostgreSQL or SQLite. Requirements are kept
// as a JSON array in a text column.
type SQL struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewSQL(sqlDB *sql.DB, dialect db.Dialect) *SQL {
	return &SQL{db: sqlDB, dialect: dialect}
}

func (s *SQL) Create(ctx context.Context, j *models.Job) error {
	reqs, err := encodeRequirements(j.Requirements)
	if err != nil {
		return err
	}
	_, err = txctx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		j.ID, j.PostedBy, j.Title, j.Description, j.Department, j.Location, j.Salary,
		reqs, j.ContactEmail, db.NullString(j.ContactPhone), j.IsActive,
		db.ToMillis(j.CreatedAt), db.ToMillis(j.UpdatedAt),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("job %s: %w", j.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQL) FindByID(ctx context.Context, id string) (*models.Job, error) {
	return s.findByID(ctx, txctx.QuerierFrom(ctx, s.db), id, "")
}

// List returns the jobs matching filter, newest first.
func (s *SQL) List(ctx context.Context, filter models.Filter) ([]*models.Job, error) {
	var where db.Where
	if filter.ActiveOnly {
		where.Add("is_active = ?", true)
	}
	if v := strings.TrimSpace(filter.Department); v != "" {
		where.Add(`LOWER(department) LIKE ? ESCAPE '\'`, likePattern(v))
	}
	if v := strings.TrimSpace(filter.Location); v != "" {
		where.Add(`LOWER(location) LIKE ? ESCAPE '\'`, likePattern(v))
	}

	rows, err := txctx.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs`+where.SQL()+` ORDER BY created_at DESC, id DESC`,
		where.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// likePattern escapes LIKE wildcards so filters match literal substrings.
func likePattern(v string) string {
	v = strings.ToLower(v)
	v = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
	return "%" + v + "%"
}

// Execute loads the job inside a transaction, runs validate and mutate, and
// writes every mutable column back.
func (s *SQL) Execute(ctx context.Context, id string, validate func(*models.Job) error, mutate func(*models.Job)) (*models.Job, error) {
	var updated *models.Job
	err := db.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		q := txctx.QuerierFrom(txCtx, s.db)
		j, err := s.findByID(txCtx, q, id, s.dialect.ForUpdate())
		if err != nil {
			return err
		}
		if err := validate(j); err != nil {
			return err
		}
		mutate(j)
		reqs, err := encodeRequirements(j.Requirements)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(txCtx, `
			UPDATE jobs
			SET title = $2, description = $3, department = $4, location = $5, salary = $6,
				requirements = $7, contact_email = $8, contact_phone = $9, is_active = $10, updated_at = $11
			WHERE id = $1`,
			j.ID, j.Title, j.Description, j.Department, j.Location, j.Salary,
			reqs, j.ContactEmail, db.NullString(j.ContactPhone), j.IsActive, db.ToMillis(j.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		updated = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the job if validate accepts it.
func (s *SQL) Delete(ctx context.Context, id string, validate func(*models.Job) error) error {
	return db.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		q := txctx.QuerierFrom(txCtx, s.db)
		j, err := s.findByID(txCtx, q, id, s.dialect.ForUpdate())
		if err != nil {
			return err
		}
		if err := validate(j); err != nil {
			return err
		}
		if _, err := q.ExecContext(txCtx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		return nil
	})
}

func (s *SQL) findByID(ctx context.Context, q txctx.Querier, id, lock string) (*models.Job, error) {
	row := q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`+lock, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	return j, nil
}

func encodeRequirements(reqs []string) (string, error) {
	if reqs == nil {
		reqs = []string{}
	}
	data, err := json.Marshal(reqs)
	if err != nil {
		return "", fmt.Errorf("encode job requirements: %w", err)
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		j                    models.Job
		requirements         string
		phone                sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&j.ID, &j.PostedBy, &j.Title, &j.Description, &j.Department, &j.Location, &j.Salary,
		&requirements, &j.ContactEmail, &phone, &j.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(requirements), &j.Requirements); err != nil {
		return nil, fmt.Errorf("decode job requirements: %w", err)
	}
	if j.Requirements == nil {
		j.Requirements = []string{}
	}
	j.ContactPhone = db.StringPtr(phone)
	j.CreatedAt = db.FromMillis(createdAt)
	j.UpdatedAt = db.FromMillis(updatedAt)
	return &j, nil
}
