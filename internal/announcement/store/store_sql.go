package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cityconnect/internal/announcement/models"
	"cityconnect/internal/platform/db"
	"cityconnect/pkg/platform/sentinel"
	txctx "cityconnect/pkg/platform/tx"
)

const announcementColumns = `id, creator_id, title, description, category, date, location,
	target_department, is_active, created_at, updated_at`

// SQL persists announcements in PostgreSQL or SQLite.
type SQL struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewSQL(sqlDB *sql.DB, dialect db.Dialect) *SQL {
	return &SQL{db: sqlDB, dialect: dialect}
}

func (s *SQL) Create(ctx context.Context, a *models.Announcement) error {
	_, err := txctx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO announcements (`+announcementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.CreatorID, a.Title, a.Description, string(a.Category), db.ToMillis(a.Date),
		db.NullString(a.Location), db.NullString(a.TargetDepartment), a.IsActive,
		db.ToMillis(a.CreatedAt), db.ToMillis(a.UpdatedAt),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("announcement %s: %w", a.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert announcement: %w", err)
	}
	return nil
}

func (s *SQL) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	return s.findByID(ctx, txctx.QuerierFrom(ctx, s.db), id, "")
}

// List returns the announcements matching filter, latest date first.
func (s *SQL) List(ctx context.Context, filter models.Filter) ([]*models.Announcement, error) {
	var where db.Where
	if filter.Audience != nil {
		addAudience(&where, *filter.Audience)
	}
	if filter.ActiveOnly {
		where.Add("is_active = ?", true)
	}
	if filter.Category != nil {
		where.Add("category = ?", string(*filter.Category))
	}

	rows, err := txctx.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+announcementColumns+` FROM announcements`+where.SQL()+
			` ORDER BY date DESC, created_at DESC, id DESC`,
		where.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	var out []*models.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate announcements: %w", err)
	}
	return out, nil
}

func addAudience(where *db.Where, audience models.Audience) {
	var parts []string
	args := make([]any, 0, len(audience.Departments))
	if audience.IncludeGlobal {
		parts = append(parts, "target_department IS NULL")
	}
	if len(audience.Departments) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(audience.Departments)), ", ")
		parts = append(parts, "target_department IN ("+marks+")")
		for _, d := range audience.Departments {
			args = append(args, d)
		}
	}
	if len(parts) == 0 {
		// An empty audience admits nothing.
		where.Add("1 = 0")
		return
	}
	where.Add("("+strings.Join(parts, " OR ")+")", args...)
}

// Execute loads the announcement inside a transaction, runs validate and
// mutate, and writes every mutable column back.
func (s *SQL) Execute(ctx context.Context, id string, validate func(*models.Announcement) error, mutate func(*models.Announcement)) (*models.Announcement, error) {
	var updated *models.Announcement
	err := db.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		q := txctx.QuerierFrom(txCtx, s.db)
		a, err := s.findByID(txCtx, q, id, s.dialect.ForUpdate())
		if err != nil {
			return err
		}
		if err := validate(a); err != nil {
			return err
		}
		mutate(a)
		_, err = q.ExecContext(txCtx, `
			UPDATE announcements
			SET title = $2, description = $3, category = $4, date = $5, location = $6,
				target_department = $7, is_active = $8, updated_at = $9
			WHERE id = $1`,
			a.ID, a.Title, a.Description, string(a.Category), db.ToMillis(a.Date),
			db.NullString(a.Location), db.NullString(a.TargetDepartment), a.IsActive, db.ToMillis(a.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("update announcement: %w", err)
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the announcement if validate accepts it.
func (s *SQL) Delete(ctx context.Context, id string, validate func(*models.Announcement) error) error {
	return db.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		q := txctx.QuerierFrom(txCtx, s.db)
		a, err := s.findByID(txCtx, q, id, s.dialect.ForUpdate())
		if err != nil {
			return err
		}
		if err := validate(a); err != nil {
			return err
		}
		if _, err := q.ExecContext(txCtx, `DELETE FROM announcements WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete announcement: %w", err)
		}
		return nil
	})
}

func (s *SQL) findByID(ctx context.Context, q txctx.Querier, id, lock string) (*models.Announcement, error) {
	row := q.QueryRowContext(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`+lock, id)
	a, err := scanAnnouncement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("announcement not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find announcement by id: %w", err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(row rowScanner) (*models.Announcement, error) {
	var (
		a                          models.Announcement
		category                   string
		date, createdAt, updatedAt int64
		location, target           sql.NullString
	)
	if err := row.Scan(&a.ID, &a.CreatorID, &a.Title, &a.Description, &category, &date, &location,
		&target, &a.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Category = models.Category(category)
	a.Date = db.FromMillis(date)
	a.Location = db.StringPtr(location)
	a.TargetDepartment = db.StringPtr(target)
	a.CreatedAt = db.FromMillis(createdAt)
	a.UpdatedAt = db.FromMillis(updatedAt)
	return &a, nil
}
