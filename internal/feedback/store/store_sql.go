package store

import (
	"context"
	"database/sql"
	"fmt"

	"cityconnect/internal/feedback/models"
	"cityconnect/internal/platform/db"
	"cityconnect/pkg/platform/sentinel"
	txctx "cityconnect/pkg/platform/tx"
)

// SQL persists feedback in PostgreSQL or SQLite.
type SQL struct {
	db *sql.DB
}

func NewSQL(sqlDB *sql.DB) *SQL {
	return &SQL{db: sqlDB}
}

func (s *SQL) Create(ctx context.Context, fb *models.Feedback) error {
	_, err := txctx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO feedback (id, owner_id, rating, suggestion, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		fb.ID, fb.OwnerID, fb.Rating, fb.Suggestion, db.ToMillis(fb.CreatedAt),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("feedback %s: %w", fb.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// List returns the feedback matching filter, newest first.
func (s *SQL) List(ctx context.Context, filter models.Filter) ([]*models.Feedback, error) {
	var where db.Where
	if filter.OwnerID != nil {
		where.Add("owner_id = ?", *filter.OwnerID)
	}
	rows, err := txctx.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT id, owner_id, rating, suggestion, created_at FROM feedback`+where.SQL()+
			` ORDER BY created_at DESC, id DESC`,
		where.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []*models.Feedback
	for rows.Next() {
		var (
			fb        models.Feedback
			createdAt int64
		)
		if err := rows.Scan(&fb.ID, &fb.OwnerID, &fb.Rating, &fb.Suggestion, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.CreatedAt = db.FromMillis(createdAt)
		out = append(out, &fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}
