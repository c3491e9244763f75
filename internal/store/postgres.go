// Package store holds the persistence collaborators of the categorization
// layer: the mailbox database and the activity log sinks.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"email-analyzer/internal/categorization"
)

const (
	queryGetEmail = `SELECT id, subject, content FROM emails WHERE id = $1`

	queryListCategories = `SELECT id, name FROM categories ORDER BY id`

	queryUpdateCategorization = `
		UPDATE emails
		SET category_id = $2, ai_confidence = $3, labels = $4, updated_at = NOW()
		WHERE id = $1`

	queryInsertActivity = `
		INSERT INTO activities (id, type, description, details, email_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

// Postgres is the mailbox database. It implements categorization.EmailStore
// and categorization.ActivitySink.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) GetEmail(ctx context.Context, id int64) (*categorization.Email, error) {
	var (
		email   categorization.Email
		subject sql.NullString
		content sql.NullString
	)
	err := p.db.QueryRowContext(ctx, queryGetEmail, id).Scan(&email.ID, &subject, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("email %d: %w", id, categorization.ErrEmailNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get email %d: %w", id, err)
	}
	email.Subject = subject.String
	email.Content = content.String
	return &email, nil
}

func (p *Postgres) ListCategories(ctx context.Context) ([]categorization.Category, error) {
	rows, err := p.db.QueryContext(ctx, queryListCategories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []categorization.Category
	for rows.Next() {
		var c categorization.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (p *Postgres) UpdateCategorization(ctx context.Context, emailID, categoryID int64, confidence int, labels []string) error {
	res, err := p.db.ExecContext(ctx, queryUpdateCategorization, emailID, categoryID, confidence, pq.Array(labels))
	if err != nil {
		return fmt.Errorf("update email %d: %w", emailID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update email %d: %w", emailID, err)
	}
	if n == 0 {
		return fmt.Errorf("email %d: %w", emailID, categorization.ErrEmailNotFound)
	}
	return nil
}

func (p *Postgres) RecordActivity(ctx context.Context, a categorization.Activity) error {
	_, err := p.db.ExecContext(ctx, queryInsertActivity,
		a.ID, string(a.Type), a.Description, a.Details, pq.Array(a.EmailIDs), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
