// Package repository provides Postgres persistence for document metadata.
// The file bytes themselves live in object storage; rows here carry the
// object key and the matching attributes.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chantier_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentNotFoundMsg = "document introuvable"

// Document is the database model for a stored quote or invoice PDF.
type Document struct {
	ID          uuid.UUID `db:"id"`
	Kind        string    `db:"kind"` // "quote" or "invoice"
	Number      string    `db:"number"`
	ClientEmail string    `db:"client_email"`
	FileName    string    `db:"file_name"`
	ObjectKey   string    `db:"object_key"`
	ContentType string    `db:"content_type"`
	SizeBytes   int64     `db:"size_bytes"`
	TotalCents  *int64    `db:"total_cents"`
	CreatedAt   time.Time `db:"created_at"`
}

// ListParams contains parameters for listing documents
type ListParams struct {
	Kind        string
	ClientEmail string
	Search      string
}

// Repository provides database operations for documents
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new documents repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `
	id, kind, number, client_email, file_name, object_key, content_type,
	size_bytes, total_cents, created_at`

// Create inserts a document metadata row.
func (r *Repository) Create(ctx context.Context, d *Document) error {
	query := `
		INSERT INTO documents (
			id, kind, number, client_email, file_name, object_key, content_type,
			size_bytes, total_cents, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := r.pool.Exec(ctx, query,
		d.ID, d.Kind, d.Number, d.ClientEmail, d.FileName, d.ObjectKey,
		d.ContentType, d.SizeBytes, d.TotalCents, d.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	query := `SELECT` + documentColumns + ` FROM documents WHERE id = $1`

	var d Document
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Kind, &d.Number, &d.ClientEmail, &d.FileName, &d.ObjectKey,
		&d.ContentType, &d.SizeBytes, &d.TotalCents, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(documentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

// FindCandidate retrieves the most recent document of the given kind
// addressed to the client email, or nil when none matches. Used to
// pre-match an attachment when a prospect is dragged to a gated stage.
func (r *Repository) FindCandidate(ctx context.Context, kind, clientEmail string) (*Document, error) {
	query := `SELECT` + documentColumns + ` FROM documents
		WHERE kind = $1 AND LOWER(client_email) = LOWER($2)
		ORDER BY created_at DESC
		LIMIT 1`

	var d Document
	err := r.pool.QueryRow(ctx, query, kind, clientEmail).Scan(
		&d.ID, &d.Kind, &d.Number, &d.ClientEmail, &d.FileName, &d.ObjectKey,
		&d.ContentType, &d.SizeBytes, &d.TotalCents, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find candidate document: %w", err)
	}
	return &d, nil
}

// List retrieves documents, newest first, with optional filters.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Document, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1

	if params.Kind != "" {
		where += fmt.Sprintf(" AND kind = $%d", argPos)
		args = append(args, params.Kind)
		argPos++
	}
	if params.ClientEmail != "" {
		where += fmt.Sprintf(" AND LOWER(client_email) = LOWER($%d)", argPos)
		args = append(args, params.ClientEmail)
		argPos++
	}
	if params.Search != "" {
		where += fmt.Sprintf(" AND (number ILIKE $%d OR file_name ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+params.Search+"%")
		argPos++
	}

	query := fmt.Sprintf("SELECT%s FROM documents %s ORDER BY created_at DESC", documentColumns, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var items []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(
			&d.ID, &d.Kind, &d.Number, &d.ClientEmail, &d.FileName, &d.ObjectKey,
			&d.ContentType, &d.SizeBytes, &d.TotalCents, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return items, nil
}

// Delete removes a document metadata row, returning the removed row so the
// caller can clean up object storage.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*Document, error) {
	query := `DELETE FROM documents WHERE id = $1 RETURNING` + documentColumns

	var d Document
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Kind, &d.Number, &d.ClientEmail, &d.FileName, &d.ObjectKey,
		&d.ContentType, &d.SizeBytes, &d.TotalCents, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(documentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	return &d, nil
}
