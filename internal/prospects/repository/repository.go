// Package repository provides Postgres persistence for prospects.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chantier_crm_backend/internal/prospects/domain"
	"chantier_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const prospectNotFoundMsg = "prospect introuvable"

// ListParams contains parameters for listing prospects
type ListParams struct {
	Stage    *domain.StageID
	Search   string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing prospects
type ListResult struct {
	Items      []domain.Prospect
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository provides database operations for prospects
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new prospects repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const prospectColumns = `
	id, name, email, phone, company, notes, stage, relance_count,
	linked_quote_id, linked_invoice_id, created_at, last_action_at`

// Create inserts a new prospect in the intake stage.
func (r *Repository) Create(ctx context.Context, p *domain.Prospect) error {
	query := `
		INSERT INTO prospects (
			id, name, email, phone, company, notes, stage, relance_count,
			linked_quote_id, linked_invoice_id, created_at, last_action_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Email, p.Phone, p.Company, p.Notes, p.Stage, p.RelanceCount,
		p.LinkedQuoteID, p.LinkedInvoiceID, p.CreatedAt, p.LastActionAt,
	); err != nil {
		return fmt.Errorf("failed to insert prospect: %w", err)
	}
	return nil
}

// GetByID retrieves a prospect by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Prospect, error) {
	query := `SELECT` + prospectColumns + ` FROM prospects WHERE id = $1`

	p, err := scanProspect(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(prospectNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get prospect: %w", err)
	}
	return p, nil
}

// List retrieves prospects with optional stage filter, name/email search and
// pagination, newest activity first.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 200 {
		params.PageSize = 50
	}

	where := "WHERE 1=1"
	args := []any{}
	argPos := 1

	if params.Stage != nil {
		where += fmt.Sprintf(" AND stage = $%d", argPos)
		args = append(args, *params.Stage)
		argPos++
	}
	if params.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d OR company ILIKE $%d)", argPos, argPos, argPos)
		args = append(args, "%"+params.Search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM prospects "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count prospects: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT%s FROM prospects %s ORDER BY last_action_at DESC LIMIT $%d OFFSET $%d",
		prospectColumns, where, argPos, argPos+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prospects: %w", err)
	}
	defer rows.Close()

	items, err := scanProspects(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// ListAll retrieves every prospect, for the pipeline board. The board shows
// all columns at once so it loads the full set ordered by activity.
func (r *Repository) ListAll(ctx context.Context) ([]domain.Prospect, error) {
	query := `SELECT` + prospectColumns + ` FROM prospects ORDER BY last_action_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query prospects: %w", err)
	}
	defer rows.Close()

	return scanProspects(rows)
}

// ListIdleInStage retrieves prospects sitting in the given stage whose last
// action predates the cutoff. Used by the scheduler to raise follow-up
// reminders.
func (r *Repository) ListIdleInStage(ctx context.Context, stage domain.StageID, cutoff time.Time) ([]domain.Prospect, error) {
	query := `SELECT` + prospectColumns + ` FROM prospects
		WHERE stage = $1 AND last_action_at < $2
		ORDER BY last_action_at ASC`

	rows, err := r.pool.Query(ctx, query, stage, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query idle prospects: %w", err)
	}
	defer rows.Close()

	return scanProspects(rows)
}

// Update modifies the prospect's contact fields. Stage changes never go
// through here; they belong to UpdateStage.
func (r *Repository) Update(ctx context.Context, p *domain.Prospect) error {
	query := `
		UPDATE prospects SET
			name = $2, email = $3, phone = $4, company = $5, notes = $6,
			linked_quote_id = $7, linked_invoice_id = $8
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Email, p.Phone, p.Company, p.Notes,
		p.LinkedQuoteID, p.LinkedInvoiceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update prospect: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(prospectNotFoundMsg)
	}
	return nil
}

// UpdateStage commits a stage change. It refreshes last_action_at and, when
// asked, increments the relance counter, returning the updated row. The
// caller (the pipeline engine) only invokes this after any required dispatch
// succeeded.
func (r *Repository) UpdateStage(ctx context.Context, prospectID uuid.UUID, stage domain.StageID, incrementRelance bool) (domain.Prospect, error) {
	increment := 0
	if incrementRelance {
		increment = 1
	}

	query := `
		UPDATE prospects SET
			stage = $2, relance_count = relance_count + $3, last_action_at = $4
		WHERE id = $1
		RETURNING` + prospectColumns

	p, err := scanProspect(r.pool.QueryRow(ctx, query, prospectID, stage, increment, time.Now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Prospect{}, apperr.NotFound(prospectNotFoundMsg)
		}
		return domain.Prospect{}, fmt.Errorf("failed to update prospect stage: %w", err)
	}
	return *p, nil
}

// LinkDocument records which quote or invoice the last dispatch attached.
func (r *Repository) LinkDocument(ctx context.Context, prospectID uuid.UUID, kind string, documentID uuid.UUID) error {
	column := "linked_quote_id"
	if kind == "invoice" {
		column = "linked_invoice_id"
	}

	query := fmt.Sprintf(`UPDATE prospects SET %s = $2 WHERE id = $1`, column)
	result, err := r.pool.Exec(ctx, query, prospectID, documentID)
	if err != nil {
		return fmt.Errorf("failed to link document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(prospectNotFoundMsg)
	}
	return nil
}

// Delete removes a prospect.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM prospects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prospect: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(prospectNotFoundMsg)
	}
	return nil
}

// scanProspect reads one row. Stage values are normalized here, at the
// loading boundary: rows written by the historical data model come back with
// their canonical stage id and the rest of the code never sees an alias.
func scanProspect(row pgx.Row) (*domain.Prospect, error) {
	var p domain.Prospect
	var rawStage string

	if err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Company, &p.Notes, &rawStage, &p.RelanceCount,
		&p.LinkedQuoteID, &p.LinkedInvoiceID, &p.CreatedAt, &p.LastActionAt,
	); err != nil {
		return nil, err
	}

	stage, ok := domain.NormalizeLegacyStage(rawStage)
	if !ok {
		return nil, fmt.Errorf("prospect %s has unknown stage %q", p.ID, rawStage)
	}
	p.Stage = stage
	return &p, nil
}

func scanProspects(rows pgx.Rows) ([]domain.Prospect, error) {
	var items []domain.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prospect: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prospects: %w", err)
	}
	return items, nil
}
