// Package repository provides Postgres persistence for invoices and their
// payment ledger.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chantier_crm_backend/internal/invoices/domain"
	"chantier_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const (
	invoiceNotFoundMsg = "facture introuvable"
	paymentNotFoundMsg = "paiement introuvable"
)

// ListParams contains parameters for listing invoices
type ListParams struct {
	ProspectID *uuid.UUID
	Search     string
	Page       int
	PageSize   int
}

// ListResult contains the paginated result of listing invoices
type ListResult struct {
	Items      []domain.Invoice
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository provides database operations for invoices
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new invoices repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextInvoiceNumber atomically generates the next invoice number.
func (r *Repository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var nextNum int
	year := time.Now().Year()
	query := `
		INSERT INTO invoice_counters (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_number = invoice_counters.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query, year).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate invoice number: %w", err)
	}

	return fmt.Sprintf("FAC-%d-%04d", year, nextNum), nil
}

const invoiceColumns = `
	id, prospect_id, number, client_name, client_email, total_cents, notes,
	sent_at, cancelled_at, created_at, updated_at`

// Create inserts a new invoice.
func (r *Repository) Create(ctx context.Context, inv *domain.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, prospect_id, number, client_name, client_email, total_cents, notes,
			sent_at, cancelled_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if _, err := r.pool.Exec(ctx, query,
		inv.ID, inv.ProspectID, inv.Number, inv.ClientName, inv.ClientEmail,
		inv.TotalCents, inv.Notes, inv.SentAt, inv.CancelledAt, inv.CreatedAt, inv.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice with its payment rows, ledger applied. The
// invoice and its payments are fetched concurrently, the pool hands each
// query its own connection.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM invoices WHERE id = $1`

	var inv domain.Invoice
	var payments []domain.Payment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := r.pool.QueryRow(gctx, query, id).Scan(
			&inv.ID, &inv.ProspectID, &inv.Number, &inv.ClientName, &inv.ClientEmail,
			&inv.TotalCents, &inv.Notes, &inv.SentAt, &inv.CancelledAt, &inv.CreatedAt, &inv.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound(invoiceNotFoundMsg)
			}
			return fmt.Errorf("failed to get invoice: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		payments, err = r.GetPayments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inv.Payments = payments
	inv.Apply()
	return &inv, nil
}

// FindLatestForClient retrieves the most recent invoice addressed to the
// given client email, used to pre-match a document for a pipeline move.
func (r *Repository) FindLatestForClient(ctx context.Context, clientEmail string) (*domain.Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM invoices
		WHERE LOWER(client_email) = LOWER($1) AND cancelled_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`

	var inv domain.Invoice
	err := r.pool.QueryRow(ctx, query, clientEmail).Scan(
		&inv.ID, &inv.ProspectID, &inv.Number, &inv.ClientName, &inv.ClientEmail,
		&inv.TotalCents, &inv.Notes, &inv.SentAt, &inv.CancelledAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find invoice for client: %w", err)
	}
	inv.Apply()
	return &inv, nil
}

// List retrieves invoices with their aggregated paid totals, newest first.
// The ledger is derived from the aggregate so listing does not load every
// payment row.
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

	if params.ProspectID != nil {
		where += fmt.Sprintf(" AND i.prospect_id = $%d", argPos)
		args = append(args, *params.ProspectID)
		argPos++
	}
	if params.Search != "" {
		where += fmt.Sprintf(" AND (i.number ILIKE $%d OR i.client_name ILIKE $%d OR i.client_email ILIKE $%d)", argPos, argPos, argPos)
		args = append(args, "%"+params.Search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices i "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT i.id, i.prospect_id, i.number, i.client_name, i.client_email,
			i.total_cents, i.notes, i.sent_at, i.cancelled_at, i.created_at, i.updated_at,
			COALESCE(SUM(p.amount_cents), 0) AS paid_cents
		FROM invoices i
		LEFT JOIN invoice_payments p ON p.invoice_id = i.id
		%s
		GROUP BY i.id
		ORDER BY i.created_at DESC
		LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var items []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		var paid int64
		if err := rows.Scan(
			&inv.ID, &inv.ProspectID, &inv.Number, &inv.ClientName, &inv.ClientEmail,
			&inv.TotalCents, &inv.Notes, &inv.SentAt, &inv.CancelledAt, &inv.CreatedAt, &inv.UpdatedAt,
			&paid,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		ledger := domain.Derive(inv.TotalCents, []domain.Payment{{AmountCents: paid}}, inv.IsCancelled(), inv.IsSent())
		inv.PaidCents = ledger.PaidCents
		inv.RemainingCents = ledger.RemainingCents
		inv.Status = ledger.Status
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
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

// Update modifies an invoice's editable fields.
func (r *Repository) Update(ctx context.Context, inv *domain.Invoice) error {
	query := `
		UPDATE invoices SET
			client_name = $2, client_email = $3, total_cents = $4, notes = $5,
			sent_at = $6, cancelled_at = $7, updated_at = $8
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		inv.ID, inv.ClientName, inv.ClientEmail, inv.TotalCents, inv.Notes,
		inv.SentAt, inv.CancelledAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(invoiceNotFoundMsg)
	}
	return nil
}

// Delete removes an invoice and, via cascade, its payment rows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(invoiceNotFoundMsg)
	}
	return nil
}

// AddPayment inserts a payment row.
func (r *Repository) AddPayment(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO invoice_payments (id, invoice_id, amount_cents, method, reference, notes, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.pool.Exec(ctx, query,
		p.ID, p.InvoiceID, p.AmountCents, p.Method, p.Reference, p.Notes, p.PaidAt, p.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// RemovePayment deletes a payment row, returning the removed payment.
func (r *Repository) RemovePayment(ctx context.Context, invoiceID, paymentID uuid.UUID) (*domain.Payment, error) {
	query := `
		DELETE FROM invoice_payments
		WHERE id = $1 AND invoice_id = $2
		RETURNING id, invoice_id, amount_cents, method, reference, notes, paid_at, created_at`

	var p domain.Payment
	err := r.pool.QueryRow(ctx, query, paymentID, invoiceID).Scan(
		&p.ID, &p.InvoiceID, &p.AmountCents, &p.Method, &p.Reference, &p.Notes, &p.PaidAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(paymentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to delete payment: %w", err)
	}
	return &p, nil
}

// GetPayments retrieves all payments for an invoice, oldest first.
func (r *Repository) GetPayments(ctx context.Context, invoiceID uuid.UUID) ([]domain.Payment, error) {
	query := `
		SELECT id, invoice_id, amount_cents, method, reference, notes, paid_at, created_at
		FROM invoice_payments
		WHERE invoice_id = $1
		ORDER BY paid_at ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.AmountCents, &p.Method, &p.Reference, &p.Notes, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}
