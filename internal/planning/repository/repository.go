// Package repository provides Postgres persistence for planned site visits.
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

const visitNotFoundMsg = "visite introuvable"

// Visit is the database model for a planned site visit.
type Visit struct {
	ID         uuid.UUID  `db:"id"`
	ProspectID *uuid.UUID `db:"prospect_id"`
	Title      string     `db:"title"`
	Location   string     `db:"location"`
	Notes      *string    `db:"notes"`
	StartsAt   time.Time  `db:"starts_at"`
	EndsAt     time.Time  `db:"ends_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// Repository provides database operations for visits
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new planning repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const visitColumns = `
	id, prospect_id, title, location, notes, starts_at, ends_at, created_at, updated_at`

// Create inserts a new visit.
func (r *Repository) Create(ctx context.Context, v *Visit) error {
	query := `
		INSERT INTO planning_visits (
			id, prospect_id, title, location, notes, starts_at, ends_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := r.pool.Exec(ctx, query,
		v.ID, v.ProspectID, v.Title, v.Location, v.Notes, v.StartsAt, v.EndsAt, v.CreatedAt, v.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// GetByID retrieves a visit by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	query := `SELECT` + visitColumns + ` FROM planning_visits WHERE id = $1`

	var v Visit
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.ProspectID, &v.Title, &v.Location, &v.Notes,
		&v.StartsAt, &v.EndsAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(visitNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return &v, nil
}

// ListBetween retrieves visits intersecting the [from, to) window, ordered
// by start time. This backs the calendar views.
func (r *Repository) ListBetween(ctx context.Context, from, to time.Time) ([]Visit, error) {
	query := `SELECT` + visitColumns + ` FROM planning_visits
		WHERE starts_at < $2 AND ends_at > $1
		ORDER BY starts_at ASC`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var items []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(
			&v.ID, &v.ProspectID, &v.Title, &v.Location, &v.Notes,
			&v.StartsAt, &v.EndsAt, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visits: %w", err)
	}
	return items, nil
}

// CountOverlapping counts visits intersecting the [startsAt, endsAt) window,
// excluding the given visit id (uuid.Nil to exclude nothing). The planning
// belongs to a single crew, so any intersection is a clash.
func (r *Repository) CountOverlapping(ctx context.Context, startsAt, endsAt time.Time, excludeID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM planning_visits
		WHERE starts_at < $2 AND ends_at > $1 AND id <> $3`

	var count int
	if err := r.pool.QueryRow(ctx, query, startsAt, endsAt, excludeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count overlapping visits: %w", err)
	}
	return count, nil
}

// Update modifies a visit.
func (r *Repository) Update(ctx context.Context, v *Visit) error {
	query := `
		UPDATE planning_visits SET
			prospect_id = $2, title = $3, location = $4, notes = $5,
			starts_at = $6, ends_at = $7, updated_at = $8
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		v.ID, v.ProspectID, v.Title, v.Location, v.Notes, v.StartsAt, v.EndsAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(visitNotFoundMsg)
	}
	return nil
}

// Delete removes a visit.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM planning_visits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(visitNotFoundMsg)
	}
	return nil
}
