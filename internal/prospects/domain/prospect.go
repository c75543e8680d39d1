package domain

import (
	"time"

	"github.com/google/uuid"
)

// Prospect is a potential or ongoing client tracked through the sales
// pipeline. A prospect occupies exactly one stage at a time; the stage is
// mutated only by committed transitions, never by a failed gated move.
type Prospect struct {
	ID              uuid.UUID
	Name            string
	Email           string
	Phone           string
	Company         *string
	Notes           *string
	Stage           StageID
	RelanceCount    int
	LinkedQuoteID   *uuid.UUID
	LinkedInvoiceID *uuid.UUID
	CreatedAt       time.Time
	LastActionAt    time.Time
}
