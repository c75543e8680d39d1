package transport

import (
	"time"

	"chantier_crm_backend/internal/documents/repository"

	"github.com/google/uuid"
)

// DocumentResponse is the API representation of a stored document
type DocumentResponse struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Number      string    `json:"number"`
	ClientEmail string    `json:"clientEmail"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	TotalCents  *int64    `json:"totalCents,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DownloadURLResponse carries a presigned download link
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	FileName  string    `json:"fileName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ToDocumentResponse maps a repository document to its API representation
func ToDocumentResponse(d repository.Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		Kind:        d.Kind,
		Number:      d.Number,
		ClientEmail: d.ClientEmail,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		TotalCents:  d.TotalCents,
		CreatedAt:   d.CreatedAt,
	}
}

// ToDocumentResponses maps a slice of repository documents
func ToDocumentResponses(items []repository.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(items))
	for _, d := range items {
		out = append(out, ToDocumentResponse(d))
	}
	return out
}
