package adapters

import (
	"context"

	docrepo "chantier_crm_backend/internal/documents/repository"
	docservice "chantier_crm_backend/internal/documents/service"
	"chantier_crm_backend/internal/prospects/engine"
	prospectservice "chantier_crm_backend/internal/prospects/service"

	"github.com/google/uuid"
)

// DocumentFinder implements the prospects service's document lookup port on
// top of the documents service.
type DocumentFinder struct {
	documents *docservice.Service
}

// NewDocumentFinder creates the document lookup adapter.
func NewDocumentFinder(documents *docservice.Service) *DocumentFinder {
	return &DocumentFinder{documents: documents}
}

// GetDocument resolves an explicitly chosen document.
func (f *DocumentFinder) GetDocument(ctx context.Context, id uuid.UUID) (*prospectservice.DocumentInfo, error) {
	doc, err := f.documents.GetRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDocumentInfo(doc), nil
}

// FindCandidate pre-matches the most recent document of the given kind for
// the client email. Nil without error means nothing matched.
func (f *DocumentFinder) FindCandidate(ctx context.Context, kind, clientEmail string) (*prospectservice.DocumentInfo, error) {
	doc, err := f.documents.FindCandidate(ctx, kind, clientEmail)
	if err != nil || doc == nil {
		return nil, err
	}
	return toDocumentInfo(doc), nil
}

func toDocumentInfo(doc *docrepo.Document) *prospectservice.DocumentInfo {
	return &prospectservice.DocumentInfo{
		Ref: engine.DocumentRef{
			ID:       doc.ID,
			Kind:     doc.Kind,
			Number:   doc.Number,
			FileName: doc.FileName,
		},
		ClientEmail: doc.ClientEmail,
	}
}

// Compile-time check that the finder satisfies the prospects port
var _ prospectservice.DocumentFinder = (*DocumentFinder)(nil)
