// Package service provides business logic for stored quote and invoice
// documents.
package service

import (
	"context"
	"io"
	"strings"
	"time"

	"chantier_crm_backend/internal/adapters/storage"
	"chantier_crm_backend/internal/documents/repository"
	"chantier_crm_backend/internal/documents/transport"
	"chantier_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// KindQuote and KindInvoice are the two document kinds the pipeline knows.
const (
	KindQuote   = "quote"
	KindInvoice = "invoice"
)

// UploadParams carries a file upload with its matching attributes.
type UploadParams struct {
	Kind        string
	Number      string
	ClientEmail string
	FileName    string
	ContentType string
	SizeBytes   int64
	TotalCents  *int64
	Content     io.Reader
}

// Service provides business logic for documents
type Service struct {
	repo    *repository.Repository
	storage storage.StorageService
	bucket  string
}

// New creates a new documents service
func New(repo *repository.Repository, storageSvc storage.StorageService, bucket string) *Service {
	return &Service{repo: repo, storage: storageSvc, bucket: bucket}
}

// Upload stores the file in object storage and records its metadata.
func (s *Service) Upload(ctx context.Context, params UploadParams) (*transport.DocumentResponse, error) {
	if params.Kind != KindQuote && params.Kind != KindInvoice {
		return nil, apperr.Validation("le type de document doit être quote ou invoice")
	}
	if strings.TrimSpace(params.ClientEmail) == "" {
		return nil, apperr.Validation("l'adresse e-mail du client est requise")
	}
	if s.storage == nil {
		return nil, apperr.Unavailable("le stockage de documents n'est pas configuré")
	}

	folder := params.Kind + "s"
	objectKey, err := s.storage.UploadFile(ctx, s.bucket, folder, params.FileName, params.ContentType, params.Content, params.SizeBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "le dépôt du fichier a échoué", err)
	}

	doc := repository.Document{
		ID:          uuid.New(),
		Kind:        params.Kind,
		Number:      strings.TrimSpace(params.Number),
		ClientEmail: strings.ToLower(strings.TrimSpace(params.ClientEmail)),
		FileName:    params.FileName,
		ObjectKey:   objectKey,
		ContentType: params.ContentType,
		SizeBytes:   params.SizeBytes,
		TotalCents:  params.TotalCents,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, &doc); err != nil {
		// Metadata write failed; remove the orphaned object.
		_ = s.storage.DeleteObject(ctx, s.bucket, objectKey)
		return nil, err
	}

	resp := transport.ToDocumentResponse(doc)
	return &resp, nil
}

// GetByID retrieves document metadata.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.DocumentResponse, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := transport.ToDocumentResponse(*doc)
	return &resp, nil
}

// GetRaw retrieves the full metadata row, for adapters that need the object key.
func (s *Service) GetRaw(ctx context.Context, id uuid.UUID) (*repository.Document, error) {
	return s.repo.GetByID(ctx, id)
}

// FindCandidate returns the most recent document of the given kind for the
// client email, or nil when none matches.
func (s *Service) FindCandidate(ctx context.Context, kind, clientEmail string) (*repository.Document, error) {
	return s.repo.FindCandidate(ctx, kind, clientEmail)
}

// List retrieves documents with optional filters.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]transport.DocumentResponse, error) {
	items, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return transport.ToDocumentResponses(items), nil
}

// DownloadURL produces a short-lived presigned link for the document.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID) (*transport.DownloadURLResponse, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, apperr.Unavailable("le stockage de documents n'est pas configuré")
	}

	presigned, err := s.storage.GenerateDownloadURL(ctx, s.bucket, doc.ObjectKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "la génération du lien de téléchargement a échoué", err)
	}
	return &transport.DownloadURLResponse{
		URL:       presigned.URL,
		FileName:  doc.FileName,
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

// Download streams the document bytes, for email attachment building.
// The caller is responsible for closing the returned reader.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *repository.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.storage == nil {
		return nil, nil, apperr.Unavailable("le stockage de documents n'est pas configuré")
	}

	reader, err := s.storage.DownloadFile(ctx, s.bucket, doc.ObjectKey)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindUnavailable, "le téléchargement du document a échoué", err)
	}
	return reader, doc, nil
}

// Delete removes the metadata row and the stored object.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if s.storage != nil {
		_ = s.storage.DeleteObject(ctx, s.bucket, doc.ObjectKey)
	}
	return nil
}
