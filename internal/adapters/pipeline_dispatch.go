// Package adapters contains thin glue types that connect modules without
// letting their domains import each other.
package adapters

import (
	"context"
	"fmt"
	"io"

	docservice "chantier_crm_backend/internal/documents/service"
	"chantier_crm_backend/internal/email"
	"chantier_crm_backend/internal/prospects/engine"
)

// PipelineDispatcher implements the pipeline engine's sender ports on top of
// the email sender and the documents service. The engine treats a nil return
// as the dispatch acknowledgement, so errors are never swallowed here.
type PipelineDispatcher struct {
	sender    email.Sender
	documents *docservice.Service
}

// NewPipelineDispatcher creates the dispatch adapter for the pipeline engine.
func NewPipelineDispatcher(sender email.Sender, documents *docservice.Service) *PipelineDispatcher {
	return &PipelineDispatcher{sender: sender, documents: documents}
}

// SendDocumentEmail fetches the stored PDF and delivers it as an attachment.
// A document that cannot be read from storage fails the dispatch, and with
// it the stage move.
func (d *PipelineDispatcher) SendDocumentEmail(ctx context.Context, recipient string, doc engine.DocumentRef, subject, htmlBody string) error {
	reader, meta, err := d.documents.Download(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", doc.ID, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read document %s: %w", doc.ID, err)
	}

	return d.sender.SendDocumentEmail(ctx, recipient, subject, htmlBody, email.Attachment{
		FileName: meta.FileName,
		Content:  content,
	})
}

// SendReminderEmail delivers a follow-up reminder without attachments.
func (d *PipelineDispatcher) SendReminderEmail(ctx context.Context, recipient, subject, htmlBody string) error {
	return d.sender.SendReminderEmail(ctx, recipient, subject, htmlBody)
}

// Compile-time checks that the dispatcher satisfies the engine ports
var (
	_ engine.DocumentSender = (*PipelineDispatcher)(nil)
	_ engine.ReminderSender = (*PipelineDispatcher)(nil)
)
