package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type bodyEmailData struct {
	baseEmailData
	// Body is user-authored HTML, already approved in the confirmation
	// dialog. It is injected unescaped so the message arrives verbatim.
	Body template.HTML
}

type paymentReceiptEmailData struct {
	baseEmailData
	ClientName         string
	InvoiceNumber      string
	AmountFormatted    string
	RemainingFormatted string
	FullyPaid          bool
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyEUR(cents int64) string {
	return fmt.Sprintf("%d,%02d €", cents/100, cents%100)
}
