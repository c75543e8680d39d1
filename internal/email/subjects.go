package email

const (
	subjectPaymentReceiptFmt = "Reçu de paiement — facture %s"
)
