// Package ids generates external identifiers for invoices, batches, students and payments.
// Every identifier carries 122 bits of randomness from a version 4 UUID so collisions are not a practical concern.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes.
const (
	PrefixInvoice  = "BIPS-INV"
	PrefixBatch    = "BIPS-BATCH"
	PrefixStudent  = "BIPS-STU"
	PrefixDonation = "DON"
	PrefixPayment  = "PAY"
)

// New returns prefix-<32 uppercase hex characters>.
func New(prefix string) string {
	return prefix + "-" + token()
}

// Invoice returns a new invoice number.
func Invoice() string { return New(PrefixInvoice) }

// Batch returns a new batch number.
func Batch() string { return New(PrefixBatch) }

// Student returns a new external student code.
func Student() string { return New(PrefixStudent) }

// Donation returns a new donation payment reference.
func Donation() string { return New(PrefixDonation) }

// Payment returns a new payment history id.
func Payment() string { return New(PrefixPayment) }

// InvoicePayment derives a gateway reference from an invoice number; each call yields a fresh reference.
func InvoicePayment(invoiceNumber string) string {
	return invoiceNumber + "-" + token()[:12]
}

func token() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
