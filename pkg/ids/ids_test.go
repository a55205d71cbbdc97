package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormat(t *testing.T) {
	id := Invoice()
	assert.True(t, strings.HasPrefix(id, PrefixInvoice+"-"))
	assert.Len(t, strings.TrimPrefix(id, PrefixInvoice+"-"), 32)
	assert.Equal(t, strings.ToUpper(id), id)
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		ref := Donation()
		_, dup := seen[ref]
		assert.False(t, dup)
		seen[ref] = struct{}{}
	}
}

func TestInvoicePaymentKeepsInvoiceNumber(t *testing.T) {
	a := InvoicePayment("BIPS-INV-ABC")
	b := InvoicePayment("BIPS-INV-ABC")
	assert.True(t, strings.HasPrefix(a, "BIPS-INV-ABC-"))
	assert.NotEqual(t, a, b)
}
