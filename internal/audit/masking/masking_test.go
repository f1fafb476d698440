package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskReference(t *testing.T) {
	assert.Equal(t, "", MaskReference("  "))
	assert.Equal(t, "****", MaskReference("1234"))
	assert.Equal(t, "****7890", MaskReference("POS-1234567890"))
}

func TestMaskPaymentDetails(t *testing.T) {
	got := MaskPaymentDetails(map[string]string{
		"reference_number": "TRX-000123456",
		"bank_name":        "Access",
		"":                 "ignored",
	})
	assert.Equal(t, map[string]any{
		"reference_number": "****3456",
		"bank_name":        "Access",
	}, got)
	assert.Nil(t, MaskPaymentDetails(nil))
}
