// Package masking redacts payment references before they reach audit metadata.
package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are payment detail fields that only keep their last four characters.
var sensitiveKeys = map[string]bool{
	"reference_number": true,
	"cheque_number":    true,
	"account_number":   true,
}

// MaskReference keeps the last four characters of value.
func MaskReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskPaymentDetails returns a copy of details with sensitive fields masked.
func MaskPaymentDetails(details map[string]string) map[string]any {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]any, len(details))
	for key, value := range details {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if sensitiveKeys[key] {
			out[key] = MaskReference(value)
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
