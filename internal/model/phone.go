package model

import "strings"

// NormalizePhone canonicalises an Indonesian phone number so that
// "+62 812-3456", "62812-3456" and "0812 3456" compare equal.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "62") {
		digits = "0" + digits[2:]
	}
	return digits
}
