package phonestep

import "strings"

// NormalizePhone reduces a phone number to bare national digits: strip
// everything non-numeric, then drop a leading US country code.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		return digits[1:]
	}
	return digits
}
