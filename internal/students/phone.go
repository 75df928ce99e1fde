package students

import "strings"

// Brazilian country prefix. Inbound identifiers arrive with or without it
// depending on how the transport renders the account.
const countryPrefix = "55"

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneKeyFromChatID reduces a transport identifier such as
// "5511999999999:12@s.whatsapp.net" to its digit-only phone core. Everything
// after an '@' or ':' delimiter is transport metadata.
func PhoneKeyFromChatID(chatID string) string {
	id := chatID
	if i := strings.IndexByte(id, '@'); i >= 0 {
		id = id[:i]
	}
	if i := strings.IndexByte(id, ':'); i >= 0 {
		id = id[:i]
	}
	return DigitsOnly(id)
}

// SamePhone reports whether two identifiers denote the same underlying
// phone: digit-identical, or both at least 9 digits with equal last 9
// digits (the subscriber core, tolerant of DDI/DDD variation).
func SamePhone(a, b string) bool {
	da, db := DigitsOnly(a), DigitsOnly(b)
	if da == "" || db == "" {
		return false
	}
	if da == db {
		return true
	}
	if len(da) >= 9 && len(db) >= 9 {
		return da[len(da)-9:] == db[len(db)-9:]
	}
	return false
}

// lookupCandidates expands a digit key into the exact-match variants tried
// before falling back to a suffix match: as-is, without the country prefix,
// and with it prepended.
func lookupCandidates(digits string) []string {
	candidates := []string{digits}
	if strings.HasPrefix(digits, countryPrefix) && len(digits) > 10 {
		candidates = append(candidates, digits[len(countryPrefix):])
	}
	if !strings.HasPrefix(digits, countryPrefix) && len(digits) >= 10 {
		candidates = append(candidates, countryPrefix+digits)
	}
	return candidates
}

// suffixKey returns the last 9 digits used for the last-resort match, or ""
// when the number is too short to be meaningful.
func suffixKey(digits string) string {
	if len(digits) < 8 {
		return ""
	}
	if len(digits) <= 9 {
		return digits
	}
	return digits[len(digits)-9:]
}
