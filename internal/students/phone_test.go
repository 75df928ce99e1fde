package students

import "testing"

func TestPhoneKeyFromChatID(t *testing.T) {
	tests := []struct {
		chatID string
		want   string
	}{
		{"5511999999999@s.whatsapp.net", "5511999999999"},
		{"5511999999999:12@s.whatsapp.net", "5511999999999"},
		{"+55 (11) 99999-9999", "5511999999999"},
		{"11999999999", "11999999999"},
		{"abc@lid", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := PhoneKeyFromChatID(tt.chatID); got != tt.want {
			t.Errorf("PhoneKeyFromChatID(%q) = %q, want %q", tt.chatID, got, tt.want)
		}
	}
}

func TestSamePhone(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical digits", "5511999999999", "5511999999999", true},
		{"formatted vs raw", "+55 11 99999-9999", "5511999999999", true},
		{"with and without country code", "5511999999999", "11999999999", true},
		{"different subscribers", "5511999999999", "5511888888888", false},
		{"short numbers require exact match", "99999999", "1199999999", false},
		{"empty never matches", "", "5511999999999", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SamePhone(tt.a, tt.b); got != tt.want {
				t.Errorf("SamePhone(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLookupCandidates(t *testing.T) {
	got := lookupCandidates("5511999999999")
	if len(got) != 2 || got[0] != "5511999999999" || got[1] != "11999999999" {
		t.Errorf("lookupCandidates(with prefix) = %v", got)
	}

	got = lookupCandidates("11999999999")
	if len(got) != 2 || got[0] != "11999999999" || got[1] != "5511999999999" {
		t.Errorf("lookupCandidates(without prefix) = %v", got)
	}

	// Too short to guess a country-code variant.
	got = lookupCandidates("99999999")
	if len(got) != 1 {
		t.Errorf("lookupCandidates(short) = %v, want only exact", got)
	}
}

func TestSuffixKey(t *testing.T) {
	if got := suffixKey("5511999999999"); got != "199999999" {
		t.Errorf("suffixKey() = %q, want last 9 digits", got)
	}
	if got := suffixKey("99999999"); got != "99999999" {
		t.Errorf("suffixKey(8 digits) = %q, want whole string", got)
	}
	if got := suffixKey("1234567"); got != "" {
		t.Errorf("suffixKey(short) = %q, want empty", got)
	}
}
