//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseResourceID tests that parsing never panics on arbitrary input
// and always returns either a canonical ID or an error.
func FuzzParseResourceID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE bills;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseResourceID(input)
		if err == nil {
			roundTrip, err2 := ParseResourceID(id)
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseRole ensures role parsing accepts only the closed set.
func FuzzParseRole(f *testing.F) {
	f.Add("citizen")
	f.Add("Department")
	f.Add("admin ")
	f.Add("superadmin")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		r, err := ParseRole(input)
		if err == nil && !r.IsValid() {
			t.Errorf("ParseRole(%q) returned invalid role %q", input, r)
		}
	})
}
