package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseIdentity checks that parsing never panics and that accepted
// identities round-trip unchanged.
func FuzzParseIdentity(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("usr_2f9KxQ")
	f.Add("'; DROP TABLE profiles;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseIdentity(input)
		if err != nil {
			return
		}
		if id.String() != input {
			t.Errorf("identity changed during parse: %q -> %q", input, id)
		}
		if id.IsZero() {
			t.Error("accepted an empty identity")
		}
		if !utf8.ValidString(input) {
			return
		}
		if _, err := ParseIdentity(id.String()); err != nil {
			t.Errorf("accepted identity failed round-trip: %v", err)
		}
	})
}
