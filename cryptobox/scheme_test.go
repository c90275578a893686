package cryptobox

import "testing"

func TestSchemeForVersion(t *testing.T) {
	cases := []struct {
		version int
		want    Scheme
		ok      bool
	}{
		{0, SchemeChaCha20Poly1305, true},
		{1, SchemeChaCha20Poly1305, true},
		{2, SchemeAESGCM, true},
		{3, 0, false},
		{-1, 0, false},
	}
	for _, tc := range cases {
		got, ok := SchemeForVersion(tc.version)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("version %d: got (%v, %v) want (%v, %v)", tc.version, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCurrentSchemeIsHighestVersion(t *testing.T) {
	if !CurrentScheme.Valid() {
		t.Fatalf("current scheme not in supported set")
	}
	if CurrentScheme.Version() != 2 {
		t.Fatalf("current version: got %d want 2", CurrentScheme.Version())
	}
	for _, s := range []Scheme{SchemeChaCha20Poly1305, SchemeAESGCM} {
		if s.Version() > CurrentScheme.Version() {
			t.Fatalf("%s has a higher version than the current scheme", s)
		}
		if s.NonceSize() == 0 {
			t.Fatalf("%s reports zero nonce size", s)
		}
	}
	if Scheme(99).Valid() {
		t.Fatalf("unknown scheme reported valid")
	}
	if Scheme(99).String() != "unknown" {
		t.Fatalf("unknown scheme string: %s", Scheme(99))
	}
}
