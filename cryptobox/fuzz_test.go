package cryptobox

import (
	"bytes"
	"errors"
	"testing"
)

func FuzzDecryptNeverPanics(f *testing.F) {
	f.Add([]byte("ciphertext"), []byte("nonce4567890"), byte(2))
	f.Add([]byte{}, []byte{}, byte(1))
	f.Add(bytes.Repeat([]byte{0xff}, 64), bytes.Repeat([]byte{0x00}, 12), byte(0))
	f.Fuzz(func(t *testing.T, ciphertext, nonce []byte, version byte) {
		scheme, ok := SchemeForVersion(int(version))
		if !ok {
			return
		}
		plaintext, err := Decrypt(scheme, testKey(0x42), ciphertext, nonce)
		if err != nil {
			if !errors.Is(err, ErrDecryptionFailed) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			if plaintext != nil {
				t.Fatalf("plaintext returned alongside error")
			}
		}
	})
}

func FuzzEncryptRoundTrip(f *testing.F) {
	f.Add([]byte("hello"), byte(2))
	f.Add([]byte{}, byte(1))
	f.Fuzz(func(t *testing.T, plaintext []byte, version byte) {
		scheme, ok := SchemeForVersion(int(version))
		if !ok {
			return
		}
		key := testKey(0x17)
		ct, nonce, err := Encrypt(scheme, key, plaintext)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		got, err := Decrypt(scheme, key, ct, nonce)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
		}
	})
}
