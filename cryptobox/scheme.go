package cryptobox

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"
)

// Scheme identifies one authenticated-encryption algorithm. The integer value
// is the encryption_version stored alongside every encrypted row, so values
// are append-only: existing ones never change meaning.
type Scheme int

const (
	// SchemeChaCha20Poly1305 is the oldest supported scheme. Rows whose
	// version column is absent or zero are read as this scheme.
	SchemeChaCha20Poly1305 Scheme = 1

	// SchemeAESGCM is the current scheme. Every newly written row uses it.
	SchemeAESGCM Scheme = 2
)

// CurrentScheme is the scheme used for all new encryptions.
const CurrentScheme = SchemeAESGCM

// SchemeForVersion maps a stored version column to its scheme. Version zero
// covers rows written before the column existed.
func SchemeForVersion(version int) (Scheme, bool) {
	switch version {
	case 0, int(SchemeChaCha20Poly1305):
		return SchemeChaCha20Poly1305, true
	case int(SchemeAESGCM):
		return SchemeAESGCM, true
	default:
		return 0, false
	}
}

// Version returns the integer written to the encryption_version column.
func (s Scheme) Version() int { return int(s) }

// Valid reports whether s is a member of the supported set.
func (s Scheme) Valid() bool {
	return s == SchemeChaCha20Poly1305 || s == SchemeAESGCM
}

func (s Scheme) String() string {
	switch s {
	case SchemeChaCha20Poly1305:
		return "chacha20poly1305"
	case SchemeAESGCM:
		return "aes-256-gcm"
	default:
		return "unknown"
	}
}

// NonceSize returns the nonce length in bytes the scheme requires.
func (s Scheme) NonceSize() int {
	switch s {
	case SchemeChaCha20Poly1305:
		return chacha20poly1305.NonceSize
	case SchemeAESGCM:
		return 12
	default:
		return 0
	}
}

func (s Scheme) newAEAD(key Key) (cipher.AEAD, error) {
	switch s {
	case SchemeChaCha20Poly1305:
		return chacha20poly1305.New(key[:])
	case SchemeAESGCM:
		block, err := aes.NewCipher(key[:])
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	default:
		return nil, ErrUnknownScheme
	}
}
