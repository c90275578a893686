package cryptobox

// KeySize is the symmetric key length in bytes. Both supported schemes take
// 256-bit keys.
const KeySize = 32

// Key is one conversation's symmetric key. It lives in memory for the session
// and is never written to shared storage.
type Key [KeySize]byte

// Encrypt seals plaintext under key with a fresh random nonce. The nonce is
// generated per call and must never be reused with the same key; it is
// returned alongside the ciphertext so the caller can store both.
func Encrypt(scheme Scheme, key Key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := scheme.newAEAD(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, aead.NonceSize())
	if err := readRandom(nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext with the given key and nonce. A wrong key, a
// corrupted ciphertext, a corrupted nonce, and a tampered message are
// indistinguishable here: all return ErrDecryptionFailed and no plaintext.
func Decrypt(scheme Scheme, key Key, ciphertext, nonce []byte) ([]byte, error) {
	aead, err := scheme.newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
