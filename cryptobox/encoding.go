package cryptobox

import (
	"encoding/base64"
	"fmt"
)

// EncodeKey renders a symmetric key as base64 for device-local storage.
func EncodeKey(k Key) string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// DecodeKey parses a base64 symmetric key produced by EncodeKey.
func DecodeKey(in string) (Key, error) {
	data, err := decodeFixed(in, KeySize)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	var key Key
	copy(key[:], data)
	return key, nil
}

// EncodePublicKey renders identity public key bytes as base64 text, the form
// stored in the public-key directory.
func EncodePublicKey(publicBytes []byte) string {
	return base64.StdEncoding.EncodeToString(publicBytes)
}

// DecodePublicKey parses a directory entry back into raw public key bytes.
func DecodePublicKey(in string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return data, nil
}

func decodeFixed(in string, size int) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(in)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, fmt.Errorf("unexpected length %d, want %d", len(data), size)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}
