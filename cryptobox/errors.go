package cryptobox

import "errors"

var (
	ErrDecryptionFailed = errors.New("cryptobox: message authentication failed")
	ErrUnknownScheme    = errors.New("cryptobox: unknown encryption scheme")
	ErrInvalidKey       = errors.New("cryptobox: invalid key material")
)
