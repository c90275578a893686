package keyring

import "errors"

// ErrNotFound is returned when no private key is stored for a user on this
// device. Implementations of the identity key store contract must return an
// error satisfying errors.Is with this sentinel for the missing case.
var ErrNotFound = errors.New("keyring: key not found")
