package envelope

import (
	"github.com/Sprinq/cecs378project-sub000/cryptobox"
)

const (
	// SentinelIV marks rows whose content column holds literal plaintext.
	SentinelIV = "unencrypted"

	// Placeholder is rendered for rows this device cannot decrypt. It is
	// distinct from any real content so an undecryptable message is never
	// mistaken for an empty one.
	Placeholder = "[unable to decrypt message]"
)

// Fields are the content columns this subsystem reads and writes on a
// message row.
type Fields struct {
	EncryptedContent  string
	IV                string
	IsEncrypted       bool
	EncryptionVersion int
}

type Class int

const (
	ClassPlaintext Class = iota
	ClassEncrypted
	ClassUnknownVersion
)

func (c Class) String() string {
	switch c {
	case ClassPlaintext:
		return "plaintext"
	case ClassEncrypted:
		return "encrypted"
	default:
		return "unknown-version"
	}
}

// Classification is the read-path dispatch decision for one row.
type Classification struct {
	Class  Class
	Scheme cryptobox.Scheme
}

// Classify inspects a row's flag and version columns. Scheme is set only for
// ClassEncrypted.
func Classify(f Fields) Classification {
	if !f.IsEncrypted {
		return Classification{Class: ClassPlaintext}
	}
	scheme, ok := cryptobox.SchemeForVersion(f.EncryptionVersion)
	if !ok {
		return Classification{Class: ClassUnknownVersion}
	}
	return Classification{Class: ClassEncrypted, Scheme: scheme}
}
