package envelope

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sprinq/cecs378project-sub000/cryptobox"
	"github.com/Sprinq/cecs378project-sub000/internal/convkey"
	"github.com/Sprinq/cecs378project-sub000/internal/observability/metrics"
)

// KeyResolver yields the symmetric key for a stored conversation id.
// *convkey.Deriver is the production implementation.
type KeyResolver interface {
	ResolveID(conversationID string) (cryptobox.Key, error)
}

// Policy seals outgoing content under the current scheme and decodes stored
// rows of any supported vintage.
type Policy struct {
	crypto  cryptobox.Provider
	resolve KeyResolver
}

func NewPolicy(crypto cryptobox.Provider, resolver KeyResolver) *Policy {
	return &Policy{crypto: crypto, resolve: resolver}
}

// Seal encrypts plaintext for the conversation and returns the content
// columns to persist. Every sealed row carries the current scheme version;
// older versions are only ever read.
func (p *Policy) Seal(conversationID, plaintext string) (Fields, error) {
	key, err := p.resolve.ResolveID(conversationID)
	if err != nil {
		return Fields{}, fmt.Errorf("envelope: resolve key: %w", err)
	}
	scheme := cryptobox.CurrentScheme
	ciphertext, nonce, err := p.crypto.Encrypt(scheme, key, []byte(plaintext))
	if err != nil {
		return Fields{}, fmt.Errorf("envelope: seal: %w", err)
	}
	metrics.EncryptOperationsTotal.WithLabelValues(scheme.String()).Inc()
	return Fields{
		EncryptedContent:  base64.StdEncoding.EncodeToString(ciphertext),
		IV:                base64.StdEncoding.EncodeToString(nonce),
		IsEncrypted:       true,
		EncryptionVersion: scheme.Version(),
	}, nil
}

// PlaintextFields renders content as a legacy unencrypted row. The migration
// path reads such rows; nothing in this subsystem writes new ones except
// tooling that needs to fabricate legacy state.
func PlaintextFields(content string) Fields {
	return Fields{
		EncryptedContent: content,
		IV:               SentinelIV,
		IsEncrypted:      false,
	}
}

// DecodeForDisplay turns a stored row into display text. Plaintext rows pass
// through untouched with no cipher involved. Encrypted rows decode under the
// scheme their version names. Every failure, from an unknown version to a
// failed authentication tag, yields the placeholder; the caller never sees
// an error and nothing logs ciphertext or key material.
func (p *Policy) DecodeForDisplay(conversationID string, f Fields) string {
	c := Classify(f)
	switch c.Class {
	case ClassPlaintext:
		return f.EncryptedContent
	case ClassUnknownVersion:
		slog.Warn("row carries unknown encryption version",
			"conversation_id", conversationID,
			"version", f.EncryptionVersion,
		)
		metrics.DecryptOperationsTotal.WithLabelValues("unknown", "unknown_version").Inc()
		return Placeholder
	}

	key, err := p.resolve.ResolveID(conversationID)
	if err != nil {
		if errors.Is(err, convkey.ErrInvalidConversationScope) {
			slog.Error("unresolvable conversation scope on stored row",
				"conversation_id", conversationID, "error", err)
		} else {
			slog.Warn("conversation key resolution failed",
				"conversation_id", conversationID, "error", err)
		}
		metrics.DecryptOperationsTotal.WithLabelValues(c.Scheme.String(), "no_key").Inc()
		return Placeholder
	}

	ciphertext, err := base64.StdEncoding.DecodeString(f.EncryptedContent)
	if err != nil {
		metrics.DecryptOperationsTotal.WithLabelValues(c.Scheme.String(), "corrupt").Inc()
		return Placeholder
	}
	nonce, err := base64.StdEncoding.DecodeString(f.IV)
	if err != nil {
		metrics.DecryptOperationsTotal.WithLabelValues(c.Scheme.String(), "corrupt").Inc()
		return Placeholder
	}

	plaintext, err := p.crypto.Decrypt(c.Scheme, key, ciphertext, nonce)
	if err != nil {
		slog.Debug("message undecryptable on this device",
			"conversation_id", conversationID, "scheme", c.Scheme.String())
		metrics.DecryptOperationsTotal.WithLabelValues(c.Scheme.String(), "failed").Inc()
		return Placeholder
	}
	metrics.DecryptOperationsTotal.WithLabelValues(c.Scheme.String(), "ok").Inc()
	return string(plaintext)
}

// Open is the strict variant of DecodeForDisplay used where a failure must
// stop the caller, such as re-encrypting during migration. It returns the
// plaintext or the underlying error.
func (p *Policy) Open(conversationID string, f Fields) (string, error) {
	c := Classify(f)
	switch c.Class {
	case ClassPlaintext:
		return f.EncryptedContent, nil
	case ClassUnknownVersion:
		return "", fmt.Errorf("%w: version %d", cryptobox.ErrUnknownScheme, f.EncryptionVersion)
	}

	key, err := p.resolve.ResolveID(conversationID)
	if err != nil {
		return "", err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(f.EncryptedContent)
	if err != nil {
		return "", cryptobox.ErrDecryptionFailed
	}
	nonce, err := base64.StdEncoding.DecodeString(f.IV)
	if err != nil {
		return "", cryptobox.ErrDecryptionFailed
	}
	plaintext, err := p.crypto.Decrypt(c.Scheme, key, ciphertext, nonce)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
