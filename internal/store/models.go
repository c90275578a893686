package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one chat message row. Content columns hold either ciphertext
// (base64, with its nonce in IV) or literal plaintext when IsEncrypted is
// false; EncryptionVersion names the scheme that produced the ciphertext.
type Message struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ConversationID    string         `gorm:"type:text;not null;index:idx_messages_conversation"`
	SenderID          uuid.UUID      `gorm:"type:uuid;not null"`
	EncryptedContent  string         `gorm:"type:text;not null"`
	IV                string         `gorm:"type:text;not null"`
	IsEncrypted       bool           `gorm:"not null;default:false"`
	EncryptionVersion int            `gorm:"not null;default:0"`
	CreatedAt         time.Time      `gorm:"not null"`
	UpdatedAt         time.Time      `gorm:"not null;autoUpdateTime:false"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// DirectoryEntry is one user's published identity public key.
type DirectoryEntry struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	PublicKey string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}

func (DirectoryEntry) TableName() string { return "public_keys" }
