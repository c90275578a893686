package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrRecordNotFound = errors.New("store: record not found")

	// ErrConflict reports an update that matched no row because another
	// writer changed it after it was read.
	ErrConflict = errors.New("store: concurrent update")
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(&Message{}, &DirectoryEntry{})
}

func (s *Store) Messages() *MessageStore    { return &MessageStore{db: s.DB} }
func (s *Store) Directory() *DirectoryStore { return &DirectoryStore{db: s.DB} }
