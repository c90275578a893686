package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Sprinq/cecs378project-sub000/internal/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return st
}

func TestDirectoryPublishGetDelete(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	if err := st.Directory().Publish(ctx, userID, "pk-one"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	entry, err := st.Directory().Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.PublicKey != "pk-one" {
		t.Fatalf("public key: got %q want %q", entry.PublicKey, "pk-one")
	}

	// Re-publishing upserts rather than failing on the primary key.
	if err := st.Directory().Publish(ctx, userID, "pk-two"); err != nil {
		t.Fatalf("republish: %v", err)
	}
	entry, err = st.Directory().Get(ctx, userID)
	if err != nil {
		t.Fatalf("get after republish: %v", err)
	}
	if entry.PublicKey != "pk-two" {
		t.Fatalf("public key after republish: got %q", entry.PublicKey)
	}

	if err := st.Directory().Delete(ctx, userID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Directory().Get(ctx, userID); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("after delete: got %v want ErrRecordNotFound", err)
	}
}

func TestMessageInsertFillsDefaults(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	msg := &store.Message{
		ConversationID:   "alice_bob",
		SenderID:         uuid.New(),
		EncryptedContent: "hello",
		IV:               "unencrypted",
	}
	if err := st.Messages().Insert(ctx, msg); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if msg.ID == uuid.Nil {
		t.Fatalf("insert left a nil id")
	}
	if msg.CreatedAt.IsZero() || msg.UpdatedAt.IsZero() {
		t.Fatalf("insert left zero timestamps")
	}

	got, err := st.Messages().Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EncryptedContent != "hello" || got.IsEncrypted {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestListPlaintextOrdersAndLimits(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		msg := &store.Message{
			ConversationID:   "alice_bob",
			SenderID:         uuid.New(),
			EncryptedContent: fmt.Sprintf("plain-%d", i),
			IV:               "unencrypted",
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:        base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.Messages().Insert(ctx, msg); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, msg.ID)
	}
	encrypted := &store.Message{
		ConversationID:    "alice_bob",
		SenderID:          uuid.New(),
		EncryptedContent:  "ciphertext",
		IV:                "bm9uY2U=",
		IsEncrypted:       true,
		EncryptionVersion: 2,
	}
	if err := st.Messages().Insert(ctx, encrypted); err != nil {
		t.Fatalf("insert encrypted: %v", err)
	}

	rows, err := st.Messages().ListPlaintext(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("list length: got %d want 2", len(rows))
	}
	if rows[0].ID != ids[0] || rows[1].ID != ids[1] {
		t.Fatalf("list order: got %v, %v", rows[0].ID, rows[1].ID)
	}
}

func TestReplaceEnvelopeOptimisticConcurrency(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	msg := &store.Message{
		ConversationID:   "alice_bob",
		SenderID:         uuid.New(),
		EncryptedContent: "original",
		IV:               "unencrypted",
	}
	if err := st.Messages().Insert(ctx, msg); err != nil {
		t.Fatalf("insert: %v", err)
	}

	env := store.Envelope{
		EncryptedContent:  "Y2lwaGVy",
		IV:                "bm9uY2U=",
		IsEncrypted:       true,
		EncryptionVersion: 2,
	}
	at := msg.UpdatedAt.Add(time.Second)
	if err := st.Messages().ReplaceEnvelope(ctx, msg.ID, msg.UpdatedAt, env, at); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := st.Messages().Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsEncrypted || got.EncryptedContent != "Y2lwaGVy" || got.EncryptionVersion != 2 {
		t.Fatalf("row not replaced: %+v", got)
	}

	// The first read's timestamp is stale now; a second writer using it loses.
	if err := st.Messages().ReplaceEnvelope(ctx, msg.ID, msg.UpdatedAt, env, at.Add(time.Second)); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale replace: got %v want ErrConflict", err)
	}
}

func TestEncryptInPlaceSkipsEncryptedRows(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	msg := &store.Message{
		ConversationID:   "alice_bob",
		SenderID:         uuid.New(),
		EncryptedContent: "legacy plaintext",
		IV:               "unencrypted",
	}
	if err := st.Messages().Insert(ctx, msg); err != nil {
		t.Fatalf("insert: %v", err)
	}

	env := store.Envelope{
		EncryptedContent:  "Y2lwaGVy",
		IV:                "bm9uY2U=",
		IsEncrypted:       true,
		EncryptionVersion: 2,
	}
	at := msg.UpdatedAt.Add(time.Second)
	if err := st.Messages().EncryptInPlace(ctx, msg.ID, msg.UpdatedAt, env, at); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// Even with the current timestamp, an already-encrypted row is refused.
	if err := st.Messages().EncryptInPlace(ctx, msg.ID, at, env, at.Add(time.Second)); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second pass: got %v want ErrConflict", err)
	}
}

func TestSoftDeleteHidesRowEverywhere(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	msg := &store.Message{
		ConversationID:   "alice_bob",
		SenderID:         uuid.New(),
		EncryptedContent: "legacy plaintext",
		IV:               "unencrypted",
	}
	if err := st.Messages().Insert(ctx, msg); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := st.Messages().SoftDelete(ctx, msg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := st.Messages().Get(ctx, msg.ID); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("get after delete: got %v want ErrRecordNotFound", err)
	}
	rows, err := st.Messages().ListPlaintext(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("deleted row still listed for migration: %d rows", len(rows))
	}
	encrypted, plaintext, err := st.Messages().EncryptionBreakdown(ctx)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if encrypted != 0 || plaintext != 0 {
		t.Fatalf("deleted row still counted: (%d, %d)", encrypted, plaintext)
	}

	if err := st.Messages().SoftDelete(ctx, msg.ID); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("second delete: got %v want ErrRecordNotFound", err)
	}
}

func TestEncryptionBreakdown(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := st.Messages().Insert(ctx, &store.Message{
			ConversationID:   "alice_bob",
			SenderID:         uuid.New(),
			EncryptedContent: "plain",
			IV:               "unencrypted",
		}); err != nil {
			t.Fatalf("insert plaintext: %v", err)
		}
	}
	if err := st.Messages().Insert(ctx, &store.Message{
		ConversationID:    "alice_bob",
		SenderID:          uuid.New(),
		EncryptedContent:  "cipher",
		IV:                "bm9uY2U=",
		IsEncrypted:       true,
		EncryptionVersion: 2,
	}); err != nil {
		t.Fatalf("insert encrypted: %v", err)
	}

	encrypted, plaintext, err := st.Messages().EncryptionBreakdown(ctx)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if encrypted != 1 || plaintext != 3 {
		t.Fatalf("breakdown: got (%d, %d) want (1, 3)", encrypted, plaintext)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	sentinel := errors.New("abort")
	err := st.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Directory().Publish(ctx, userID, "pk"); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v want sentinel", err)
	}
	if _, err := st.Directory().Get(ctx, userID); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("publish survived rollback: %v", err)
	}
}
