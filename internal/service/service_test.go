package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Sprinq/cecs378project-sub000/cryptobox"
	"github.com/Sprinq/cecs378project-sub000/internal/convkey"
	"github.com/Sprinq/cecs378project-sub000/internal/envelope"
	"github.com/Sprinq/cecs378project-sub000/internal/identity"
	"github.com/Sprinq/cecs378project-sub000/internal/keyring"
	"github.com/Sprinq/cecs378project-sub000/internal/store"
)

func setupService(t *testing.T) (*Service, *store.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	crypto := cryptobox.Std{}
	mgr := identity.NewManager(st.Directory(), keyring.NewMemory(), crypto)
	deriver := convkey.NewDeriver(crypto)
	policy := envelope.NewPolicy(crypto, deriver)
	return New(st, mgr, deriver, policy), st
}

func TestSendAndResolveBetweenParticipants(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()
	scope := convkey.DM(alice, bob)

	msg, err := svc.SendMessage(ctx, scope, alice, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !msg.IsEncrypted || msg.EncryptionVersion != cryptobox.CurrentScheme.Version() {
		t.Fatalf("row not sealed with current scheme: %+v", msg)
	}
	if msg.EncryptedContent == "hello" {
		t.Fatal("plaintext stored verbatim")
	}

	// Bob's side derives the same conversation key independently.
	if got := svc.ResolveIncoming(msg); got != "hello" {
		t.Fatalf("recipient resolved %q", got)
	}

	// A reader outside the conversation derives a different key and sees
	// the placeholder, never an error.
	foreign := *msg
	foreign.ConversationID = convkey.Channel(uuid.New()).ChannelID.String()
	if got := svc.ResolveIncoming(&foreign); got != envelope.Placeholder {
		t.Fatalf("outsider resolved %q", got)
	}
}

func TestResolveIncomingPassesThroughLegacyRows(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	msg := &store.Message{
		ConversationID:   "general",
		SenderID:         uuid.New(),
		EncryptedContent: "old plaintext",
		IV:               envelope.SentinelIV,
		IsEncrypted:      false,
	}
	if err := st.Messages().Insert(ctx, msg); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := svc.ResolveIncoming(msg); got != "old plaintext" {
		t.Fatalf("legacy row resolved %q", got)
	}
}

func TestPrepareOutgoingRejectsMalformedScope(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.PrepareOutgoing(convkey.Scope{Participants: []uuid.UUID{uuid.New()}}, "hi")
	if !errors.Is(err, convkey.ErrInvalidConversationScope) {
		t.Fatalf("err = %v, want ErrInvalidConversationScope", err)
	}
}

func TestEditMessageReplacesContent(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	scope := convkey.DM(uuid.New(), uuid.New())
	msg, err := svc.SendMessage(ctx, scope, uuid.New(), "draft")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	updated, err := svc.EditMessage(ctx, msg, "final")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := svc.ResolveIncoming(updated); got != "final" {
		t.Fatalf("edited row resolved %q", got)
	}
	if updated.EncryptedContent == msg.EncryptedContent || updated.IV == msg.IV {
		t.Fatal("edit reused ciphertext or nonce")
	}
	if !updated.UpdatedAt.After(msg.UpdatedAt) {
		t.Fatalf("updated_at did not advance: %v -> %v", msg.UpdatedAt, updated.UpdatedAt)
	}
}

func TestEditMessageDetectsConcurrentWriter(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	scope := convkey.DM(uuid.New(), uuid.New())
	msg, err := svc.SendMessage(ctx, scope, uuid.New(), "draft")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	stale := *msg

	if _, err := svc.EditMessage(ctx, msg, "first edit"); err != nil {
		t.Fatalf("first edit: %v", err)
	}

	_, err = svc.EditMessage(ctx, &stale, "second edit")
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale edit err = %v, want ErrConflict", err)
	}
}

func TestEnsureIdentityPublishesOnce(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.EnsureIdentity(ctx, userID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !first.Generated {
		t.Fatal("first call did not generate")
	}
	second, err := svc.EnsureIdentity(ctx, userID)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if second.Generated || second.PublicKey != first.PublicKey {
		t.Fatalf("second call changed the identity: %+v", second)
	}
	if _, err := st.Directory().Get(ctx, userID); err != nil {
		t.Fatalf("directory lookup: %v", err)
	}
}

func TestResetIdentityDropsKeyAndCaches(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.EnsureIdentity(ctx, userID); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := svc.ResetIdentity(ctx, userID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := st.Directory().Get(ctx, userID); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("directory entry survived reset: %v", err)
	}

	// A fresh EnsureIdentity after reset mints a new pair.
	again, err := svc.EnsureIdentity(ctx, userID)
	if err != nil {
		t.Fatalf("ensure after reset: %v", err)
	}
	if !again.Generated {
		t.Fatal("reset did not force regeneration")
	}
}

func TestFieldsFromRowMirrorsContentColumns(t *testing.T) {
	now := time.Now().UTC()
	msg := &store.Message{
		ID:                uuid.New(),
		ConversationID:    "c",
		EncryptedContent:  "payload",
		IV:                "nonce",
		IsEncrypted:       true,
		EncryptionVersion: 2,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	f := FieldsFromRow(msg)
	if f.EncryptedContent != "payload" || f.IV != "nonce" || !f.IsEncrypted || f.EncryptionVersion != 2 {
		t.Fatalf("fields = %+v", f)
	}
}
