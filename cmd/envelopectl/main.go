package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Sprinq/cecs378project-sub000/cryptobox"
	"github.com/Sprinq/cecs378project-sub000/internal/config"
	"github.com/Sprinq/cecs378project-sub000/internal/convkey"
	"github.com/Sprinq/cecs378project-sub000/internal/envelope"
	"github.com/Sprinq/cecs378project-sub000/internal/identity"
	"github.com/Sprinq/cecs378project-sub000/internal/keyring"
	"github.com/Sprinq/cecs378project-sub000/internal/migration"
	"github.com/Sprinq/cecs378project-sub000/internal/store"
	"github.com/Sprinq/cecs378project-sub000/internal/token"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "identity":
		err = runIdentity(args)
	case "convid":
		err = runConvid(args)
	case "seal":
		err = runSeal(args)
	case "open":
		err = runOpen(args)
	case "migrate":
		err = runMigrate(args)
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  identity   Ensure a user's identity key exists and is published")
	fmt.Fprintln(os.Stderr, "  convid     Compute the conversation id for a DM or channel")
	fmt.Fprintln(os.Stderr, "  seal       Encrypt a message body for a conversation")
	fmt.Fprintln(os.Stderr, "  open       Decrypt stored message columns")
	fmt.Fprintln(os.Stderr, "  migrate    Trigger or inspect the plaintext migration over HTTP")
	os.Exit(2)
}

// parseScope accepts an explicit conversation id, a channel id, or a DM pair
// and yields the conversation id every participant computes.
func parseScope(conversation, dm, channel string) (string, error) {
	if conversation = strings.TrimSpace(conversation); conversation != "" {
		return conversation, nil
	}
	if channel = strings.TrimSpace(channel); channel != "" {
		id, err := uuid.Parse(channel)
		if err != nil {
			return "", fmt.Errorf("invalid channel id: %w", err)
		}
		return convkey.Channel(id).ConversationID()
	}
	if dm = strings.TrimSpace(dm); dm != "" {
		parts := strings.Split(dm, ",")
		if len(parts) != 2 {
			return "", fmt.Errorf("dm wants two comma-separated user ids")
		}
		a, err := uuid.Parse(strings.TrimSpace(parts[0]))
		if err != nil {
			return "", fmt.Errorf("invalid dm user id: %w", err)
		}
		b, err := uuid.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			return "", fmt.Errorf("invalid dm user id: %w", err)
		}
		return convkey.DM(a, b).ConversationID()
	}
	return "", fmt.Errorf("one of -conversation, -dm or -channel is required")
}

func newPolicy() *envelope.Policy {
	crypto := cryptobox.Std{}
	return envelope.NewPolicy(crypto, convkey.NewDeriver(crypto))
}

type rowOut struct {
	ConversationID    string `json:"conversation_id"`
	EncryptedContent  string `json:"encrypted_content"`
	IV                string `json:"iv"`
	IsEncrypted       bool   `json:"is_encrypted"`
	EncryptionVersion int    `json:"encryption_version"`
}

func runConvid(args []string) error {
	fs := flag.NewFlagSet("convid", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	dm := fs.String("dm", "", "two user UUIDs, comma separated")
	channel := fs.String("channel", "", "channel UUID")

	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseScope("", *dm, *channel)
	if err != nil {
		return err
	}
	return printJSON(struct {
		ConversationID string `json:"conversation_id"`
	}{id})
}

func runSeal(args []string) error {
	fs := flag.NewFlagSet("seal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	conversation := fs.String("conversation", "", "conversation id (alternative to -dm/-channel)")
	dm := fs.String("dm", "", "two user UUIDs, comma separated")
	channel := fs.String("channel", "", "channel UUID")
	text := fs.String("text", "", "message body to encrypt")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *text == "" {
		return fmt.Errorf("text is required")
	}
	id, err := parseScope(*conversation, *dm, *channel)
	if err != nil {
		return err
	}
	fields, err := newPolicy().Seal(id, *text)
	if err != nil {
		return err
	}
	return printJSON(rowOut{
		ConversationID:    id,
		EncryptedContent:  fields.EncryptedContent,
		IV:                fields.IV,
		IsEncrypted:       fields.IsEncrypted,
		EncryptionVersion: fields.EncryptionVersion,
	})
}

func runOpen(args []string) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	conversation := fs.String("conversation", "", "conversation id (alternative to -dm/-channel)")
	dm := fs.String("dm", "", "two user UUIDs, comma separated")
	channel := fs.String("channel", "", "channel UUID")
	content := fs.String("content", "", "encrypted_content column (base64)")
	iv := fs.String("iv", "", "iv column (base64)")
	version := fs.Int("version", cryptobox.CurrentScheme.Version(), "encryption_version column")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *content == "" {
		return fmt.Errorf("content is required")
	}
	id, err := parseScope(*conversation, *dm, *channel)
	if err != nil {
		return err
	}
	fields := envelope.Fields{
		EncryptedContent:  *content,
		IV:                *iv,
		IsEncrypted:       true,
		EncryptionVersion: *version,
	}
	plaintext, err := newPolicy().Open(id, fields)
	if err != nil {
		return err
	}
	return printJSON(struct {
		Plaintext string `json:"plaintext"`
	}{plaintext})
}

func runIdentity(args []string) error {
	fs := flag.NewFlagSet("identity", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := config.Load()
	user := fs.String("user", "", "user UUID")
	keyringDir := fs.String("keyring", cfg.KeyringDir, "private key directory")
	directoryURL := fs.String("directory-url", cfg.DirectoryBaseURL, "directory service base URL (empty: use the database)")
	dbURL := fs.String("db", cfg.DatabaseURL, "postgres DSN for the local directory")
	reset := fs.Bool("reset", false, "destroy the identity instead of ensuring it")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*user) == "" {
		return fmt.Errorf("user id is required")
	}
	userID, err := uuid.Parse(strings.TrimSpace(*user))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	ctx := context.Background()

	var dir identity.Directory
	if *directoryURL != "" {
		signer, err := token.NewFromBase64(cfg.DirectorySigningKey, cfg.DirectoryIssuer)
		if err != nil {
			return err
		}
		dir = store.NewRemoteDirectory(*directoryURL, signer, userID.String())
	} else {
		db, err := gorm.Open(postgres.Open(*dbURL), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("gorm open: %w", err)
		}
		st := store.New(db)
		if err := st.AutoMigrate(ctx); err != nil {
			return err
		}
		dir = st.Directory()
	}

	mgr := identity.NewManager(dir, keyring.NewFile(*keyringDir), cryptobox.Std{})

	if *reset {
		if err := mgr.Reset(ctx, userID); err != nil {
			return err
		}
		return printJSON(struct {
			UserID string `json:"user_id"`
			Reset  bool   `json:"reset"`
		}{userID.String(), true})
	}

	handle, err := mgr.EnsureIdentity(ctx, userID)
	if err != nil {
		return err
	}
	return printJSON(struct {
		UserID    string `json:"user_id"`
		PublicKey string `json:"public_key"`
		Generated bool   `json:"generated"`
	}{handle.UserID.String(), handle.PublicKey, handle.Generated})
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	baseURL := fs.String("base-url", getenv("ENVELOPECTL_BASE_URL", "http://localhost:8086"), "migrator base URL")
	bearer := fs.String("token", os.Getenv("ENVELOPECTL_ADMIN_TOKEN"), "admin bearer token")
	limit := fs.Int("limit", 0, "batch size override (0: server default)")
	statusOnly := fs.Bool("status", false, "print migration status instead of running a batch")

	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	base := strings.TrimRight(*baseURL, "/")

	method, url := http.MethodPost, base+"/v1/migrate/run"
	if *statusOnly {
		method, url = http.MethodGet, base+"/v1/migrate/status"
	} else if *limit > 0 {
		url += "?limit=" + strconv.Itoa(*limit)
	}

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return err
	}
	if *bearer != "" {
		req.Header.Set("Authorization", "Bearer "+*bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		if len(data) == 0 {
			data = []byte(resp.Status)
		}
		return fmt.Errorf("migrate request failed: %s", strings.TrimSpace(string(data)))
	}

	if *statusOnly {
		var status migration.Status
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return err
		}
		return printJSON(status)
	}
	var rep migration.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return err
	}
	return printJSON(rep)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
