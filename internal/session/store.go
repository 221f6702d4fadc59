package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vibelog/internal/domain"
)

// SQLiteStore implements domain.SessionStore. Blobs are encrypted at rest
// with a key derived from the configured secret; the TTL is enforced on the
// stored capture timestamp before any decryption is attempted.
type SQLiteStore struct {
	db     *sql.DB
	secret string
	logger *slog.Logger
}

func NewSQLiteStore(dbPath, secret string, logger *slog.Logger) (*SQLiteStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("session store requires a non-empty secret")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create session directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open session database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, secret: secret, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session database migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		account_id   TEXT PRIMARY KEY,
		blob         BLOB NOT NULL,
		captured_at  DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, accountID string, sess domain.Session) error {
	if sess.CapturedAt.IsZero() {
		sess.CapturedAt = time.Now()
	}

	plaintext, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	blob, err := encrypt(s.secret, plaintext)
	if err != nil {
		return fmt.Errorf("encrypt session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (account_id, blob, captured_at) VALUES (?, ?, ?)`,
		accountID, blob, sess.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	s.logger.Info("session stored", "account", accountID)
	return nil
}

// Get returns the session for an account, or nil when none is stored.
// A session past its TTL is deleted and reported absent without touching
// the blob.
func (s *SQLiteStore) Get(ctx context.Context, accountID string) (*domain.Session, error) {
	var blob []byte
	var capturedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT blob, captured_at FROM sessions WHERE account_id = ?`, accountID,
	).Scan(&blob, &capturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if (domain.Session{CapturedAt: capturedAt}).Expired(time.Now()) {
		s.logger.Info("stored session past TTL, deleting", "account", accountID)
		if err := s.Delete(ctx, accountID); err != nil {
			s.logger.Warn("failed to delete expired session", "account", accountID, "err", err)
		}
		return nil, nil
	}

	plaintext, err := decrypt(s.secret, blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt session for %s: %w", accountID, err)
	}

	var sess domain.Session
	if err := json.Unmarshal(plaintext, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE account_id = ?`, accountID)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
