package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vaayuronics/anticlanker/internal/domain"
	"github.com/vaayuronics/anticlanker/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	convMu sync.Mutex // serializes conversation read-modify-write cycles
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS strikes (
		user_id TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS banned (
		user_id TEXT PRIMARY KEY,
		banned_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ignored (
		name TEXT PRIMARY KEY,
		added_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		user_id TEXT PRIMARY KEY,
		messages_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS training_examples (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		content TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// IncrementStrikes adds one strike for a user and returns the new count.
// The UPSERT makes the increment-and-read atomic so concurrent reckonings
// cannot under-count.
func (s *SQLiteStore) IncrementStrikes(ctx context.Context, userID string) (int, error) {
	query := `
		INSERT INTO strikes (user_id, count, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			count = count + 1,
			updated_at = excluded.updated_at
		RETURNING count`

	var count int
	err := s.db.QueryRowContext(ctx, query, userID, time.Now().Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment strikes: %w", err)
	}
	return count, nil
}

// DecrementStrikes removes one strike, flooring at zero.
func (s *SQLiteStore) DecrementStrikes(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE strikes SET count = MAX(count - 1, 0), updated_at = ?
		WHERE user_id = ?
		RETURNING count`

	var count int
	err := s.db.QueryRowContext(ctx, query, time.Now().Unix(), userID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("decrement strikes: %w", err)
	}
	return count, nil
}

// GetStrikes returns the current strike count; absence means zero.
func (s *SQLiteStore) GetStrikes(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count FROM strikes WHERE user_id = ?`, userID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get strikes: %w", err)
	}
	return count, nil
}

// ClearStrikes deletes the user's strike record entirely.
func (s *SQLiteStore) ClearStrikes(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM strikes WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear strikes: %w", err)
	}
	return nil
}

// AddBanned inserts the user into the soft-ban set.
func (s *SQLiteStore) AddBanned(ctx context.Context, userID string) error {
	query := `INSERT OR IGNORE INTO banned (user_id, banned_at) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, userID, time.Now().Unix()); err != nil {
		return fmt.Errorf("add banned: %w", err)
	}
	return nil
}

// RemoveBanned deletes the user from the soft-ban set.
func (s *SQLiteStore) RemoveBanned(ctx context.Context, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM banned WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("remove banned: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// IsBanned reports whether the user is in the soft-ban set.
func (s *SQLiteStore) IsBanned(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM banned WHERE user_id = ?`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check banned: %w", err)
	}
	return true, nil
}

// ListBanned returns all user IDs in the soft-ban set.
func (s *SQLiteStore) ListBanned(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM banned ORDER BY banned_at`)
	if err != nil {
		return nil, fmt.Errorf("query banned: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close banned rows", "error", closeErr)
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan banned: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate banned: %w", err)
	}
	return ids, nil
}

// AddIgnored adds a lower-cased display name to the ignore list.
func (s *SQLiteStore) AddIgnored(ctx context.Context, name string) (bool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false, nil
	}

	query := `INSERT OR IGNORE INTO ignored (name, added_at) VALUES (?, ?)`
	result, err := s.db.ExecContext(ctx, query, name, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("add ignored: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// IsIgnored reports whether the display name is ignored.
func (s *SQLiteStore) IsIgnored(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM ignored WHERE name = ?`, strings.ToLower(strings.TrimSpace(name))).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check ignored: %w", err)
	}
	return true, nil
}

// AppendConversation appends an entry to a user's persona conversation,
// keeping only the most recent ConversationCap entries.
func (s *SQLiteStore) AppendConversation(ctx context.Context, userID, role, content string) ([]domain.StoredMessage, error) {
	s.convMu.Lock()
	defer s.convMu.Unlock()

	messages, err := s.getConversationLocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	messages = append(messages, domain.StoredMessage{Role: role, Content: content})
	if len(messages) > ConversationCap {
		messages = messages[len(messages)-ConversationCap:]
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal conversation: %w", err)
	}

	query := `
		INSERT INTO conversations (user_id, messages_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			messages_json = excluded.messages_json,
			updated_at = excluded.updated_at`

	err = shared.RetrySQLite(3, 100*time.Millisecond, func() error {
		_, execErr := s.db.ExecContext(ctx, query, userID, string(payload), time.Now().Unix())
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("upsert conversation: %w", err)
	}
	return messages, nil
}

// GetConversation returns a user's persona conversation history.
func (s *SQLiteStore) GetConversation(ctx context.Context, userID string) ([]domain.StoredMessage, error) {
	s.convMu.Lock()
	defer s.convMu.Unlock()
	return s.getConversationLocked(ctx, userID)
}

func (s *SQLiteStore) getConversationLocked(ctx context.Context, userID string) ([]domain.StoredMessage, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT messages_json FROM conversations WHERE user_id = ?`, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	var messages []domain.StoredMessage
	if err := json.Unmarshal([]byte(payload), &messages); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	return messages, nil
}

// ListTrainingExamples returns the labeled examples in insertion order.
func (s *SQLiteStore) ListTrainingExamples(ctx context.Context) ([]domain.TrainingExample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, content FROM training_examples ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query training examples: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close training example rows", "error", closeErr)
		}
	}()

	var examples []domain.TrainingExample
	for rows.Next() {
		var ex domain.TrainingExample
		if err := rows.Scan(&ex.Role, &ex.Content); err != nil {
			return nil, fmt.Errorf("scan training example: %w", err)
		}
		examples = append(examples, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training examples: %w", err)
	}
	return examples, nil
}

// AppendTrainingExample appends a labeled example.
func (s *SQLiteStore) AppendTrainingExample(ctx context.Context, role, content string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO training_examples (role, content) VALUES (?, ?)`, role, content); err != nil {
		return fmt.Errorf("append training example: %w", err)
	}
	return nil
}

// TrimTrainingExamples removes the last n examples.
func (s *SQLiteStore) TrimTrainingExamples(ctx context.Context, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	query := `
		DELETE FROM training_examples WHERE seq IN (
			SELECT seq FROM training_examples ORDER BY seq DESC LIMIT ?
		)`
	result, err := s.db.ExecContext(ctx, query, n)
	if err != nil {
		return 0, fmt.Errorf("trim training examples: %w", err)
	}
	return result.RowsAffected()
}
