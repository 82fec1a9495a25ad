package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/domain/repository"
)

type sqliteSelectionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteSelectionRepository SQLite backed selection store; survives restarts
func NewSQLiteSelectionRepository(dbPath string) (repository.SelectionRepository, error) {
	if dbPath == "" {
		return nil, errors.New("selection db path must not be empty")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// immediate transactions serialize Take across connections
	db, err := sql.Open("sqlite3", dbPath+"?_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := createSelectionSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteSelectionRepository{db: db, now: time.Now}, nil
}

func createSelectionSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS pending_selections (
	user_id INTEGER PRIMARY KEY,
	chat_id INTEGER NOT NULL,
	username TEXT,
	prompt TEXT NOT NULL,
	request_id TEXT NOT NULL,
	submitted_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_pending_selections_expires ON pending_selections (expires_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Put writes the selection, replacing an older one
func (s *sqliteSelectionRepository) Put(ctx context.Context, selection entity.PendingSelection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM pending_selections WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().UTC())
	if err != nil {
		tx.Rollback()
		return err
	}

	var expires any
	if !selection.ExpiresAt.IsZero() {
		expires = selection.ExpiresAt.UTC()
	}

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO pending_selections
(user_id, chat_id, username, prompt, request_id, submitted_at, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		selection.UserID, selection.ChatID, selection.Username,
		selection.Prompt.Text, selection.Prompt.RequestID, selection.Prompt.SubmittedAt.UTC(),
		selection.CreatedAt.UTC(), expires)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Take reads and deletes the row inside one immediate transaction.
func (s *sqliteSelectionRepository) Take(ctx context.Context, userID int64) (*entity.PendingSelection, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		p        entity.PendingSelection
		username sql.NullString
		expires  sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `SELECT user_id, chat_id, username, prompt, request_id, submitted_at, created_at, expires_at
FROM pending_selections WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.ChatID, &username, &p.Prompt.Text, &p.Prompt.RequestID,
			&p.Prompt.SubmittedAt, &p.CreatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSelectionNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_selections WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	p.Username = username.String
	p.Prompt.UserID = p.UserID
	if expires.Valid {
		p.ExpiresAt = expires.Time
	}

	if p.Expired(s.now()) {
		return nil, entity.ErrSelectionNotFound
	}
	return &p, nil
}

// Close closes the database
func (s *sqliteSelectionRepository) Close() error {
	return s.db.Close()
}
