package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// SQLiteConfig holds configuration for the SQLite store
type SQLiteConfig struct {
	Path string
}

// DefaultSQLiteConfig returns default configuration
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path: "./data/voxnote.db",
	}
}

// NewSQLiteStore creates a new SQLite-backed store
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the necessary tables
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Transcripts table
	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		duration_seconds INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Slices table, keyed by (transcript, chunk index)
	CREATE TABLE IF NOT EXISTS transcript_slices (
		transcript_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		audio_url TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (transcript_id, chunk_index),
		FOREIGN KEY (transcript_id) REFERENCES transcripts(id) ON DELETE CASCADE
	);

	-- Dictionary table
	CREATE TABLE IF NOT EXISTS dictionary_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		phrase TEXT NOT NULL,
		replacement TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Indices
	CREATE INDEX IF NOT EXISTS idx_transcripts_user ON transcripts(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_slices_transcript ON transcript_slices(transcript_id);
	CREATE INDEX IF NOT EXISTS idx_dictionary_user ON dictionary_entries(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateTranscript creates a new transcript
func (s *SQLiteStore) CreateTranscript(ctx context.Context, tr *Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tr.ID == "" {
		return fmt.Errorf("transcript ID is required")
	}
	if tr.UserID == "" {
		return fmt.Errorf("user ID is required")
	}

	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now()
	}
	if tr.Status == "" {
		tr.Status = StatusProcessing
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, user_id, text, status, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tr.ID, tr.UserID, tr.Text, tr.Status, tr.DurationSeconds, tr.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}

	return nil
}

// GetTranscript retrieves a transcript by ID
func (s *SQLiteStore) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, text, status, duration_seconds, created_at
		FROM transcripts WHERE id = ?
	`, id)

	var tr Transcript
	var duration sql.NullInt64

	err := row.Scan(&tr.ID, &tr.UserID, &tr.Text, &tr.Status, &duration, &tr.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	if duration.Valid {
		d := int(duration.Int64)
		tr.DurationSeconds = &d
	}

	return &tr, nil
}

// UpdateTranscriptText replaces the merged text of a transcript
func (s *SQLiteStore) UpdateTranscriptText(ctx context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE transcripts SET text = ? WHERE id = ?
	`, text, id)
	if err != nil {
		return fmt.Errorf("failed to update transcript text: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// FinishTranscript writes final text, sets status done and optionally the duration
func (s *SQLiteStore) FinishTranscript(ctx context.Context, id, text string, durationSeconds *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result sql.Result
	var err error

	if durationSeconds != nil {
		result, err = s.db.ExecContext(ctx, `
			UPDATE transcripts SET text = ?, status = ?, duration_seconds = ? WHERE id = ?
		`, text, StatusDone, *durationSeconds, id)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE transcripts SET text = ?, status = ? WHERE id = ?
		`, text, StatusDone, id)
	}
	if err != nil {
		return fmt.Errorf("failed to finish transcript: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListTranscripts returns a user's transcripts ordered by recency
func (s *SQLiteStore) ListTranscripts(ctx context.Context, userID string, limit int) ([]*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, text, status, duration_seconds, created_at
		FROM transcripts
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		var tr Transcript
		var duration sql.NullInt64

		if err := rows.Scan(&tr.ID, &tr.UserID, &tr.Text, &tr.Status, &duration, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		if duration.Valid {
			d := int(duration.Int64)
			tr.DurationSeconds = &d
		}

		transcripts = append(transcripts, &tr)
	}

	return transcripts, nil
}

// UpsertSlice inserts or overwrites a slice keyed by (transcript, chunk index)
func (s *SQLiteStore) UpsertSlice(ctx context.Context, sl *Slice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sl.TranscriptID == "" {
		return fmt.Errorf("transcript ID is required")
	}
	if sl.ChunkIndex < 0 {
		return fmt.Errorf("chunk index must not be negative")
	}

	if sl.CreatedAt.IsZero() {
		sl.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcript_slices (transcript_id, chunk_index, audio_url, text, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (transcript_id, chunk_index)
		DO UPDATE SET audio_url = excluded.audio_url, text = excluded.text, status = excluded.status
	`, sl.TranscriptID, sl.ChunkIndex, sl.AudioURL, sl.Text, sl.Status, sl.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert slice: %w", err)
	}

	return nil
}

// ListSlices returns all slices of a transcript ordered by chunk index
func (s *SQLiteStore) ListSlices(ctx context.Context, transcriptID string) ([]*Slice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT transcript_id, chunk_index, audio_url, text, status, created_at
		FROM transcript_slices
		WHERE transcript_id = ?
		ORDER BY chunk_index ASC
	`, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slices: %w", err)
	}
	defer rows.Close()

	var slices []*Slice
	for rows.Next() {
		var sl Slice
		if err := rows.Scan(&sl.TranscriptID, &sl.ChunkIndex, &sl.AudioURL, &sl.Text, &sl.Status, &sl.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slice: %w", err)
		}
		slices = append(slices, &sl)
	}

	return slices, nil
}

// CreateEntry creates a dictionary entry
func (s *SQLiteStore) CreateEntry(ctx context.Context, e *DictionaryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		return fmt.Errorf("entry ID is required")
	}
	if e.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if e.Phrase == "" {
		return fmt.Errorf("phrase is required")
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var replacement sql.NullString
	if e.Replacement != "" {
		replacement = sql.NullString{String: e.Replacement, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dictionary_entries (id, user_id, phrase, replacement, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Phrase, replacement, e.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create dictionary entry: %w", err)
	}

	return nil
}

// ListEntries returns a user's dictionary entries, newest first
func (s *SQLiteStore) ListEntries(ctx context.Context, userID string) ([]*DictionaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, phrase, replacement, created_at
		FROM dictionary_entries
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dictionary entries: %w", err)
	}
	defer rows.Close()

	var entries []*DictionaryEntry
	for rows.Next() {
		var e DictionaryEntry
		var replacement sql.NullString

		if err := rows.Scan(&e.ID, &e.UserID, &e.Phrase, &replacement, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dictionary entry: %w", err)
		}
		if replacement.Valid {
			e.Replacement = replacement.String
		}

		entries = append(entries, &e)
	}

	return entries, nil
}

// DeleteEntry deletes a user's dictionary entry
func (s *SQLiteStore) DeleteEntry(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM dictionary_entries WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete dictionary entry: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListPhrases returns only the phrases of a user's dictionary
func (s *SQLiteStore) ListPhrases(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT phrase FROM dictionary_entries
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phrases: %w", err)
	}
	defer rows.Close()

	var phrases []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan phrase: %w", err)
		}
		phrases = append(phrases, p)
	}

	return phrases, nil
}

// Ping verifies the database connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
