package store

import (
	"context"
	"errors"
	"time"
)

// Transcript status values. A session is created as processing and moves
// to done exactly once, at finish. There is no failed status: a session
// whose slices all degraded finishes as done with empty text.
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
)

// ErrNotFound is returned when a referenced record does not exist
var ErrNotFound = errors.New("record not found")

// Transcript represents one dictation session
type Transcript struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Text            string    `json:"text"`
	Status          string    `json:"status"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Slice represents one audio chunk's recognition result. A slice is
// uniquely identified by (TranscriptID, ChunkIndex); re-ingesting the
// same index overwrites the stored slice.
type Slice struct {
	TranscriptID string    `json:"transcript_id"`
	ChunkIndex   int       `json:"chunk_index"`
	AudioURL     string    `json:"audio_url,omitempty"`
	Text         string    `json:"text"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// DictionaryEntry is one user-defined pronunciation hint
type DictionaryEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Phrase      string    `json:"phrase"`
	Replacement string    `json:"replacement,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TranscriptStore defines persistence for transcripts and their slices
type TranscriptStore interface {
	CreateTranscript(ctx context.Context, tr *Transcript) error

	// GetTranscript returns nil, nil when the transcript does not exist.
	GetTranscript(ctx context.Context, id string) (*Transcript, error)

	// UpdateTranscriptText replaces the merged text without touching
	// status or duration.
	UpdateTranscriptText(ctx context.Context, id, text string) error

	// FinishTranscript writes the final text, sets status done and,
	// when durationSeconds is non-nil, stores the duration.
	FinishTranscript(ctx context.Context, id, text string, durationSeconds *int) error

	ListTranscripts(ctx context.Context, userID string, limit int) ([]*Transcript, error)

	// UpsertSlice inserts the slice or, when (TranscriptID, ChunkIndex)
	// already exists, overwrites text, status and audio reference.
	UpsertSlice(ctx context.Context, s *Slice) error

	// ListSlices returns all slices of a transcript ordered by
	// ChunkIndex ascending.
	ListSlices(ctx context.Context, transcriptID string) ([]*Slice, error)
}

// DictionaryStore defines persistence for pronunciation dictionaries
type DictionaryStore interface {
	CreateEntry(ctx context.Context, e *DictionaryEntry) error
	ListEntries(ctx context.Context, userID string) ([]*DictionaryEntry, error)
	DeleteEntry(ctx context.Context, userID, id string) error

	// ListPhrases returns only the phrase column, newest first. This is
	// the narrow surface the transcription pipeline consumes.
	ListPhrases(ctx context.Context, userID string) ([]string, error)
}

// Store combines all persistence interfaces
type Store interface {
	TranscriptStore
	DictionaryStore

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
