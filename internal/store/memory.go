package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation for testing and ephemeral runs
type MemoryStore struct {
	mu          sync.RWMutex
	transcripts map[string]*Transcript
	slices      map[string]map[int]*Slice // transcriptID -> chunkIndex -> slice
	dictionary  map[string]*DictionaryEntry
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transcripts: make(map[string]*Transcript),
		slices:      make(map[string]map[int]*Slice),
		dictionary:  make(map[string]*DictionaryEntry),
	}
}

// CreateTranscript creates a new transcript
func (s *MemoryStore) CreateTranscript(ctx context.Context, tr *Transcript) error {
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

	cp := *tr
	s.transcripts[tr.ID] = &cp
	s.slices[tr.ID] = make(map[int]*Slice)
	return nil
}

// GetTranscript retrieves a transcript by ID
func (s *MemoryStore) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.transcripts[id]
	if !ok {
		return nil, nil
	}
	cp := *tr
	return &cp, nil
}

// UpdateTranscriptText replaces the merged text of a transcript
func (s *MemoryStore) UpdateTranscriptText(ctx context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.transcripts[id]
	if !ok {
		return ErrNotFound
	}
	tr.Text = text
	return nil
}

// FinishTranscript writes final text, sets status done and optionally the duration
func (s *MemoryStore) FinishTranscript(ctx context.Context, id, text string, durationSeconds *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.transcripts[id]
	if !ok {
		return ErrNotFound
	}
	tr.Text = text
	tr.Status = StatusDone
	if durationSeconds != nil {
		d := *durationSeconds
		tr.DurationSeconds = &d
	}
	return nil
}

// ListTranscripts returns a user's transcripts ordered by recency
func (s *MemoryStore) ListTranscripts(ctx context.Context, userID string, limit int) ([]*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	var all []*Transcript
	for _, tr := range s.transcripts {
		if tr.UserID == userID {
			cp := *tr
			all = append(all, &cp)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// UpsertSlice inserts or overwrites a slice keyed by (transcript, chunk index)
func (s *MemoryStore) UpsertSlice(ctx context.Context, sl *Slice) error {
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

	bucket, ok := s.slices[sl.TranscriptID]
	if !ok {
		bucket = make(map[int]*Slice)
		s.slices[sl.TranscriptID] = bucket
	}

	cp := *sl
	bucket[sl.ChunkIndex] = &cp
	return nil
}

// ListSlices returns all slices of a transcript ordered by chunk index
func (s *MemoryStore) ListSlices(ctx context.Context, transcriptID string) ([]*Slice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.slices[transcriptID]
	if !ok {
		return nil, nil
	}

	var slices []*Slice
	for _, sl := range bucket {
		cp := *sl
		slices = append(slices, &cp)
	}

	sort.Slice(slices, func(i, j int) bool {
		return slices[i].ChunkIndex < slices[j].ChunkIndex
	})
	return slices, nil
}

// CreateEntry creates a dictionary entry
func (s *MemoryStore) CreateEntry(ctx context.Context, e *DictionaryEntry) error {
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

	cp := *e
	s.dictionary[e.ID] = &cp
	return nil
}

// ListEntries returns a user's dictionary entries, newest first
func (s *MemoryStore) ListEntries(ctx context.Context, userID string) ([]*DictionaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*DictionaryEntry
	for _, e := range s.dictionary {
		if e.UserID == userID {
			cp := *e
			entries = append(entries, &cp)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// DeleteEntry deletes a user's dictionary entry
func (s *MemoryStore) DeleteEntry(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dictionary[id]
	if !ok || e.UserID != userID {
		return ErrNotFound
	}
	delete(s.dictionary, id)
	return nil
}

// ListPhrases returns only the phrases of a user's dictionary
func (s *MemoryStore) ListPhrases(ctx context.Context, userID string) ([]string, error) {
	entries, err := s.ListEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	var phrases []string
	for _, e := range entries {
		phrases = append(phrases, e.Phrase)
	}
	return phrases, nil
}

// Ping is a no-op for the memory store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}
