package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote/internal/store"
	"github.com/voxnote/voxnote/internal/stt"
	"github.com/voxnote/voxnote/pkg/core/logging"
)

// ErrTranscriptNotFound is returned when a slice references an unknown
// transcript, e.g. after the server restarted mid-recording.
var ErrTranscriptNotFound = errors.New("transcript not found")

// Notifier receives the merged text whenever a transcript changes.
// Implementations must not block.
type Notifier interface {
	NotifyMerged(transcriptID, merged string)
}

// Service orchestrates the dictation pipeline: it accepts audio slices,
// runs them through the recognizer and keeps the merged transcript current.
type Service struct {
	store      store.Store
	recognizer stt.Transcriber
	chunkDir   string
	notifier   Notifier
	logger     *logging.Logger
}

// Config holds service configuration
type Config struct {
	Store      store.Store
	Recognizer stt.Transcriber

	// ChunkDir is where uploaded audio chunks are parked while the
	// recognizer works on them
	ChunkDir string
}

// NewService creates a new transcript service
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}

	chunkDir := cfg.ChunkDir
	if chunkDir == "" {
		chunkDir = filepath.Join(os.TempDir(), "voxnote_chunks")
	}
	if err := os.MkdirAll(chunkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	return &Service{
		store:      cfg.Store,
		recognizer: cfg.Recognizer,
		chunkDir:   chunkDir,
		logger:     logging.New("transcript"),
	}, nil
}

// SetNotifier registers a notifier for merged-text updates
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start creates a new transcript in processing state and returns it
func (s *Service) Start(ctx context.Context, userID string) (*store.Transcript, error) {
	tr := &store.Transcript{
		ID:     uuid.NewString(),
		UserID: userID,
		Status: store.StatusProcessing,
	}
	if err := s.store.CreateTranscript(ctx, tr); err != nil {
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}

	s.logger.Info("transcript started", "transcript_id", tr.ID, "user_id", userID)
	return tr, nil
}

// IngestSlice processes one uploaded audio slice: the chunk is written to
// disk, transcribed with the caller's dictionary phrases as a spelling hint
// and upserted under its chunk index, then the whole transcript is
// re-merged. A failed recognition stores empty text rather than failing
// the upload, so one bad chunk never loses the rest of the recording.
// Returns the merged transcript text.
func (s *Service) IngestSlice(ctx context.Context, transcriptID string, chunkIndex int, audio io.Reader, filename string) (string, error) {
	tr, err := s.store.GetTranscript(ctx, transcriptID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve transcript: %w", err)
	}
	if tr == nil {
		return "", ErrTranscriptNotFound
	}

	chunkPath, err := s.saveChunk(transcriptID, chunkIndex, audio, filename)
	if err != nil {
		return "", err
	}
	defer func() {
		// Best effort, a stale chunk file is not worth failing the upload
		if err := os.Remove(chunkPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove chunk file", "path", chunkPath, "error", err)
		}
	}()

	// Phrases are fetched per slice so dictionary edits made while a
	// recording is running affect the very next chunk
	phrases, err := s.store.ListPhrases(ctx, tr.UserID)
	if err != nil {
		s.logger.Warn("failed to load dictionary phrases", "error", err)
		phrases = nil
	}

	text := ""
	result, err := s.recognizer.TranscribeFile(ctx, chunkPath, stt.BuildPrompt(phrases))
	if err != nil {
		// Store the slice with empty text instead of placeholder labels,
		// an audible gap reads better than "[failed]" mid-sentence
		s.logger.Error("recognition failed for slice",
			"transcript_id", transcriptID,
			"chunk_index", chunkIndex,
			"error", err,
		)
	} else {
		text = result.Text
	}

	sl := &store.Slice{
		TranscriptID: transcriptID,
		ChunkIndex:   chunkIndex,
		AudioURL:     chunkPath,
		Text:         text,
		Status:       store.StatusDone,
	}
	if err := s.store.UpsertSlice(ctx, sl); err != nil {
		return "", fmt.Errorf("failed to store slice: %w", err)
	}

	merged, err := s.mergeAndSave(ctx, transcriptID)
	if err != nil {
		return "", err
	}

	s.logger.Info("slice ingested",
		"transcript_id", transcriptID,
		"chunk_index", chunkIndex,
		"text_len", len(text),
	)

	return merged, nil
}

// Finish re-merges all slices, marks the transcript done and records the
// recording duration. Durations that are not positive finite numbers are
// discarded rather than stored.
func (s *Service) Finish(ctx context.Context, transcriptID string, durationSeconds float64) (string, error) {
	slices, err := s.store.ListSlices(ctx, transcriptID)
	if err != nil {
		return "", fmt.Errorf("failed to list slices: %w", err)
	}
	merged := Merge(slices)

	var duration *int
	if durationSeconds > 0 && !math.IsInf(durationSeconds, 1) && !math.IsNaN(durationSeconds) {
		d := int(math.Round(durationSeconds))
		duration = &d
	}

	if err := s.store.FinishTranscript(ctx, transcriptID, merged, duration); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrTranscriptNotFound
		}
		return "", fmt.Errorf("failed to finish transcript: %w", err)
	}

	s.logger.Info("transcript finished",
		"transcript_id", transcriptID,
		"slices", len(slices),
		"text_len", len(merged),
	)

	if s.notifier != nil {
		s.notifier.NotifyMerged(transcriptID, merged)
	}

	return merged, nil
}

// Ping reports whether the backing store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// List returns a user's most recent transcripts
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*store.Transcript, error) {
	return s.store.ListTranscripts(ctx, userID, limit)
}

// Get returns a single transcript or ErrTranscriptNotFound
func (s *Service) Get(ctx context.Context, transcriptID string) (*store.Transcript, error) {
	tr, err := s.store.GetTranscript(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, ErrTranscriptNotFound
	}
	return tr, nil
}

// AddDictionaryEntry stores a phrase the recognizer should spell exactly.
// The optional replacement is advisory and not applied to stored text.
func (s *Service) AddDictionaryEntry(ctx context.Context, userID, phrase, replacement string) (*store.DictionaryEntry, error) {
	if phrase == "" {
		return nil, fmt.Errorf("phrase is required")
	}

	e := &store.DictionaryEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Phrase:      phrase,
		Replacement: replacement,
	}
	if err := s.store.CreateEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create dictionary entry: %w", err)
	}

	s.logger.Info("dictionary entry added", "user_id", userID, "phrase", phrase)
	return e, nil
}

// ListDictionary returns a user's dictionary entries, newest first
func (s *Service) ListDictionary(ctx context.Context, userID string) ([]*store.DictionaryEntry, error) {
	return s.store.ListEntries(ctx, userID)
}

// DeleteDictionaryEntry removes one of the user's dictionary entries
func (s *Service) DeleteDictionaryEntry(ctx context.Context, userID, id string) error {
	return s.store.DeleteEntry(ctx, userID, id)
}

// saveChunk writes the uploaded audio to the chunk directory. The random
// suffix keeps re-uploads of the same chunk index from clobbering a file
// that is still being transcribed.
func (s *Service) saveChunk(transcriptID string, chunkIndex int, audio io.Reader, filename string) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".wav"
	}

	path := filepath.Join(s.chunkDir, fmt.Sprintf("%s-%d-%s%s", transcriptID, chunkIndex, uuid.NewString(), ext))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chunk file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, audio); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write chunk file: %w", err)
	}

	return path, nil
}

// mergeAndSave recomputes the merged text and stores it on the transcript
func (s *Service) mergeAndSave(ctx context.Context, transcriptID string) (string, error) {
	slices, err := s.store.ListSlices(ctx, transcriptID)
	if err != nil {
		return "", fmt.Errorf("failed to list slices: %w", err)
	}

	merged := Merge(slices)
	if err := s.store.UpdateTranscriptText(ctx, transcriptID, merged); err != nil {
		return "", fmt.Errorf("failed to update transcript text: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyMerged(transcriptID, merged)
	}

	return merged, nil
}
