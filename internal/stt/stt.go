// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     stt
// Description: Speech-to-text interface
// License:     MIT
// ============================================================================

package stt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voxnote/voxnote/pkg/core/logging"
)

// Transcriber is the interface for speech-to-text engines
type Transcriber interface {
	// TranscribeFile transcribes audio from a file. The prompt biases the
	// engine towards certain spellings and may be empty.
	TranscribeFile(ctx context.Context, path string, prompt string) (Result, error)

	// Close releases resources
	Close() error
}

// Result holds the transcription result
type Result struct {
	// Text is the transcribed text
	Text string

	// Language is the language the engine was asked for
	Language string
}

// Config holds STT configuration
type Config struct {
	// APIKey authenticates against the recognition API. When empty the
	// recognizer is disabled and every slice transcribes to empty text.
	APIKey string

	// BaseURL overrides the API endpoint (e.g. for a local Whisper server)
	BaseURL string

	// Model is the recognition model name
	Model string

	// Language is the target language (e.g. "en")
	Language string

	// Timeout bounds a single recognition call
	Timeout time.Duration
}

// DefaultConfig returns default STT configuration
func DefaultConfig() Config {
	return Config{
		Model:    "whisper-1",
		Language: "en",
		Timeout:  60 * time.Second,
	}
}

// BuildPrompt builds the recognition prompt from the user's dictionary
// phrases. With phrases present the prompt asks for those spellings,
// otherwise it falls back to a generic dictation hint.
func BuildPrompt(phrases []string) string {
	if len(phrases) > 0 {
		return fmt.Sprintf(
			"Transcribe this audio as clear English text. Prefer these spellings exactly: %s.",
			strings.Join(phrases, ", "),
		)
	}
	return "Transcribe this audio as clear English text suitable to paste into a chat or email."
}

// Disabled is a Transcriber that returns empty text for every slice. It is
// used when no API key is configured, so recordings still produce transcript
// rows instead of failing outright.
type Disabled struct {
	logger *logging.Logger
}

// NewDisabled creates a disabled transcriber
func NewDisabled() *Disabled {
	return &Disabled{logger: logging.New("stt")}
}

// TranscribeFile returns an empty result and logs the degradation so each
// skipped slice is visible in the server log
func (d *Disabled) TranscribeFile(ctx context.Context, path string, prompt string) (Result, error) {
	d.logger.Warn("recognizer disabled, slice transcribed to empty text", "path", path)
	return Result{}, nil
}

// Close releases resources
func (d *Disabled) Close() error {
	return nil
}
