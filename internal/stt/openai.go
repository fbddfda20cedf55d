// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     stt
// Description: Whisper transcription via the OpenAI API
// License:     MIT
// ============================================================================

package stt

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAITranscriber implements speech-to-text using the OpenAI audio API
type OpenAITranscriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAITranscriber creates a Whisper transcriber. With an empty API key
// it returns a disabled transcriber instead, so callers never have to treat
// a missing credential as an error.
func NewOpenAITranscriber(cfg Config) Transcriber {
	if cfg.APIKey == "" {
		return NewDisabled()
	}

	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}

	return &OpenAITranscriber{
		client:   openai.NewClientWithConfig(cc),
		model:    model,
		language: language,
	}
}

// TranscribeFile transcribes the audio file at path
func (t *OpenAITranscriber) TranscribeFile(ctx context.Context, path string, prompt string) (Result, error) {
	// Reject empty chunks before making a network call
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("audio chunk missing: %w", err)
	}
	if info.Size() == 0 {
		return Result{}, fmt.Errorf("audio chunk at %s is empty", path)
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Prompt:   prompt,
		Language: t.language,
		// Deterministic output reduces random language switches mid-dictation
		Temperature: 0,
	})
	if err != nil {
		return Result{}, fmt.Errorf("transcription failed: %w", err)
	}

	return Result{
		Text:     resp.Text,
		Language: t.language,
	}, nil
}

// Close releases resources
func (t *OpenAITranscriber) Close() error {
	return nil
}
