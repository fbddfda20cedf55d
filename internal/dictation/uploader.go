// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     dictation
// Description: HTTP client for the VoxNote API
// License:     MIT
// ============================================================================

package dictation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/voxnote/voxnote/pkg/core/logging"
)

// Uploader talks to the VoxNote server. Slice uploads are fire-and-forget:
// the recorder keeps slicing at its own pace and never waits for the
// recognizer, the server re-merges whatever arrives.
type Uploader struct {
	baseURL   string
	authToken string
	client    *http.Client
	logger    *logging.Logger

	// onError is invoked from upload goroutines on network failures
	onError func(err error)
}

// NewUploader creates an API client for the given server
func NewUploader(baseURL, authToken string) *Uploader {
	return &Uploader{
		baseURL:   baseURL,
		authToken: authToken,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logging.New("uploader"),
	}
}

// OnError registers a callback for background upload failures. The
// callback runs on the upload goroutine and must not block.
func (u *Uploader) OnError(fn func(err error)) {
	u.onError = fn
}

// Start begins a new recording session and returns the transcript ID
func (u *Uploader) Start(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/v1/transcribe/start", nil)
	if err != nil {
		return "", err
	}
	u.authorize(req)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("start request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("start returned %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	var result struct {
		TranscriptID string `json:"transcriptId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode start response: %w", err)
	}
	if result.TranscriptID == "" {
		return "", fmt.Errorf("start returned empty transcript ID")
	}

	return result.TranscriptID, nil
}

// UploadSlice sends one audio chunk in the background. Empty chunks are
// dropped, the recognizer has nothing to work with and the server would
// only store an empty slice.
func (u *Uploader) UploadSlice(transcriptID string, chunkIndex int, wav []byte) {
	if len(wav) == 0 {
		u.logger.Warn("dropping empty chunk", "chunk_index", chunkIndex)
		return
	}

	go func() {
		if err := u.uploadSlice(transcriptID, chunkIndex, wav); err != nil {
			u.logger.Error("slice upload failed",
				"transcript_id", transcriptID,
				"chunk_index", chunkIndex,
				"error", err,
			)
			if u.onError != nil {
				u.onError(err)
			}
		}
	}()
}

func (u *Uploader) uploadSlice(transcriptID string, chunkIndex int, wav []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("transcriptId", transcriptID); err != nil {
		return err
	}
	if err := mw.WriteField("chunkIndex", fmt.Sprintf("%d", chunkIndex)); err != nil {
		return err
	}

	fw, err := mw.CreateFormFile("file", fmt.Sprintf("chunk-%d.wav", chunkIndex))
	if err != nil {
		return err
	}
	if _, err := fw.Write(wav); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, u.baseURL+"/api/v1/transcribe/slice", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	u.authorize(req)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("slice request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slice returned %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	return nil
}

// Finish closes the recording and returns the final transcript text
func (u *Uploader) Finish(ctx context.Context, transcriptID string, durationSeconds float64) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"transcriptId":    transcriptID,
		"durationSeconds": durationSeconds,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/v1/transcribe/finish", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	u.authorize(req)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("finish request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("finish returned %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	var result struct {
		OK   bool   `json:"ok"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode finish response: %w", err)
	}

	return result.Text, nil
}

func (u *Uploader) authorize(req *http.Request) {
	if u.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+u.authToken)
	}
}

func readBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(data)
}
