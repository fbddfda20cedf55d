// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     dictation
// Description: Recording session that slices audio into fixed windows
// License:     MIT
// ============================================================================

package dictation

import (
	"bytes"
	"context"
	"time"

	"github.com/voxnote/voxnote/internal/stt"
	"github.com/voxnote/voxnote/pkg/core/logging"
)

// SliceSink receives finished audio chunks. Uploader implements this.
type SliceSink interface {
	UploadSlice(transcriptID string, chunkIndex int, wav []byte)
}

// SessionConfig holds configuration for a recording session
type SessionConfig struct {
	TranscriptID  string
	SampleRate    int
	SliceLengthMs int
	Sink          SliceSink
}

// Session slices a continuous sample stream into fixed-length chunks.
// Chunk boundaries are counted in samples, so chunk i+1 starts exactly
// where chunk i's window closed regardless of buffer sizes upstream. Each
// chunk is encoded as a standalone WAV file before it is handed to the
// sink. The final partial chunk is flushed when the session ends.
type Session struct {
	transcriptID    string
	sampleRate      int
	samplesPerSlice int
	sink            SliceSink
	logger          *logging.Logger

	buf        []float32
	chunkIndex int
	startedAt  time.Time
}

// NewSession creates a recording session. The slice length is clamped to
// the supported range.
func NewSession(cfg SessionConfig) *Session {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	sliceMs := ClampSliceLength(cfg.SliceLengthMs)

	return &Session{
		transcriptID:    cfg.TranscriptID,
		sampleRate:      sampleRate,
		samplesPerSlice: sampleRate * sliceMs / 1000,
		sink:            cfg.Sink,
		logger:          logging.New("session"),
		startedAt:       time.Now(),
	}
}

// Run consumes sample buffers until the context is cancelled or the
// channel closes, then flushes the remaining partial chunk. Returns the
// wall-clock recording duration in seconds.
func (s *Session) Run(ctx context.Context, samples <-chan []float32) float64 {
	for {
		select {
		case <-ctx.Done():
			s.drain(samples)
			return s.Finish()
		case buf, ok := <-samples:
			if !ok {
				return s.Finish()
			}
			s.Append(buf)
		}
	}
}

// drain consumes buffers already queued by the capture side so the last
// words spoken before stop are not truncated
func (s *Session) drain(samples <-chan []float32) {
	for {
		select {
		case buf, ok := <-samples:
			if !ok {
				return
			}
			s.Append(buf)
		default:
			return
		}
	}
}

// Append adds samples to the session, emitting every slice whose window
// has closed
func (s *Session) Append(samples []float32) {
	s.buf = append(s.buf, samples...)

	for len(s.buf) >= s.samplesPerSlice {
		chunk := make([]float32, s.samplesPerSlice)
		copy(chunk, s.buf[:s.samplesPerSlice])
		s.buf = s.buf[s.samplesPerSlice:]

		s.emit(chunk)
	}
}

// Finish flushes the trailing partial chunk and returns the wall-clock
// recording duration in seconds
func (s *Session) Finish() float64 {
	if len(s.buf) > 0 {
		chunk := s.buf
		s.buf = nil
		s.emit(chunk)
	}

	return time.Since(s.startedAt).Seconds()
}

// ChunkCount returns the number of chunks emitted so far
func (s *Session) ChunkCount() int {
	return s.chunkIndex
}

// TranscriptID returns the transcript this session records into
func (s *Session) TranscriptID() string {
	return s.transcriptID
}

// emit encodes a chunk as WAV and hands it to the sink
func (s *Session) emit(samples []float32) {
	if len(samples) == 0 {
		return
	}

	var wav bytes.Buffer
	if err := stt.EncodeWAV(&wav, samples, s.sampleRate); err != nil {
		s.logger.Error("failed to encode chunk",
			"transcript_id", s.transcriptID,
			"chunk_index", s.chunkIndex,
			"error", err,
		)
		// Index still advances so later chunks keep their positions
		s.chunkIndex++
		return
	}

	s.sink.UploadSlice(s.transcriptID, s.chunkIndex, wav.Bytes())
	s.chunkIndex++
}
