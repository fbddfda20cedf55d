// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     stt
// Description: WAV encoding for recorded audio chunks
// License:     MIT
// ============================================================================

package stt

import (
	"encoding/binary"
	"io"
)

// EncodeWAV writes float32 samples as a self-contained 16-bit PCM WAV file.
// Every chunk written this way is independently decodable, so the recognizer
// never needs neighbouring chunks to make sense of one.
func EncodeWAV(w io.Writer, samples []float32, sampleRate int) error {
	// Convert float32 to int16
	int16Samples := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		}
		if s < -1.0 {
			s = -1.0
		}
		int16Samples[i] = int16(s * 32767)
	}

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	byteRate := uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := uint32(len(int16Samples) * 2)

	// RIFF header
	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	binary.Write(w, binary.LittleEndian, uint32(36+dataSize))
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}

	// fmt chunk
	if _, err := w.Write([]byte("fmt ")); err != nil {
		return err
	}
	binary.Write(w, binary.LittleEndian, uint32(16)) // chunk size
	binary.Write(w, binary.LittleEndian, uint16(1))  // audio format (PCM)
	binary.Write(w, binary.LittleEndian, numChannels)
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, byteRate)
	binary.Write(w, binary.LittleEndian, blockAlign)
	binary.Write(w, binary.LittleEndian, bitsPerSample)

	// data chunk
	if _, err := w.Write([]byte("data")); err != nil {
		return err
	}
	binary.Write(w, binary.LittleEndian, dataSize)

	return binary.Write(w, binary.LittleEndian, int16Samples)
}
