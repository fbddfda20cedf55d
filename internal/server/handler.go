package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/voxnote/voxnote/internal/auth"
	"github.com/voxnote/voxnote/internal/store"
	"github.com/voxnote/voxnote/internal/transcript"
	"github.com/voxnote/voxnote/pkg/core/health"
	"github.com/voxnote/voxnote/pkg/core/logging"
)

// maxSliceUpload bounds a single chunk upload. Two minutes of 16 kHz mono
// PCM is under 4 MiB, so 16 MiB leaves plenty of headroom.
const maxSliceUpload = 16 << 20

// StartResponse is returned when a new recording begins
type StartResponse struct {
	TranscriptID string `json:"transcriptId"`
}

// SliceResponse is returned after a chunk upload
type SliceResponse struct {
	OK     bool   `json:"ok"`
	Merged string `json:"merged"`
}

// FinishRequest closes a recording
type FinishRequest struct {
	TranscriptID    string  `json:"transcriptId"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

// FinishResponse is returned when a recording is closed
type FinishResponse struct {
	OK   bool   `json:"ok"`
	Text string `json:"text"`
}

// TranscriptsResponse lists a user's transcripts
type TranscriptsResponse struct {
	Transcripts []*store.Transcript `json:"transcripts"`
	Total       int                 `json:"total"`
}

// DictionaryRequest creates a dictionary entry
type DictionaryRequest struct {
	Phrase      string `json:"phrase"`
	Replacement string `json:"replacement,omitempty"`
}

// DictionaryResponse lists dictionary entries
type DictionaryResponse struct {
	Entries []*store.DictionaryEntry `json:"entries"`
	Total   int                      `json:"total"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Handler handles HTTP requests for the dictation API
type Handler struct {
	service *transcript.Service
	auth    *auth.Authenticator
	hub     *Hub
	health  *health.Registry
	logger  *logging.Logger
}

// NewHandler creates a new API handler
func NewHandler(svc *transcript.Service, authenticator *auth.Authenticator, hub *Hub, registry *health.Registry) *Handler {
	return &Handler{
		service: svc,
		auth:    authenticator,
		hub:     hub,
		health:  registry,
		logger:  logging.New("api-handler"),
	}
}

// ServeHTTP routes API requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Route requests
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")

	switch {
	case path == "health":
		h.handleHealth(w, r)
	case path == "transcribe/start":
		h.handleStart(w, r)
	case path == "transcribe/slice":
		h.handleSlice(w, r)
	case path == "transcribe/finish":
		h.handleFinish(w, r)
	case path == "transcripts/ws":
		h.hub.ServeHTTP(w, r)
	case path == "transcripts":
		h.handleTranscripts(w, r)
	case path == "dictionary":
		h.handleDictionary(w, r)
	case strings.HasPrefix(path, "dictionary/"):
		h.handleDictionaryDelete(w, r, strings.TrimPrefix(path, "dictionary/"))
	default:
		h.writeError(w, http.StatusNotFound, "not_found", "Unknown endpoint", r.URL.Path)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.health.CheckWithTimeout(2 * time.Second)

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, report)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	userID, err := h.auth.UserID(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	tr, err := h.service.Start(r.Context(), userID)
	if err != nil {
		h.logger.Error("start failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Server error", "")
		return
	}

	h.writeJSON(w, http.StatusOK, StartResponse{TranscriptID: tr.ID})
}

func (h *Handler) handleSlice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSliceUpload)
	if err := r.ParseMultipartForm(maxSliceUpload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form", err.Error())
		return
	}

	transcriptID := r.FormValue("transcriptId")
	chunkIndexRaw := r.FormValue("chunkIndex")
	file, header, err := r.FormFile("file")
	if err != nil || transcriptID == "" || chunkIndexRaw == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing file or metadata", "")
		return
	}
	defer file.Close()

	chunkIndex, err := strconv.Atoi(chunkIndexRaw)
	if err != nil || chunkIndex < 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "chunkIndex must be a non-negative integer", "")
		return
	}

	merged, err := h.service.IngestSlice(r.Context(), transcriptID, chunkIndex, file, header.Filename)
	if err != nil {
		if errors.Is(err, transcript.ErrTranscriptNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Transcript not found", "")
			return
		}
		h.logger.Error("slice ingest failed",
			"transcript_id", transcriptID,
			"chunk_index", chunkIndex,
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Server error", "")
		return
	}

	h.writeJSON(w, http.StatusOK, SliceResponse{OK: true, Merged: merged})
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	var req FinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}
	if req.TranscriptID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing transcriptId", "")
		return
	}

	text, err := h.service.Finish(r.Context(), req.TranscriptID, req.DurationSeconds)
	if err != nil {
		if errors.Is(err, transcript.ErrTranscriptNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Transcript not found", "")
			return
		}
		h.logger.Error("finish failed", "transcript_id", req.TranscriptID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Server error", "")
		return
	}

	h.writeJSON(w, http.StatusOK, FinishResponse{OK: true, Text: text})
}

func (h *Handler) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	userID, err := h.auth.UserID(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	transcripts, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list transcripts failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Server error", "")
		return
	}
	if transcripts == nil {
		transcripts = []*store.Transcript{}
	}

	h.writeJSON(w, http.StatusOK, TranscriptsResponse{
		Transcripts: transcripts,
		Total:       len(transcripts),
	})
}

func (h *Handler) handleDictionary(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.UserID(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	switch r.Method {
	case http.MethodGet:
		entries, err := h.service.ListDictionary(r.Context(), userID)
		if err != nil {
			h.logger.Error("list dictionary failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal_error", "Server error", "")
			return
		}
		if entries == nil {
			entries = []*store.DictionaryEntry{}
		}
		h.writeJSON(w, http.StatusOK, DictionaryResponse{Entries: entries, Total: len(entries)})

	case http.MethodPost:
		var req DictionaryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
			return
		}
		if strings.TrimSpace(req.Phrase) == "" {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing phrase", "")
			return
		}

		entry, err := h.service.AddDictionaryEntry(r.Context(), userID, strings.TrimSpace(req.Phrase), strings.TrimSpace(req.Replacement))
		if err != nil {
			h.logger.Error("add dictionary entry failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal_error", "Server error", "")
			return
		}
		h.writeJSON(w, http.StatusCreated, entry)

	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET or POST", "")
	}
}

func (h *Handler) handleDictionaryDelete(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodDelete {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use DELETE", "")
		return
	}

	userID, err := h.auth.UserID(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	if err := h.service.DeleteDictionaryEntry(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Dictionary entry not found", "")
			return
		}
		h.logger.Error("delete dictionary entry failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Server error", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	h.writeJSON(w, status, resp)
}
