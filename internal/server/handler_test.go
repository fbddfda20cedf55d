package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxnote/voxnote/internal/auth"
	"github.com/voxnote/voxnote/internal/store"
	"github.com/voxnote/voxnote/internal/stt"
	"github.com/voxnote/voxnote/internal/transcript"
	"github.com/voxnote/voxnote/pkg/core/health"
)

// echoRecognizer returns a fixed text for every chunk
type echoRecognizer struct {
	text string
}

func (r *echoRecognizer) TranscribeFile(ctx context.Context, path, prompt string) (stt.Result, error) {
	return stt.Result{Text: r.text}, nil
}

func (r *echoRecognizer) Close() error { return nil }

func newTestHandler(t *testing.T, rec stt.Transcriber) (*Handler, *transcript.Service) {
	t.Helper()

	svc, err := transcript.NewService(transcript.Config{
		Store:      store.NewMemoryStore(),
		Recognizer: rec,
		ChunkDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	h := NewHandler(svc, auth.New(""), NewHub(), testRegistry(svc))
	return h, svc
}

func testRegistry(svc *transcript.Service) *health.Registry {
	registry := health.NewRegistry("voxnote", "test")
	registry.Register(health.PingCheck("store", svc.Ping))
	return registry
}

func startTranscript(t *testing.T, h *Handler) string {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/transcribe/start", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp StartResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode start response: %v", err)
	}
	if resp.TranscriptID == "" {
		t.Fatal("start returned empty transcriptId")
	}
	return resp.TranscriptID
}

func sliceRequest(t *testing.T, transcriptID, chunkIndex string, withFile bool) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if transcriptID != "" {
		mw.WriteField("transcriptId", transcriptID)
	}
	if chunkIndex != "" {
		mw.WriteField("chunkIndex", chunkIndex)
	}
	if withFile {
		fw, err := mw.CreateFormFile("file", "chunk-0.wav")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("RIFF fake audio"))
	}
	mw.Close()

	r := httptest.NewRequest("POST", "/api/v1/transcribe/slice", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestHandleStart(t *testing.T) {
	h, _ := newTestHandler(t, &echoRecognizer{})
	startTranscript(t, h)
}

func TestHandleSlice(t *testing.T) {
	h, _ := newTestHandler(t, &echoRecognizer{text: "hello world"})
	id := startTranscript(t, h)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, sliceRequest(t, id, "0", true))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp SliceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK {
		t.Error("ok = false, want true")
	}
	if resp.Merged != "hello world" {
		t.Errorf("merged = %q, want %q", resp.Merged, "hello world")
	}
}

func TestHandleSlice_MissingMetadata(t *testing.T) {
	h, _ := newTestHandler(t, &echoRecognizer{})
	id := startTranscript(t, h)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"no file", sliceRequest(t, id, "0", false)},
		{"no transcriptId", sliceRequest(t, "", "0", true)},
		{"no chunkIndex", sliceRequest(t, id, "", true)},
		{"bad chunkIndex", sliceRequest(t, id, "abc", true)},
		{"negative chunkIndex", sliceRequest(t, id, "-1", true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, tt.req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleSlice_UnknownTranscript(t *testing.T) {
	h, _ := newTestHandler(t, &echoRecognizer{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, sliceRequest(t, "does-not-exist", "0", true))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleFinish(t *testing.T) {
	h, svc := newTestHandler(t, &echoRecognizer{text: "hello"})
	id := startTranscript(t, h)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, sliceRequest(t, id, "0", true))
	if w.Code != http.StatusOK {
		t.Fatalf("slice status = %d", w.Code)
	}

	body := strings.NewReader(`{"transcriptId":"` + id + `","durationSeconds":7.6}`)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/transcribe/finish", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp FinishResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Text != "hello" {
		t.Errorf("text = %q, want %q", resp.Text, "hello")
	}

	tr, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Status != store.StatusDone {
		t.Errorf("status = %v, want %v", tr.Status, store.StatusDone)
	}
	if tr.DurationSeconds == nil || *tr.DurationSeconds != 8 {
		t.Errorf("durationSeconds = %v, want 8", tr.DurationSeconds)
	}
}

func TestHandleFinish_Validation(t *testing.T) {
	h, _ := newTestHandler(t, &echoRecognizer{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/transcribe/finish", strings.NewReader(`{}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing transcriptId: status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/transcribe/finish",
		strings.NewReader(`{"transcriptId":"missing"}`)))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown transcript: status = %d, want 404", w.Code)
	}
}

func TestHandleTranscripts(t *testing.T) {
	h, _ := newTestHandler(t, &echoRecognizer{})
	for i := 0; i < 3; i++ {
		startTranscript(t, h)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/transcripts?limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp TranscriptsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}

func TestHandleDictionary(t *testing.T) {
	h, _ := newTestHandler(t, &echoRecognizer{})

	// Create
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/dictionary",
		strings.NewReader(`{"phrase":"VoxNote","replacement":"vox note"}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	var entry store.DictionaryEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}

	// Empty phrase rejected
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/dictionary", strings.NewReader(`{"phrase":"  "}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty phrase status = %d, want 400", w.Code)
	}

	// List
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/dictionary", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list DictionaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Entries[0].Phrase != "VoxNote" {
		t.Errorf("list = %+v, want one VoxNote entry", list)
	}

	// Delete
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/dictionary/"+entry.ID, nil))
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/dictionary/"+entry.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	svc, err := transcript.NewService(transcript.Config{
		Store:      store.NewMemoryStore(),
		Recognizer: stt.NewDisabled(),
		ChunkDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}
	authn := auth.New("test-secret")
	h := NewHandler(svc, authn, NewHub(), testRegistry(svc))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/transcribe/start", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	token, err := authn.Sign("u1", "")
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest("POST", "/api/v1/transcribe/start", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestHandler(t, &echoRecognizer{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var report health.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != health.StatusHealthy {
		t.Errorf("status = %q, want healthy", report.Status)
	}
	if len(report.Checks) != 1 || report.Checks[0].Name != "store" {
		t.Errorf("checks = %+v, want a single store check", report.Checks)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, &echoRecognizer{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
