package transcript

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/voxnote/voxnote/internal/store"
	"github.com/voxnote/voxnote/internal/stt"
)

// scriptedRecognizer returns queued results and records the prompts it saw
type scriptedRecognizer struct {
	texts   []string
	errs    []error
	prompts []string
	calls   int
}

func (r *scriptedRecognizer) TranscribeFile(ctx context.Context, path, prompt string) (stt.Result, error) {
	i := r.calls
	r.calls++
	r.prompts = append(r.prompts, prompt)

	if i < len(r.errs) && r.errs[i] != nil {
		return stt.Result{}, r.errs[i]
	}
	if i < len(r.texts) {
		return stt.Result{Text: r.texts[i]}, nil
	}
	return stt.Result{}, nil
}

func (r *scriptedRecognizer) Close() error { return nil }

// recordingNotifier keeps the last merged text per transcript
type recordingNotifier struct {
	last map[string]string
}

func (n *recordingNotifier) NotifyMerged(transcriptID, merged string) {
	if n.last == nil {
		n.last = map[string]string{}
	}
	n.last[transcriptID] = merged
}

func newTestService(t *testing.T, rec stt.Transcriber) (*Service, store.Store) {
	t.Helper()

	st := store.NewMemoryStore()
	svc, err := NewService(Config{
		Store:      st,
		Recognizer: rec,
		ChunkDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, st
}

func ingest(t *testing.T, svc *Service, transcriptID string, chunkIndex int) string {
	t.Helper()

	merged, err := svc.IngestSlice(context.Background(), transcriptID, chunkIndex, strings.NewReader("audio"), "chunk.wav")
	if err != nil {
		t.Fatalf("IngestSlice(%d) error = %v", chunkIndex, err)
	}
	return merged
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  string
	}{
		{"empty", nil, ""},
		{"single", []string{"hello"}, "hello"},
		{"two slices", []string{"hello", "world"}, "hello world"},
		{"empty slice leaves no gap", []string{"hello", "", "world"}, "hello world"},
		{"whitespace collapsed", []string{"  hello \n", "\tworld  "}, "hello world"},
		{"all empty", []string{"", "", ""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slices := make([]*store.Slice, len(tt.texts))
			for i, text := range tt.texts {
				slices[i] = &store.Slice{ChunkIndex: i, Text: text}
			}
			if got := Merge(slices); got != tt.want {
				t.Errorf("Merge() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIngestSlice_MergesInOrder(t *testing.T) {
	rec := &scriptedRecognizer{texts: []string{"world", "hello"}}
	svc, _ := newTestService(t, rec)
	ctx := context.Background()

	tr, err := svc.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if tr.Status != store.StatusProcessing {
		t.Errorf("Status = %v, want %v", tr.Status, store.StatusProcessing)
	}

	// Chunks arrive out of order, the merge must still follow chunk index
	ingest(t, svc, tr.ID, 1)
	merged := ingest(t, svc, tr.ID, 0)

	if merged != "hello world" {
		t.Errorf("merged = %q, want %q", merged, "hello world")
	}

	got, err := svc.Get(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "hello world" {
		t.Errorf("stored text = %q, want %q", got.Text, "hello world")
	}
	if got.Status != store.StatusProcessing {
		t.Errorf("Status = %v, ingest must not mark the transcript done", got.Status)
	}
}

func TestIngestSlice_ReuploadOverwrites(t *testing.T) {
	rec := &scriptedRecognizer{texts: []string{"hello", "world", "world!"}}
	svc, st := newTestService(t, rec)
	ctx := context.Background()

	tr, _ := svc.Start(ctx, "u1")

	ingest(t, svc, tr.ID, 0)
	ingest(t, svc, tr.ID, 1)
	merged := ingest(t, svc, tr.ID, 1)

	if merged != "hello world!" {
		t.Errorf("merged = %q, want %q", merged, "hello world!")
	}

	slices, err := st.ListSlices(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(slices) != 2 {
		t.Errorf("len(slices) = %d, want 2 (re-upload must not duplicate)", len(slices))
	}
}

func TestIngestSlice_UnknownTranscript(t *testing.T) {
	svc, _ := newTestService(t, &scriptedRecognizer{})

	_, err := svc.IngestSlice(context.Background(), "missing", 0, strings.NewReader("audio"), "chunk.wav")
	if !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("IngestSlice() error = %v, want ErrTranscriptNotFound", err)
	}
}

func TestIngestSlice_RecognitionFailureStoresEmptyText(t *testing.T) {
	rec := &scriptedRecognizer{
		texts: []string{"hello", "", "again"},
		errs:  []error{nil, errors.New("recognizer down"), nil},
	}
	svc, st := newTestService(t, rec)
	ctx := context.Background()

	tr, _ := svc.Start(ctx, "u1")
	ingest(t, svc, tr.ID, 0)
	ingest(t, svc, tr.ID, 1) // fails, must not error the upload
	merged := ingest(t, svc, tr.ID, 2)

	if merged != "hello again" {
		t.Errorf("merged = %q, want %q (failed slice leaves no placeholder)", merged, "hello again")
	}

	slices, _ := st.ListSlices(ctx, tr.ID)
	if len(slices) != 3 {
		t.Fatalf("len(slices) = %d, want 3", len(slices))
	}
	if slices[1].Text != "" {
		t.Errorf("failed slice text = %q, want empty", slices[1].Text)
	}
	if slices[1].Status != store.StatusDone {
		t.Errorf("failed slice status = %v, want %v", slices[1].Status, store.StatusDone)
	}
}

func TestIngestSlice_DictionaryFetchedPerSlice(t *testing.T) {
	rec := &scriptedRecognizer{texts: []string{"a", "b"}}
	svc, _ := newTestService(t, rec)
	ctx := context.Background()

	tr, _ := svc.Start(ctx, "u1")
	ingest(t, svc, tr.ID, 0)

	// Entry added mid-recording must influence the very next slice
	if _, err := svc.AddDictionaryEntry(ctx, "u1", "Kubernetes", ""); err != nil {
		t.Fatalf("AddDictionaryEntry() error = %v", err)
	}
	ingest(t, svc, tr.ID, 1)

	if strings.Contains(rec.prompts[0], "Kubernetes") {
		t.Errorf("first prompt should not contain the phrase: %q", rec.prompts[0])
	}
	if !strings.Contains(rec.prompts[1], "Kubernetes") {
		t.Errorf("second prompt should contain the phrase: %q", rec.prompts[1])
	}
}

func TestFinish(t *testing.T) {
	rec := &scriptedRecognizer{texts: []string{"hello", "world"}}
	svc, _ := newTestService(t, rec)
	ctx := context.Background()

	tr, _ := svc.Start(ctx, "u1")
	ingest(t, svc, tr.ID, 0)
	ingest(t, svc, tr.ID, 1)

	text, err := svc.Finish(ctx, tr.ID, 12.4)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}

	got, _ := svc.Get(ctx, tr.ID)
	if got.Status != store.StatusDone {
		t.Errorf("Status = %v, want %v", got.Status, store.StatusDone)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 12 {
		t.Errorf("DurationSeconds = %v, want 12", got.DurationSeconds)
	}
}

func TestFinish_InvalidDurationDiscarded(t *testing.T) {
	for _, duration := range []float64{0, -5, math.Inf(1), math.NaN()} {
		rec := &scriptedRecognizer{texts: []string{"x"}}
		svc, _ := newTestService(t, rec)
		ctx := context.Background()

		tr, _ := svc.Start(ctx, "u1")
		ingest(t, svc, tr.ID, 0)

		if _, err := svc.Finish(ctx, tr.ID, duration); err != nil {
			t.Fatalf("Finish(%v) error = %v", duration, err)
		}

		got, _ := svc.Get(ctx, tr.ID)
		if got.DurationSeconds != nil {
			t.Errorf("Finish(%v): DurationSeconds = %v, want nil", duration, *got.DurationSeconds)
		}
	}
}

func TestFinish_UnknownTranscript(t *testing.T) {
	svc, _ := newTestService(t, &scriptedRecognizer{})

	_, err := svc.Finish(context.Background(), "missing", 10)
	if !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("Finish() error = %v, want ErrTranscriptNotFound", err)
	}
}

func TestNotifier_ReceivesMergedText(t *testing.T) {
	rec := &scriptedRecognizer{texts: []string{"hello"}}
	svc, _ := newTestService(t, rec)
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	ctx := context.Background()

	tr, _ := svc.Start(ctx, "u1")
	ingest(t, svc, tr.ID, 0)

	if n.last[tr.ID] != "hello" {
		t.Errorf("notifier got %q, want %q", n.last[tr.ID], "hello")
	}
}

func TestDictionaryCRUD(t *testing.T) {
	svc, _ := newTestService(t, &scriptedRecognizer{})
	ctx := context.Background()

	e, err := svc.AddDictionaryEntry(ctx, "u1", "VoxNote", "vox note")
	if err != nil {
		t.Fatalf("AddDictionaryEntry() error = %v", err)
	}
	if e.ID == "" {
		t.Error("entry ID should be set")
	}

	if _, err := svc.AddDictionaryEntry(ctx, "u1", "", ""); err == nil {
		t.Error("empty phrase should be rejected")
	}

	entries, err := svc.ListDictionary(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Phrase != "VoxNote" {
		t.Errorf("ListDictionary() = %v, want one VoxNote entry", entries)
	}

	if err := svc.DeleteDictionaryEntry(ctx, "u1", e.ID); err != nil {
		t.Fatalf("DeleteDictionaryEntry() error = %v", err)
	}
	if err := svc.DeleteDictionaryEntry(ctx, "u1", e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}
