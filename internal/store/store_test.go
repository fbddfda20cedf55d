package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// storeBackends returns both implementations so every contract test runs
// against SQLite and the memory store.
func storeBackends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestCreateAndGetTranscript(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			tr := &Transcript{ID: "t1", UserID: "u1"}
			if err := s.CreateTranscript(ctx, tr); err != nil {
				t.Fatalf("CreateTranscript() error = %v", err)
			}

			got, err := s.GetTranscript(ctx, "t1")
			if err != nil {
				t.Fatalf("GetTranscript() error = %v", err)
			}
			if got == nil {
				t.Fatal("GetTranscript() returned nil for existing transcript")
			}
			if got.Status != StatusProcessing {
				t.Errorf("Status = %v, want %v", got.Status, StatusProcessing)
			}
			if got.DurationSeconds != nil {
				t.Errorf("DurationSeconds = %v, want nil", *got.DurationSeconds)
			}

			missing, err := s.GetTranscript(ctx, "nope")
			if err != nil {
				t.Fatalf("GetTranscript(missing) error = %v", err)
			}
			if missing != nil {
				t.Error("GetTranscript(missing) should return nil")
			}
		})
	}
}

func TestUpsertSlice_OverwritesSameIndex(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.CreateTranscript(ctx, &Transcript{ID: "t1", UserID: "u1"}); err != nil {
				t.Fatal(err)
			}

			first := &Slice{TranscriptID: "t1", ChunkIndex: 1, Text: "world", Status: StatusDone}
			if err := s.UpsertSlice(ctx, first); err != nil {
				t.Fatalf("UpsertSlice() error = %v", err)
			}

			second := &Slice{TranscriptID: "t1", ChunkIndex: 1, Text: "world!", Status: StatusDone}
			if err := s.UpsertSlice(ctx, second); err != nil {
				t.Fatalf("UpsertSlice() second error = %v", err)
			}

			slices, err := s.ListSlices(ctx, "t1")
			if err != nil {
				t.Fatalf("ListSlices() error = %v", err)
			}
			if len(slices) != 1 {
				t.Fatalf("len(slices) = %d, want 1 (upsert must not duplicate)", len(slices))
			}
			if slices[0].Text != "world!" {
				t.Errorf("Text = %q, want %q (latest write wins)", slices[0].Text, "world!")
			}
		})
	}
}

func TestListSlices_OrderedByChunkIndex(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.CreateTranscript(ctx, &Transcript{ID: "t1", UserID: "u1"}); err != nil {
				t.Fatal(err)
			}

			// Insert out of order, as concurrent workers would.
			for _, idx := range []int{3, 0, 2, 1} {
				sl := &Slice{TranscriptID: "t1", ChunkIndex: idx, Text: "x", Status: StatusDone}
				if err := s.UpsertSlice(ctx, sl); err != nil {
					t.Fatal(err)
				}
			}

			slices, err := s.ListSlices(ctx, "t1")
			if err != nil {
				t.Fatalf("ListSlices() error = %v", err)
			}
			if len(slices) != 4 {
				t.Fatalf("len(slices) = %d, want 4", len(slices))
			}
			for i, sl := range slices {
				if sl.ChunkIndex != i {
					t.Errorf("slices[%d].ChunkIndex = %d, want %d", i, sl.ChunkIndex, i)
				}
			}
		})
	}
}

func TestFinishTranscript(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.CreateTranscript(ctx, &Transcript{ID: "t1", UserID: "u1"}); err != nil {
				t.Fatal(err)
			}

			duration := 42
			if err := s.FinishTranscript(ctx, "t1", "hello world", &duration); err != nil {
				t.Fatalf("FinishTranscript() error = %v", err)
			}

			got, err := s.GetTranscript(ctx, "t1")
			if err != nil {
				t.Fatal(err)
			}
			if got.Status != StatusDone {
				t.Errorf("Status = %v, want %v", got.Status, StatusDone)
			}
			if got.Text != "hello world" {
				t.Errorf("Text = %q, want %q", got.Text, "hello world")
			}
			if got.DurationSeconds == nil || *got.DurationSeconds != 42 {
				t.Errorf("DurationSeconds = %v, want 42", got.DurationSeconds)
			}

			if err := s.FinishTranscript(ctx, "missing", "", nil); err != ErrNotFound {
				t.Errorf("FinishTranscript(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestFinishTranscript_NilDurationLeavesUnset(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.CreateTranscript(ctx, &Transcript{ID: "t1", UserID: "u1"}); err != nil {
				t.Fatal(err)
			}
			if err := s.FinishTranscript(ctx, "t1", "text", nil); err != nil {
				t.Fatalf("FinishTranscript() error = %v", err)
			}

			got, _ := s.GetTranscript(ctx, "t1")
			if got.DurationSeconds != nil {
				t.Errorf("DurationSeconds = %v, want nil", *got.DurationSeconds)
			}
		})
	}
}

func TestListTranscripts_RecencyAndLimit(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)

			for i := 0; i < 5; i++ {
				tr := &Transcript{
					ID:        "t" + string(rune('0'+i)),
					UserID:    "u1",
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				}
				if err := s.CreateTranscript(ctx, tr); err != nil {
					t.Fatal(err)
				}
			}
			// Another user's transcript must not leak into the listing.
			if err := s.CreateTranscript(ctx, &Transcript{ID: "other", UserID: "u2"}); err != nil {
				t.Fatal(err)
			}

			got, err := s.ListTranscripts(ctx, "u1", 3)
			if err != nil {
				t.Fatalf("ListTranscripts() error = %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("len = %d, want 3", len(got))
			}
			if got[0].ID != "t4" {
				t.Errorf("got[0].ID = %v, want t4 (newest first)", got[0].ID)
			}
		})
	}
}

func TestDictionary(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)

			entries := []*DictionaryEntry{
				{ID: "d1", UserID: "u1", Phrase: "Kubernetes", CreatedAt: base},
				{ID: "d2", UserID: "u1", Phrase: "VoxNote", Replacement: "vox note", CreatedAt: base.Add(time.Minute)},
				{ID: "d3", UserID: "u2", Phrase: "other"},
			}
			for _, e := range entries {
				if err := s.CreateEntry(ctx, e); err != nil {
					t.Fatalf("CreateEntry() error = %v", err)
				}
			}

			phrases, err := s.ListPhrases(ctx, "u1")
			if err != nil {
				t.Fatalf("ListPhrases() error = %v", err)
			}
			if len(phrases) != 2 {
				t.Fatalf("len(phrases) = %d, want 2", len(phrases))
			}
			if phrases[0] != "VoxNote" || phrases[1] != "Kubernetes" {
				t.Errorf("phrases = %v, want newest first", phrases)
			}

			if err := s.DeleteEntry(ctx, "u1", "d1"); err != nil {
				t.Fatalf("DeleteEntry() error = %v", err)
			}
			if err := s.DeleteEntry(ctx, "u1", "d3"); err != ErrNotFound {
				t.Errorf("DeleteEntry(foreign entry) error = %v, want ErrNotFound", err)
			}

			listed, err := s.ListEntries(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			if len(listed) != 1 || listed[0].ID != "d2" {
				t.Errorf("ListEntries() = %v, want only d2", listed)
			}
		})
	}
}
