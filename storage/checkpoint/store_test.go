package checkpoint

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLatest_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	runID := NewRunID()

	want := Snapshot{
		Epoch:      3.5,
		RegionSize: 64,
		Seed1:      11,
		Seed2:      22,
		Buf:        []byte{1, 2, 3, 4, 5},
	}

	if err := s.Save(runID, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Latest(runID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.Epoch != want.Epoch || got.RegionSize != want.RegionSize {
		t.Errorf("Latest() = %+v, want %+v", got, want)
	}
	if string(got.Buf) != string(want.Buf) {
		t.Errorf("Latest().Buf = %v, want %v", got.Buf, want.Buf)
	}
}

func TestLatest_MostRecentWins(t *testing.T) {
	s := openTestStore(t)
	runID := NewRunID()

	if err := s.Save(runID, Snapshot{Epoch: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(runID, Snapshot{Epoch: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Latest(runID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.Epoch != 2 {
		t.Errorf("Latest().Epoch = %v, want 2 (the later save)", got.Epoch)
	}
}

func TestLatest_NoRowsForUnknownRun(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Latest("no-such-run"); err == nil {
		t.Error("Latest(unknown run): want error, got nil")
	}
}

func TestOpen_RejectsMismatchedSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, schemaVersion+1); err != nil {
		t.Fatalf("bump schema_version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Error("Open with a future schema_version: want error, got nil")
	}
}
