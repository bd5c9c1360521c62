package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phueapi.json")
	s := NewFileStore(path)

	// Absence of the file is not an error.
	creds, err := s.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error: %v", err)
	}
	if creds != nil {
		t.Fatalf("Load() on missing file = %v, want nil", creds)
	}

	want := &Credentials{IP: "192.168.1.10", Username: "abcdef"}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	creds, err = s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if creds == nil || *creds != *want {
		t.Errorf("Load() = %v, want %v", creds, want)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Clear() should remove the file")
	}

	// Clearing twice is fine.
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear() error: %v", err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phueapi.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path)
	if _, err := s.Load(); err == nil {
		t.Error("Load() on corrupt file should fail")
	}
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairing.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	defer s.Close()

	creds, err := s.Load()
	if err != nil {
		t.Fatalf("Load() on empty store error: %v", err)
	}
	if creds != nil {
		t.Fatalf("Load() on empty store = %v, want nil", creds)
	}

	want := &Credentials{IP: "192.168.1.10", Username: "abcdef"}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Saving again overwrites the single row.
	want.Username = "ghijkl"
	if err := s.Save(want); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	creds, err = s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if creds == nil || *creds != *want {
		t.Errorf("Load() = %v, want %v", creds, want)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	creds, err = s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if creds != nil {
		t.Errorf("Load() after Clear() = %v, want nil", creds)
	}
}
