package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoriesRoundTrip(t *testing.T) {
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	m, err := d.LoadMemories()
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Entries) != 0 {
		t.Fatal("fresh store should have no memories")
	}

	m.Entries = []string{"luigi likes trains", "the server has a shrine channel"}
	if err := d.SaveMemories(m); err != nil {
		t.Fatal(err)
	}
	got, err := d.LoadMemories()
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 2 || got.Entries[0] != "luigi likes trains" {
		t.Fatalf("got %v", got.Entries)
	}
	if got.LastUpdated.IsZero() {
		t.Fatal("save should stamp LastUpdated")
	}
}

func TestDossierRoundTrip(t *testing.T) {
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SaveDossier(Dossier{Text: "mario: polite"}); err != nil {
		t.Fatal(err)
	}
	got, err := d.LoadDossier()
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "mario: polite" {
		t.Fatalf("got %q", got.Text)
	}
}

func TestCompactMemories(t *testing.T) {
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SaveMemories(Memories{Entries: []string{"one", "two", "three", "four"}}); err != nil {
		t.Fatal(err)
	}

	removed, err := d.CompactMemories(2)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	got, _ := d.LoadMemories()
	if len(got.Entries) != 2 || got.Entries[0] != "three" {
		t.Fatalf("newest entries should survive, got %v", got.Entries)
	}

	// Under the cap is a no-op.
	removed, err = d.CompactMemories(10)
	if err != nil || removed != 0 {
		t.Fatalf("removed = %d, err = %v", removed, err)
	}
}

func TestBlocklist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocklist.txt")
	content := "# staff rooms\nmod-channel\n123456789\n\nsecret # inline note\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := NewBlocklist(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		id, name string
		want     bool
	}{
		{"999", "mod-channel", true},
		{"123456789", "anything", true},
		{"999", "the-secret-lair", true}, // substring match
		{"999", "general", false},
		{"999", "", false},
	}
	for _, tc := range cases {
		if got := b.Blocked(tc.id, tc.name); got != tc.want {
			t.Errorf("Blocked(%q, %q) = %v, want %v", tc.id, tc.name, got, tc.want)
		}
	}
}

func TestBlocklistMissingFile(t *testing.T) {
	b, err := NewBlocklist(filepath.Join(t.TempDir(), "absent.txt"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if b.Blocked("1", "general") {
		t.Fatal("missing file should block nothing")
	}
}

func TestBlocklistReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocklist.txt")
	if err := os.WriteFile(path, []byte("old-channel\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := NewBlocklist(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("new-channel\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := b.Reload(); err != nil {
		t.Fatal(err)
	}
	if b.Blocked("1", "old-channel") || !b.Blocked("1", "new-channel") {
		t.Fatal("reload should replace the entry set")
	}
}

func TestSoundLibrary(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp3", "b.WAV", "notes.txt", "c.ogg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}

	lib := NewSoundLibrary(dir, []string{".mp3", "wav"})
	tracks := lib.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("expected a.mp3 and b.WAV, got %v", tracks)
	}

	// New files show up without a restart.
	if err := os.WriteFile(filepath.Join(dir, "d.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if len(lib.Tracks()) != 3 {
		t.Fatal("library should pick up new files on rescan")
	}
}

func TestSoundLibraryMissingDir(t *testing.T) {
	lib := NewSoundLibrary(filepath.Join(t.TempDir(), "absent"), []string{"mp3"})
	if got := lib.Tracks(); len(got) != 0 {
		t.Fatalf("missing dir should be empty, got %v", got)
	}
}
