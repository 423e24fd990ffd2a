package store

import (
	"os"
	"path/filepath"
	"strings"
)

// SoundLibrary lists playable audio files from a directory. The directory is
// re-read on every call so files can be added or removed while the bot runs.
type SoundLibrary struct {
	dir  string
	exts map[string]bool
}

// NewSoundLibrary creates a library over dir accepting the given extensions
// (with or without the leading dot).
func NewSoundLibrary(dir string, exts []string) *SoundLibrary {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(e, "."))
		if e != "" {
			allowed["."+e] = true
		}
	}
	return &SoundLibrary{dir: dir, exts: allowed}
}

// Tracks returns the full paths of matching files. An unreadable or missing
// directory is an empty library, not an error.
func (l *SoundLibrary) Tracks() []string {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil
	}
	var tracks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if l.exts[strings.ToLower(filepath.Ext(entry.Name()))] {
			tracks = append(tracks, filepath.Join(l.dir, entry.Name()))
		}
	}
	return tracks
}
