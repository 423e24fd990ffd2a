// Package store persists the bot's long-lived state: memories, the user
// dossier, the channel blocklist, and the sound library on disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	memoriesFile = "memories.json"
	dossierFile  = "dossier.json"
)

// Memories is the bot's long-term memory list.
type Memories struct {
	Entries     []string  `json:"memories"`
	LastUpdated time.Time `json:"last_updated"`
}

// Dossier is the bot's running notes on the people it talks to.
type Dossier struct {
	Text        string    `json:"dossier"`
	LastUpdated time.Time `json:"last_updated"`
}

// Data owns the JSON state files under one directory. Saves are atomic:
// written to a temp file and renamed into place.
type Data struct {
	dir string
	mu  sync.Mutex
}

// Open prepares the data directory.
func Open(dir string) (*Data, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Data{dir: dir}, nil
}

// LoadMemories reads the memory file. A missing file is an empty memory set.
func (d *Data) LoadMemories() (Memories, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var m Memories
	if err := d.load(memoriesFile, &m); err != nil {
		return Memories{}, err
	}
	return m, nil
}

// SaveMemories writes the memory file, stamping LastUpdated.
func (d *Data) SaveMemories(m Memories) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m.LastUpdated = time.Now().UTC()
	return d.save(memoriesFile, m)
}

// LoadDossier reads the dossier file. A missing file is an empty dossier.
func (d *Data) LoadDossier() (Dossier, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var doc Dossier
	if err := d.load(dossierFile, &doc); err != nil {
		return Dossier{}, err
	}
	return doc, nil
}

// SaveDossier writes the dossier file, stamping LastUpdated.
func (d *Data) SaveDossier(doc Dossier) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc.LastUpdated = time.Now().UTC()
	return d.save(dossierFile, doc)
}

// CompactMemories drops the oldest entries beyond max, keeping the newest.
// Returns how many were removed.
func (d *Data) CompactMemories(max int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if max <= 0 {
		return 0, nil
	}
	var m Memories
	if err := d.load(memoriesFile, &m); err != nil {
		return 0, err
	}
	if len(m.Entries) <= max {
		return 0, nil
	}
	removed := len(m.Entries) - max
	m.Entries = m.Entries[removed:]
	m.LastUpdated = time.Now().UTC()
	if err := d.save(memoriesFile, m); err != nil {
		return 0, err
	}
	return removed, nil
}

func (d *Data) load(name string, v any) error {
	raw, err := os.ReadFile(filepath.Join(d.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (d *Data) save(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(d.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
