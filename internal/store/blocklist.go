package store

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Blocklist is the set of channels the bot must stay out of, loaded from a
// text file with one entry per line. Entries may be channel IDs or channel
// names; `#` starts a comment.
type Blocklist struct {
	path string
	log  *slog.Logger

	mu      sync.RWMutex
	entries []string
}

// NewBlocklist loads the blocklist file. A missing file is an empty list.
func NewBlocklist(path string, log *slog.Logger) (*Blocklist, error) {
	b := &Blocklist{path: path, log: log}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload re-reads the file, replacing the in-memory set.
func (b *Blocklist) Reload() error {
	f, err := os.Open(b.path)
	if os.IsNotExist(err) {
		b.mu.Lock()
		b.entries = nil
		b.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("open blocklist: %w", err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		entries = append(entries, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read blocklist: %w", err)
	}

	b.mu.Lock()
	b.entries = entries
	b.mu.Unlock()
	return nil
}

// Blocked reports whether a channel matches any entry, by ID, by exact name,
// or by the entry appearing inside the name.
func (b *Blocklist) Blocked(channelID, channelName string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	name := strings.ToLower(channelName)
	for _, e := range b.entries {
		if e == channelID || e == name {
			return true
		}
		if name != "" && strings.Contains(name, e) {
			return true
		}
	}
	return false
}

// Watch reloads the blocklist whenever its file changes, until ctx is done.
// Editors replace files rather than writing in place, so the watch is on the
// parent directory with events filtered to our path.
func (b *Blocklist) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(b.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(b.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := b.Reload(); err != nil {
				b.log.Warn("blocklist reload failed", "error", err)
				continue
			}
			b.log.Info("blocklist reloaded", "path", b.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.log.Warn("blocklist watcher error", "error", err)
		}
	}
}
