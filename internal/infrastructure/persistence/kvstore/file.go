package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILE BACKEND
// ══════════════════════════════════════════════════════════════════════════════

// FileBackend persists the key-value map as a single JSON document on disk.
// This is the closest analog to browser local storage: one small local blob,
// synchronous writes, no external process. Every mutation rewrites the file
// through a temp-file rename so a crash never leaves a half-written document.
type FileBackend struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// NewFileBackend opens (or creates) the document at path and loads it.
func NewFileBackend(path string) (*FileBackend, error) {
	b := &FileBackend{
		path: path,
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("kvstore: opening %s: %w", path, err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &b.data); err != nil {
			return nil, fmt.Errorf("kvstore: %s is not a valid store document: %w", path, err)
		}
	}
	return b, nil
}

// GetRaw implements Backend.
func (b *FileBackend) GetRaw(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.data[key]
	return v, ok, nil
}

// SetRaw implements Backend.
func (b *FileBackend) SetRaw(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, had := b.data[key]
	b.data[key] = value
	if err := b.flushLocked(); err != nil {
		if had {
			b.data[key] = prev
		} else {
			delete(b.data, key)
		}
		return err
	}
	return nil
}

// DeleteRaw implements Backend.
func (b *FileBackend) DeleteRaw(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, had := b.data[key]
	if !had {
		return nil
	}
	delete(b.data, key)
	if err := b.flushLocked(); err != nil {
		b.data[key] = prev
		return err
	}
	return nil
}

// Keys implements Backend.
func (b *FileBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Backend.
func (b *FileBackend) Close() error {
	return nil
}

// flushLocked rewrites the document atomically. Caller holds the lock.
func (b *FileBackend) flushLocked() error {
	raw, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return fmt.Errorf("kvstore: encoding store document: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("kvstore: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".journal-*.tmp")
	if err != nil {
		return fmt.Errorf("kvstore: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("kvstore: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kvstore: closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kvstore: replacing %s: %w", b.path, err)
	}
	return nil
}
