// Package sink encodes compiled models and stores them.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Model is one encoded model.
type Model struct {
	// Name is the base name without extension, e.g. "api".
	Name string

	Format  Format
	Content []byte
}

// Path returns the file name of m: its name plus the format extension.
func (m Model) Path() string {
	return m.Name + m.Format.Ext()
}

// check rejects names that are not a single plain file name.
func (m Model) check() error {
	switch {
	case m.Name == "":
		return errors.New("sink: empty model name")
	case m.Name == "." || m.Name == "..", strings.ContainsAny(m.Name, `/\:`):
		return fmt.Errorf("sink: model name %q is not a file name", m.Name)
	}
	return nil
}

// Sink stores encoded models. Implementations must be safe for concurrent
// calls.
type Sink interface {
	// Put stores m and returns its path relative to the sink.
	Put(ctx context.Context, m Model) (string, error)
}

// FilesystemSink stores models as files in a directory.
type FilesystemSink struct {
	// Root is the output directory. It is created on the first Put.
	Root string

	// Mode is the file permission mode (default: 0644).
	Mode os.FileMode

	// Overwrite replaces an existing model file. When false, storing a
	// model whose file exists fails.
	Overwrite bool
}

// NewFilesystemSink returns a FilesystemSink writing to root that replaces
// existing files.
func NewFilesystemSink(root string) *FilesystemSink {
	return &FilesystemSink{Root: root, Mode: 0o644, Overwrite: true}
}

// Put writes m to Root. Readers see either the previous file or the whole
// new one.
func (s *FilesystemSink) Put(ctx context.Context, m Model) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return "", fmt.Errorf("sink: create output directory: %w", err)
	}

	mode := s.Mode
	if mode == 0 {
		mode = 0o644
	}
	path := m.Path()
	err := writeAtomic(ctx, filepath.Join(s.Root, path), m.Content, mode, s.Overwrite)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("sink: %s already exists", path)
	}
	if err != nil {
		return "", fmt.Errorf("sink: write %s: %w", path, err)
	}
	return path, nil
}

// writeAtomic writes content to a temp file next to target and moves it
// into place. Without replace, an existing target fails with os.ErrExist.
func writeAtomic(ctx context.Context, target string, content []byte, mode os.FileMode, replace bool) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tyrest-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(name)
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	if replace {
		return os.Rename(name, target)
	}
	// Link refuses an existing target.
	if err = os.Link(name, target); err != nil {
		return err
	}
	return os.Remove(name)
}

// WriterSink streams every model to one writer in call order.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
	n  int
}

// NewWriterSink returns a sink writing to w, typically os.Stdout.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Put writes m.Content. YAML models after the first are preceded by a
// document separator so the stream stays parseable.
func (s *WriterSink) Put(ctx context.Context, m Model) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n > 0 && m.Format == FormatYAML {
		if _, err := io.WriteString(s.w, "---\n"); err != nil {
			return "", err
		}
	}
	if _, err := s.w.Write(m.Content); err != nil {
		return "", err
	}
	s.n++
	return m.Path(), nil
}

// MemorySink keeps models in memory, keyed by path.
type MemorySink struct {
	mu     sync.RWMutex
	models map[string]Model
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{models: make(map[string]Model)}
}

// Put stores a copy of m, replacing a model with the same path.
func (s *MemorySink) Put(ctx context.Context, m Model) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.Content = slices.Clone(m.Content)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.Path()] = m
	return m.Path(), nil
}

// Get returns a copy of the model stored at path.
func (s *MemorySink) Get(path string) (Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[path]
	m.Content = slices.Clone(m.Content)
	return m, ok
}

// Paths returns the stored paths in sorted order.
func (s *MemorySink) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.models))
}

// Reset drops every stored model.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.models)
}
