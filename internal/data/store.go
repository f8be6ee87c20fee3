package data

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ldrbot/feishu-companion-bot/internal/pkg/metrics"
)

// DocumentStore owns the single JSON document holding all bot state.
// Every access takes the same lock and re-reads the file, so the file is
// the only source of truth and concurrent read-modify-write cycles are serialized.
type DocumentStore struct {
	path    string
	logger  *zap.Logger
	metrics *metrics.Metrics
	newID   func() string

	mu sync.Mutex
}

// StoreOption configures a DocumentStore
type StoreOption func(*DocumentStore)

// WithStoreMetrics records write results on m
func WithStoreMetrics(m *metrics.Metrics) StoreOption {
	return func(s *DocumentStore) {
		s.metrics = m
	}
}

// WithIDGenerator overrides the reminder id generator
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *DocumentStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewDocumentStore opens the document at path.
// A missing file is fine and reads as an empty document; an unreadable or
// corrupt one is reported here so the bot does not start on bad state.
func NewDocumentStore(path string, logger *zap.Logger, opts ...StoreOption) (*DocumentStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DocumentStore{
		path:   path,
		logger: logger,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Upgrade legacy documents up front so ids exist before anyone lists reminders
	if err := s.View(context.Background(), func(*Document) error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the document location
func (s *DocumentStore) Path() string {
	return s.path
}

// View runs fn on a freshly loaded document.
// Changes fn makes are discarded, except ids assigned to legacy records.
func (s *DocumentStore) View(ctx context.Context, fn func(*Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, upgraded, err := s.load()
	if err != nil {
		return err
	}
	if upgraded {
		if err := s.write(doc); err != nil {
			return err
		}
	}
	return fn(doc)
}

// Update runs fn on a freshly loaded document and persists the result.
// Nothing is written when fn returns an error.
func (s *DocumentStore) Update(ctx context.Context, fn func(*Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

// load reads the document; it reports whether legacy records received ids
func (s *DocumentStore) load() (*Document, bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return newDocument(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read document: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return newDocument(), false, nil
	}

	doc := newDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, false, fmt.Errorf("failed to decode document %s: %w", s.path, err)
	}
	upgraded := doc.assignMissingIDs(s.newID)
	if upgraded {
		s.logger.Info("assigned ids to legacy reminders", zap.String("path", s.path))
	}
	return doc, upgraded, nil
}

// write replaces the file atomically: temp file in the same directory, fsync, rename
func (s *DocumentStore) write(doc *Document) (err error) {
	defer func() {
		s.metrics.ObserveStoreWrite(err)
		if err != nil {
			s.logger.Error("document write failed", zap.String("path", s.path), zap.Error(err))
		}
	}()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}
