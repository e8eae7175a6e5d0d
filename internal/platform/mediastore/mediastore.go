// Package mediastore persists uploaded report documents. It defines the
// Store interface, a filesystem implementation used in production, and an
// in-memory implementation for tests.
package mediastore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrTooLarge        = errors.New("document exceeds maximum allowed size")
	ErrMissingFileName = errors.New("file name is required")
	ErrOutsideRoot     = errors.New("reference escapes the store root")
)

// MaxDocumentSize caps a single stored document (25 MB).
const MaxDocumentSize = 25 * 1024 * 1024

// Store persists report documents and hands back opaque references. A
// reference stays valid until Remove is called with it.
type Store interface {
	Save(filename string, data []byte) (string, error)
	Open(ref string) (io.ReadCloser, error)
	Remove(ref string) error
}

// FSStore keeps documents under <root>/reports, each prefixed with an upload
// timestamp so repeat uploads of the same filename never collide.
type FSStore struct {
	root string
	now  func() time.Time
}

func NewFSStore(root string) *FSStore {
	return &FSStore{root: root, now: time.Now}
}

func (s *FSStore) Save(filename string, data []byte) (string, error) {
	name := sanitizeFileName(filename)
	if name == "" {
		return "", ErrMissingFileName
	}
	if len(data) > MaxDocumentSize {
		return "", ErrTooLarge
	}

	dir := filepath.Join(s.root, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	ref := filepath.Join(dir, fmt.Sprintf("%d_%s", s.now().UnixNano(), name))
	if err := os.WriteFile(ref, data, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return ref, nil
}

func (s *FSStore) Open(ref string) (io.ReadCloser, error) {
	if err := s.contain(ref); err != nil {
		return nil, err
	}
	f, err := os.Open(ref)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *FSStore) Remove(ref string) error {
	if err := s.contain(ref); err != nil {
		return err
	}
	err := os.Remove(ref)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// contain rejects references that resolve outside the store root.
func (s *FSStore) contain(ref string) error {
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return err
	}
	refAbs, err := filepath.Abs(ref)
	if err != nil {
		return err
	}
	if refAbs != rootAbs && !strings.HasPrefix(refAbs, rootAbs+string(filepath.Separator)) {
		return ErrOutsideRoot
	}
	return nil
}

// sanitizeFileName strips any path component and characters that are unsafe
// in a filename.
func sanitizeFileName(filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

// MemStore is a thread-safe in-memory Store for tests.
type MemStore struct {
	mu   sync.RWMutex
	next int
	docs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

func (s *MemStore) Save(filename string, data []byte) (string, error) {
	if sanitizeFileName(filename) == "" {
		return "", ErrMissingFileName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	ref := fmt.Sprintf("mem://%d_%s", s.next, sanitizeFileName(filename))
	s.docs[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (s *MemStore) Open(ref string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemStore) Remove(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[ref]; !ok {
		return ErrNotFound
	}
	delete(s.docs, ref)
	return nil
}

// Refs returns the references currently held, for test assertions.
func (s *MemStore) Refs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for ref := range s.docs {
		out = append(out, ref)
	}
	return out
}
