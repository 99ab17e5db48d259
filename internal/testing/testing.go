// package testing contains shared testing utilities
package testing

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/tunesync/internal/shared"
	"github.com/desertthunder/tunesync/internal/tags"
)

// FakeTagger is an in-memory [tags.Tagger]. It is safe for concurrent use.
type FakeTagger struct {
	mu     sync.Mutex
	fields map[string]tags.Fields
	writes map[string]int
}

// NewFakeTagger creates an empty [FakeTagger].
func NewFakeTagger() *FakeTagger {
	return &FakeTagger{fields: map[string]tags.Fields{}, writes: map[string]int{}}
}

// Read returns the fields last written to path. Untagged paths yield empty fields, or
// [shared.ErrNotFound] when no file exists there.
func (f *FakeTagger) Read(path string) (tags.Fields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fields, ok := f.fields[filepath.Clean(path)]; ok {
		return fields, nil
	}
	if _, err := os.Stat(path); err != nil {
		return tags.Fields{}, shared.ErrNotFound
	}
	return tags.Fields{}, nil
}

// Write records fields for path.
func (f *FakeTagger) Write(path string, fields tags.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	f.fields[path] = fields
	f.writes[path]++
	return nil
}

// Set stores fields for path without counting a write.
func (f *FakeTagger) Set(path string, fields tags.Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields[filepath.Clean(path)] = fields
}

// Writes returns how often path was written.
func (f *FakeTagger) Writes(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[filepath.Clean(path)]
}

// TotalWrites returns the number of writes across all paths.
func (f *FakeTagger) TotalWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.writes {
		n += c
	}
	return n
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("Path should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MustWriteFile creates path and its parent directories.
func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
