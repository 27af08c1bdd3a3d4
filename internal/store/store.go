package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/amirbrooks/vaulttasks/internal/task"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalid                = errors.New("invalid")
	ErrProjectNotFound        = errors.New("project not found")
	ErrEmptyInput             = errors.New("empty input")
	ErrIOFailure              = errors.New("io failure")
	ErrAmbiguousOrMissingLine = task.ErrAmbiguousOrMissingLine
	timeNow                   = func() time.Time { return time.Now().UTC() }
)

// MatchConflictError provides details when a selector matches multiple tasks.
// It still satisfies errors.Is(err, ErrConflict).
type MatchConflictError struct {
	Reason  string
	Matches []task.Record
}

func (e *MatchConflictError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "conflict"
	}
	return "conflict: " + e.Reason
}

func (e *MatchConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IOError wraps a failed document read or write.
// It satisfies errors.Is(err, ErrIOFailure).
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool {
	return target == ErrIOFailure
}

// Handle names a document in a DocumentStore. Name is the note title without
// extension; Path is store specific.
type Handle struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DocumentStore is the host document layer the engine reads and writes
// through. Only project documents are listed or resolved.
type DocumentStore interface {
	ListEligibleDocuments(ctx context.Context) ([]Handle, error)
	ReadDocument(ctx context.Context, h Handle) (string, error)
	WriteDocument(ctx context.Context, h Handle, text string) error
	ResolveDocumentByName(ctx context.Context, name string) (Handle, bool, error)
}

func newULID() string {
	t := ulid.Timestamp(timeNow())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", timeNow().UnixNano())
	}
	return strings.ToUpper(id.String())
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, ".tmp-"+newULID())
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
