package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/amirbrooks/vaulttasks/internal/frontmatter"
)

// Vault is a DocumentStore over a directory tree of markdown notes. A note is
// eligible when its frontmatter declares type: Project.
type Vault struct {
	Root   string
	logger *log.Logger
}

// OpenVault opens the vault rooted at root. The directory must exist.
func OpenVault(root string, logger *log.Logger) (*Vault, error) {
	root = expandHome(root)
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &IOError{Op: "open", Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: vault root %s is not a directory", ErrInvalid, abs)
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Vault{Root: abs, logger: logger}, nil
}

// ListEligibleDocuments walks the vault and returns project notes sorted by
// name. Hidden directories such as .obsidian and .git are skipped.
func (v *Vault) ListEligibleDocuments(ctx context.Context) ([]Handle, error) {
	var out []Handle
	err := filepath.WalkDir(v.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == v.Root {
				return err
			}
			v.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != v.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isMarkdownFile(d.Name()) {
			return nil
		}
		ok, err := isProjectFile(path)
		if err != nil {
			v.logger.Warn("skipping unreadable note", "path", path, "error", err)
			return nil
		}
		if ok {
			out = append(out, Handle{Name: noteName(path), Path: path})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &IOError{Op: "list", Path: v.Root, Err: err}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

func (v *Vault) ReadDocument(ctx context.Context, h Handle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !v.contains(h.Path) {
		return "", fmt.Errorf("%w: %s is outside the vault", ErrInvalid, h.Path)
	}
	b, err := os.ReadFile(h.Path)
	if err != nil {
		return "", &IOError{Op: "read", Path: h.Path, Err: err}
	}
	return string(b), nil
}

func (v *Vault) WriteDocument(ctx context.Context, h Handle, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !v.contains(h.Path) {
		return fmt.Errorf("%w: %s is outside the vault", ErrInvalid, h.Path)
	}
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(h.Path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := atomicWriteFile(h.Path, []byte(text), perm); err != nil {
		return &IOError{Op: "write", Path: h.Path, Err: err}
	}
	v.logger.Debug("wrote document", "doc", h.Name, "bytes", len(text))
	return nil
}

// ResolveDocumentByName finds the project note called name. An exact match
// wins over a case-insensitive one; among equals the first path sorts first.
// A name containing a path separator is taken relative to the vault root.
func (v *Vault) ResolveDocumentByName(ctx context.Context, name string) (Handle, bool, error) {
	name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), ".md"))
	if name == "" {
		return Handle{}, false, nil
	}
	docs, err := v.ListEligibleDocuments(ctx)
	if err != nil {
		return Handle{}, false, err
	}
	if strings.ContainsAny(name, `/\`) {
		want := filepath.Join(v.Root, filepath.FromSlash(name)+".md")
		for _, h := range docs {
			if h.Path == want {
				return h, true, nil
			}
		}
		return Handle{}, false, nil
	}
	var folded []Handle
	for _, h := range docs {
		if h.Name == name {
			return h, true, nil
		}
		if strings.EqualFold(h.Name, name) {
			folded = append(folded, h)
		}
	}
	if len(folded) > 0 {
		if len(folded) > 1 {
			v.logger.Warn("project name is ambiguous, using first match", "name", name, "path", folded[0].Path)
		}
		return folded[0], true, nil
	}
	return Handle{}, false, nil
}

func (v *Vault) contains(path string) bool {
	rel, err := filepath.Rel(v.Root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func isMarkdownFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}

func noteName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// isProjectFile reads only the frontmatter block of path.
func isProjectFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var head strings.Builder
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 0; sc.Scan(); n++ {
		line := sc.Text()
		head.WriteString(line)
		head.WriteByte('\n')
		if n == 0 && strings.TrimSuffix(line, "\r") != "---" {
			return false, nil
		}
		if n > 0 && strings.TrimSuffix(line, "\r") == "---" {
			return frontmatter.IsProject(head.String()), nil
		}
	}
	return false, sc.Err()
}
