package files

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultDocument is served for the root path and for directories.
const DefaultDocument = "index.html"

// Root is the served directory. It is immutable once built and safe to share
// between goroutines.
type Root struct {
	dir string // absolute, symlinks resolved
}

// Target is the outcome of resolving a request path.
type Target struct {
	Path   string
	Exists bool
	Size   int64
}

// NewRoot validates dir and pins it to its absolute, symlink-free form.
func NewRoot(dir string) (Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Root{}, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return Root{}, err
	}
	if !info.IsDir() {
		return Root{}, fmt.Errorf("%s is not a directory", dir)
	}
	return Root{dir: resolved}, nil
}

func (r Root) Dir() string { return r.dir }

// Resolve maps a request target onto a regular file under the root. Anything
// that is missing, unreadable as a regular file, or outside the root comes
// back with Exists == false.
func (r Root) Resolve(target string) Target {
	rel, ok := relativePath(target)
	if !ok {
		return Target{}
	}
	if rel == "" {
		rel = DefaultDocument
	}

	candidate := filepath.Join(r.dir, filepath.FromSlash(rel))
	if !r.contains(candidate) {
		return Target{}
	}

	info, err := os.Stat(candidate)
	switch {
	case err == nil && info.IsDir():
		candidate = filepath.Join(candidate, DefaultDocument)
	case err != nil && filepath.Ext(candidate) == "":
		// "/about" may name "about.html".
		candidate += ".html"
	}

	return r.stat(candidate)
}

// stat confirms candidate is a regular file whose resolved location stays inside
// the root.
func (r Root) stat(candidate string) Target {
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil || !r.contains(resolved) {
		return Target{}
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return Target{}
	}
	return Target{Path: resolved, Exists: true, Size: info.Size()}
}

func (r Root) contains(p string) bool {
	rel, err := filepath.Rel(r.dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// relativePath drops query and fragment, percent-decodes, strips one leading
// slash and cleans the result. The cleaned path never begins with "..";
// callers still check containment after joining.
func relativePath(target string) (string, bool) {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	decoded, err := url.PathUnescape(target)
	if err != nil || strings.ContainsRune(decoded, 0) {
		return "", false
	}
	decoded = strings.TrimPrefix(decoded, "/")
	if decoded == "" {
		return "", true
	}
	if strings.Contains(decoded, `\`) {
		return "", false
	}
	cleaned := path.Clean(decoded)
	if cleaned == "." {
		return "", true
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
		return "", false
	}
	return cleaned, true
}

// Read returns the file contents for a resolved target.
func Read(t Target) ([]byte, error) {
	if !t.Exists {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(t.Path)
}
