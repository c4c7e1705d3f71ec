package walker

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string
	RelPath string
	Size    int64
}

// IgnoreFileName is the per-project ignore file read from the walk root.
const IgnoreFileName = ".autodocignore"

// DefaultMaxFileSize is the largest file we'll consider (1 MB).
const DefaultMaxFileSize = 1 << 20

// defaultIgnores are used when no .autodocignore file exists.
var defaultIgnores = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	"venv",
	".venv",
	".tox",
	".mypy_cache",
	".idea",
	".vscode",
	".autodoc",
	"dist",
	"build",
}

// Options controls a walk.
type Options struct {
	// Extensions lists allowed file extensions without the dot.
	Extensions map[string]bool
	// MaxFileSize skips larger files; zero means DefaultMaxFileSize.
	MaxFileSize int64
	// Extra patterns applied on top of the ignore file or defaults.
	IgnorePatterns []string
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return append([]string(nil), defaultIgnores...)
}

// Walk traverses the directory tree rooted at root and sends discovered
// source files on the returned channel. It only emits files whose extension
// is allowed, and skips directories matching .autodocignore patterns. The
// walk stops early when ctx is cancelled.
func Walk(ctx context.Context, root string, opts Options) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}

		ignores := LoadIgnores(absRoot, opts.IgnorePatterns)

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == absRoot {
					return err
				}
				return nil // skip errors, keep walking
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if d.IsDir() {
				if path == absRoot {
					return nil
				}
				rel, _ := filepath.Rel(absRoot, path)
				if ignores.Match(d.Name(), filepath.ToSlash(rel)) {
					return filepath.SkipDir
				}
				return nil
			}

			// Skip symlinks.
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}

			ext := strings.TrimPrefix(filepath.Ext(path), ".")
			if !opts.Extensions[ext] {
				return nil
			}

			relPath, _ := filepath.Rel(absRoot, path)
			relPath = filepath.ToSlash(relPath)
			if ignores.Match(d.Name(), relPath) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}

			// Skip large or empty files.
			if info.Size() > maxSize || info.Size() == 0 {
				return nil
			}

			select {
			case files <- FileInfo{Path: path, RelPath: relPath, Size: info.Size()}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// LoadIgnores builds the matcher for root: the .autodocignore patterns (or
// the defaults) followed by extra.
func LoadIgnores(root string, extra []string) *Matcher {
	return NewMatcher(append(loadIgnorePatterns(root), extra...))
}

// loadIgnorePatterns reads .autodocignore from the project root.
// If the file doesn't exist, it creates one with the default patterns.
func loadIgnorePatterns(root string) []string {
	ignorePath := filepath.Join(root, IgnoreFileName)

	f, err := os.Open(ignorePath)
	if err != nil {
		createDefaultIgnoreFile(ignorePath)
		return DefaultIgnores()
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if len(patterns) == 0 {
		return DefaultIgnores()
	}
	return patterns
}

func createDefaultIgnoreFile(path string) {
	var b strings.Builder
	b.WriteString("# Directories and files to exclude from analysis.\n")
	b.WriteString("# One pattern per line. Supports exact names, path prefixes and globs (** crosses directories).\n\n")
	for _, p := range defaultIgnores {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	// Best-effort write; if it fails the defaults are still used in memory.
	os.WriteFile(path, []byte(b.String()), 0o644)
}

type ignorePattern struct {
	raw  string
	glob glob.Glob // nil when the pattern does not compile
}

// Matcher tests names and slash-separated relative paths against ignore
// patterns.
type Matcher struct {
	patterns []ignorePattern
}

// NewMatcher compiles patterns. Patterns that are not valid globs still
// match by exact name and path prefix.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		ip := ignorePattern{raw: p}
		if g, err := glob.Compile(p, '/'); err == nil {
			ip.glob = g
		}
		m.patterns = append(m.patterns, ip)
	}
	return m
}

// Match reports whether an entry with the given base name and relative path
// is ignored.
func (m *Matcher) Match(name, relPath string) bool {
	for _, p := range m.patterns {
		// Exact name match (e.g. "node_modules", ".git").
		if name == p.raw {
			return true
		}
		// Path prefix match on a segment boundary (e.g. "third_party/vendor").
		if relPath == p.raw || strings.HasPrefix(relPath, strings.TrimSuffix(p.raw, "/")+"/") {
			return true
		}
		if p.glob != nil && (p.glob.Match(relPath) || p.glob.Match(name)) {
			return true
		}
	}
	return false
}
