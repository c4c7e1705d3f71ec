package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pyExts = map[string]bool{"py": true, "pyi": true}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, ctx context.Context, root string, opts Options) ([]string, error) {
	t.Helper()
	files, errs := Walk(ctx, root, opts)
	var rels []string
	for fi := range files {
		rels = append(rels, fi.RelPath)
	}
	sort.Strings(rels)
	return rels, <-errs
}

func TestWalk_FiltersByExtensionAndDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/main.py", "x = 1\n")
	writeFile(t, root, "app/types.pyi", "x: int\n")
	writeFile(t, root, "app/readme.md", "# hi\n")
	writeFile(t, root, "app/__pycache__/main.py", "x = 1\n")
	writeFile(t, root, ".venv/lib/site.py", "x = 1\n")
	writeFile(t, root, "builder/tool.py", "x = 1\n")
	writeFile(t, root, "empty.py", "")

	rels, err := collect(t, context.Background(), root, Options{Extensions: pyExts})

	require.NoError(t, err)
	assert.Equal(t, []string{"app/main.py", "app/types.pyi", "builder/tool.py"}, rels)

	_, statErr := os.Stat(filepath.Join(root, IgnoreFileName))
	assert.NoError(t, statErr, "default ignore file is created")
}

func TestWalk_IgnoreFileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, IgnoreFileName, "# custom\nlegacy\n*_test.py\n")
	writeFile(t, root, "legacy/old.py", "x = 1\n")
	writeFile(t, root, "build/gen.py", "x = 1\n")
	writeFile(t, root, "pkg/mod.py", "x = 1\n")
	writeFile(t, root, "pkg/mod_test.py", "x = 1\n")

	rels, err := collect(t, context.Background(), root, Options{Extensions: pyExts})

	require.NoError(t, err)
	assert.Equal(t, []string{"build/gen.py", "pkg/mod.py"}, rels)
}

func TestWalk_ExtraPatternsAndSizeLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "migrations/0001.py", "x = 1\n")
	writeFile(t, root, "big.py", "x = 1234567890\n")
	writeFile(t, root, "small.py", "x=1\n")

	rels, err := collect(t, context.Background(), root, Options{
		Extensions:     pyExts,
		MaxFileSize:    8,
		IgnorePatterns: []string{"migrations"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"small.py"}, rels)
}

func TestWalk_MissingRoot(t *testing.T) {
	_, err := collect(t, context.Background(), filepath.Join(t.TempDir(), "nope"), Options{Extensions: pyExts})

	assert.Error(t, err)
}

func TestWalk_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rels, err := collect(t, ctx, root, Options{Extensions: pyExts})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rels)
}

func TestMatcher(t *testing.T) {
	m := NewMatcher([]string{"node_modules", "third_party/vendor", "*.gen.py", "tests/**/fixtures", "[unclosed"})

	tests := []struct {
		name, relPath string
		want          bool
	}{
		{"node_modules", "web/node_modules", true},
		{"vendor", "third_party/vendor", true},
		{"x", "third_party/vendor/x", true},
		{"api.gen.py", "pkg/api.gen.py", true},
		{"fixtures", "tests/unit/deep/fixtures", true},
		{"[unclosed", "[unclosed", true},
		{"vendored", "third_party/vendored", false},
		{"main.py", "pkg/main.py", false},
		{"fixtures", "src/fixtures", false},
	}
	for _, tt := range tests {
		t.Run(tt.relPath, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.name, tt.relPath))
		})
	}
}
