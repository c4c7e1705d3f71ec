package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Emberfield/autodoc/internal/entity"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// extensions are the file extensions (without dot) the parser understands.
var extensions = []string{"py", "pyi"}

// Extensions returns the set of supported file extensions (without dot).
func Extensions() map[string]bool {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[ext] = true
	}
	return exts
}

// Supported reports whether path has an extension the parser understands.
func Supported(path string) bool {
	return Extensions()[strings.TrimPrefix(filepath.Ext(path), ".")]
}

// Parser turns Python source into code entities. Each call builds its own
// tree-sitter parser, so a Parser is safe for concurrent use.
type Parser struct {
	language *sitter.Language
}

// NewParser creates a parser backed by the tree-sitter Python grammar.
func NewParser() *Parser {
	return &Parser{language: python.GetLanguage()}
}

// ParseFile reads the file at path and extracts its entities. Read failures
// are reported as *IOError, grammar failures as *ParseError.
func (p *Parser) ParseFile(path string) ([]entity.CodeEntity, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return p.ParseSource(src, path)
}

// ParseSource extracts entities from src in source order. filePath is only
// recorded on the entities and in diagnostics.
func (p *Parser) ParseSource(src []byte, filePath string) ([]entity.CodeEntity, error) {
	if !utf8.Valid(src) {
		return nil, &ParseError{File: filePath, Line: 1, Column: 1, Message: "source is not valid UTF-8"}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.language)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, &ParseError{File: filePath, Line: 1, Column: 1, Message: err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, src, filePath)
	}
	if perr := checkPython3(root, filePath); perr != nil {
		return nil, perr
	}

	v := newVisitor(src, filePath)
	v.visitBody(root)
	return v.entities, nil
}

// syntaxError locates the first ERROR or MISSING node in document order.
func syntaxError(root *sitter.Node, src []byte, filePath string) *ParseError {
	bad := firstErrorNode(root)
	if bad == nil {
		bad = root
	}
	pt := bad.StartPoint()
	perr := &ParseError{
		File:   filePath,
		Line:   int(pt.Row) + 1,
		Column: int(pt.Column) + 1,
	}
	if bad.IsMissing() {
		perr.Message = fmt.Sprintf("missing %s", bad.Type())
		return perr
	}
	perr.Message = fmt.Sprintf("invalid syntax near %q", snippet(bad.Content(src)))
	return perr
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.IsMissing() || child.HasError() {
			if found := firstErrorNode(child); found != nil {
				return found
			}
		}
	}
	return nil
}

const maxSnippet = 40

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > maxSnippet {
		s = string(r[:maxSnippet]) + "..."
	}
	return s
}
