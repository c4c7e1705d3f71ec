package extract

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// exprPlaceholder stands in for every expression shape the stringifier does
// not render.
const exprPlaceholder = "..."

// Parameter markers for variadic and keyword-variadic parameters.
const (
	varargMarker = "*"
	kwargMarker  = "**"
)

// exprString renders decorator and annotation expressions. Only names,
// attribute chains and calls are rendered; call arguments are elided and any
// other expression becomes the placeholder.
func exprString(n *sitter.Node, src []byte) string {
	if n == nil {
		return exprPlaceholder
	}
	switch n.Type() {
	case "identifier":
		return n.Content(src)
	case "attribute":
		attr := n.ChildByFieldName("attribute")
		if attr == nil {
			return exprPlaceholder
		}
		return exprString(n.ChildByFieldName("object"), src) + "." + attr.Content(src)
	case "call":
		return exprString(n.ChildByFieldName("function"), src) + "(...)"
	case "parenthesized_expression":
		return exprString(firstNamed(n), src)
	default:
		return exprPlaceholder
	}
}

// unwrapType returns the expression inside a return-type annotation.
func unwrapType(n *sitter.Node) *sitter.Node {
	if n.Type() == "type" {
		if inner := firstNamed(n); inner != nil {
			return inner
		}
	}
	return n
}

// firstNamed returns the first named child that is not a comment.
func firstNamed(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "comment" {
			return child
		}
	}
	return nil
}

// docstring returns the literal of a body's first statement when that
// statement is a bare string-literal expression.
func docstring(body *sitter.Node, src []byte) *string {
	if body == nil {
		return nil
	}
	stmt := firstNamed(body)
	if stmt == nil || stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return nil
	}
	s, ok := stringLiteral(stmt.NamedChild(0), src)
	if !ok {
		return nil
	}
	return &s
}

// stringLiteral evaluates a plain str literal or an implicit concatenation
// of them. Parentheses around the literal are ignored. f-strings and bytes
// are not str constants and are rejected.
func stringLiteral(n *sitter.Node, src []byte) (string, bool) {
	for n != nil && n.Type() == "parenthesized_expression" {
		n = firstNamed(n)
	}
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
		return parseStringLiteral(n.Content(src))
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(n.NamedChildCount()); i++ {
			part := n.NamedChild(i)
			if part.Type() == "comment" {
				continue
			}
			if part.Type() != "string" {
				return "", false
			}
			s, ok := parseStringLiteral(part.Content(src))
			if !ok {
				return "", false
			}
			b.WriteString(s)
		}
		return b.String(), true
	default:
		return "", false
	}
}

func parseStringLiteral(lit string) (string, bool) {
	i := 0
	for i < len(lit) && strings.IndexByte("rRbBuUfF", lit[i]) >= 0 {
		i++
	}
	prefix := strings.ToLower(lit[:i])
	if strings.ContainsAny(prefix, "fb") {
		return "", false
	}
	body := lit[i:]

	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case strings.HasPrefix(body, `"`), strings.HasPrefix(body, `'`):
		quote = body[:1]
	default:
		return "", false
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false
	}
	inner := body[len(quote) : len(body)-len(quote)]
	if strings.Contains(prefix, "r") {
		return inner, true
	}
	return unescape(inner), true
}

// unescape decodes backslash escapes the way the language does for
// non-raw str literals. Unknown escapes are kept verbatim.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\n':
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case 'x':
			i += writeCodePoint(&b, s, i, 2)
		case 'u':
			i += writeCodePoint(&b, s, i, 4)
		case 'U':
			i += writeCodePoint(&b, s, i, 8)
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 32)
			b.WriteRune(rune(v))
			i = j - 1
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String()
}

// writeCodePoint decodes n hex digits after the escape letter at s[i]. It
// returns how many bytes were consumed; on malformed input the escape is
// written back unchanged and nothing is consumed.
func writeCodePoint(b *strings.Builder, s string, i, n int) int {
	if end := i + 1 + n; end <= len(s) {
		if v, err := strconv.ParseUint(s[i+1:end], 16, 32); err == nil && utf8.ValidRune(rune(v)) {
			b.WriteRune(rune(v))
			return n
		}
	}
	b.WriteByte('\\')
	b.WriteByte(s[i])
	return 0
}

// parameterNames lists positional parameters in order, then the variadic
// parameter, then the keyword-variadic parameter. Keyword-only parameters,
// defaults and annotations are dropped.
func parameterNames(params *sitter.Node, src []byte) []string {
	names := []string{}
	if params == nil {
		return names
	}
	var vararg, kwarg string
	keywordOnly := false

	var visit func(p *sitter.Node)
	visit = func(p *sitter.Node) {
		switch p.Type() {
		case "identifier":
			if !keywordOnly {
				names = append(names, p.Content(src))
			}
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil && !keywordOnly {
				names = append(names, name.Content(src))
			}
		case "typed_parameter":
			if inner := firstNamed(p); inner != nil {
				visit(inner)
			}
		case "list_splat_pattern":
			if id := firstNamed(p); id != nil {
				vararg = id.Content(src)
			}
			keywordOnly = true
		case "dictionary_splat_pattern":
			if id := firstNamed(p); id != nil {
				kwarg = id.Content(src)
			}
		case "keyword_separator":
			keywordOnly = true
		}
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		visit(params.NamedChild(i))
	}

	if vararg != "" {
		names = append(names, varargMarker+vararg)
	}
	if kwarg != "" {
		names = append(names, kwargMarker+kwarg)
	}
	return names
}
