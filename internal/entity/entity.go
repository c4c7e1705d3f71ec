package entity

import (
	"regexp"
	"strings"
)

// EntityType classifies a code element.
type EntityType string

const (
	Function EntityType = "function"
	Method   EntityType = "method"
	Class    EntityType = "class"
)

// CodeEntity describes one function, method or class found in a source file.
type CodeEntity struct {
	Type       EntityType
	Name       string
	FilePath   string
	LineNumber int
	Docstring  *string
	// Code is a short signature placeholder, not verbatim source.
	Code            string
	IsAsync         bool
	Decorators      []string
	Parameters      []string
	ReturnType      *string
	IsInternal      bool
	IsAPIEndpoint   bool
	EndpointPath    *string
	HTTPMethods     []string
	ComplexityScore int
}

// New returns an entity with every optional field unset and a complexity of 1.
func New(t EntityType, name, filePath string, line int) CodeEntity {
	return CodeEntity{
		Type:            t,
		Name:            name,
		FilePath:        filePath,
		LineNumber:      line,
		Decorators:      []string{},
		Parameters:      []string{},
		HTTPMethods:     []string{},
		ComplexityScore: 1,
	}
}

// controlFlowKeywords are counted in the rendered code text. The trailing
// space is part of each keyword.
var controlFlowKeywords = []string{"if ", "for ", "while ", "match ", "loop "}

// CalculateComplexity scores the entity from its parameters and the text in
// Code. It counts open braces and control-flow keywords textually, so
// keywords inside strings or identifiers are counted too.
func (e *CodeEntity) CalculateComplexity() {
	score := 1
	score += len(e.Parameters)
	score += strings.Count(e.Code, "{")
	for _, kw := range controlFlowKeywords {
		score += strings.Count(e.Code, kw)
	}
	if e.IsAsync {
		score += 2
	}
	e.ComplexityScore = score
}

// apiDecoratorMarkers are matched as substrings of the lower-cased
// decorator text, not as tokens.
var apiDecoratorMarkers = []string{"route", "get", "post", "put", "delete", "patch", "api"}

var quotedLiteral = regexp.MustCompile(`["']([^"']+)["']`)

// DetectAPIEndpoint marks the entity as an HTTP endpoint when any decorator
// mentions a routing marker, and takes the first quoted literal found in the
// decorators as the endpoint path.
func (e *CodeEntity) DetectAPIEndpoint() {
	e.IsAPIEndpoint = false
	e.EndpointPath = nil
	for _, d := range e.Decorators {
		if isAPIDecorator(d) {
			e.IsAPIEndpoint = true
			break
		}
	}
	if !e.IsAPIEndpoint {
		return
	}
	for _, d := range e.Decorators {
		if path, ok := pathFromDecorator(d); ok {
			e.EndpointPath = &path
			return
		}
	}
}

func isAPIDecorator(decorator string) bool {
	lower := strings.ToLower(decorator)
	for _, m := range apiDecoratorMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func pathFromDecorator(decorator string) (string, bool) {
	m := quotedLiteral.FindStringSubmatch(decorator)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsDocumented reports whether the entity carries a non-empty docstring.
func (e *CodeEntity) IsDocumented() bool {
	return e.Docstring != nil && strings.TrimSpace(*e.Docstring) != ""
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}
