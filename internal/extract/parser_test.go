package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Emberfield/autodoc/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) []entity.CodeEntity {
	t.Helper()
	entities, err := NewParser().ParseSource([]byte(src), "test.py")
	require.NoError(t, err)
	return entities
}

func TestParseSource_Function(t *testing.T) {
	src := `
def hello_world(name: str) -> str:
    """Say hello to someone."""
    return f"Hello, {name}!"
`
	entities := parse(t, src)

	require.Len(t, entities, 1)
	e := entities[0]
	assert.Equal(t, "hello_world", e.Name)
	assert.Equal(t, entity.Function, e.Type)
	assert.Equal(t, "test.py", e.FilePath)
	assert.Equal(t, 2, e.LineNumber)
	assert.Equal(t, []string{"name"}, e.Parameters)
	require.NotNil(t, e.ReturnType)
	assert.Equal(t, "str", *e.ReturnType)
	require.NotNil(t, e.Docstring)
	assert.Equal(t, "Say hello to someone.", *e.Docstring)
	assert.Equal(t, "def hello_world(...): ...", e.Code)
	assert.False(t, e.IsAsync)
	assert.Equal(t, 2, e.ComplexityScore)
}

func TestParseSource_ClassWithMethods(t *testing.T) {
	src := `
class MyClass:
    """A sample class."""

    def first(self):
        pass

    async def second(self, x):
        pass

    def third(self):
        pass

def after():
    pass
`
	entities := parse(t, src)

	require.Len(t, entities, 5)
	assert.Equal(t, "MyClass", entities[0].Name)
	assert.Equal(t, entity.Class, entities[0].Type)
	assert.Equal(t, "class MyClass", entities[0].Code)
	require.NotNil(t, entities[0].Docstring)
	assert.Equal(t, "A sample class.", *entities[0].Docstring)
	assert.Equal(t, 1, entities[0].ComplexityScore)
	assert.Empty(t, entities[0].Parameters)

	for i, name := range []string{"first", "second", "third"} {
		assert.Equal(t, name, entities[i+1].Name)
		assert.Equal(t, entity.Method, entities[i+1].Type)
	}
	assert.True(t, entities[2].IsAsync)
	assert.Equal(t, "async def second(...): ...", entities[2].Code)

	assert.Equal(t, "after", entities[4].Name)
	assert.Equal(t, entity.Function, entities[4].Type)
}

func TestParseSource_NestedClasses(t *testing.T) {
	src := `
class Outer:
    class Inner:
        def deep(self):
            pass

    def shallow(self):
        pass
`
	entities := parse(t, src)

	var names []string
	var types []entity.EntityType
	for _, e := range entities {
		names = append(names, e.Name)
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{"Outer", "Inner", "deep", "shallow"}, names)
	assert.Equal(t, []entity.EntityType{entity.Class, entity.Class, entity.Method, entity.Method}, types)
}

func TestParseSource_NestedFunctionsIgnored(t *testing.T) {
	src := `
def outer():
    def inner():
        pass
    class Local:
        pass
    return inner

if True:
    def conditional():
        pass
`
	entities := parse(t, src)

	require.Len(t, entities, 1)
	assert.Equal(t, "outer", entities[0].Name)
}

func TestParseSource_AsyncFunction(t *testing.T) {
	src := `
async def fetch_data():
    """Fetch data asynchronously."""
    pass
`
	entities := parse(t, src)

	require.Len(t, entities, 1)
	assert.Equal(t, "fetch_data", entities[0].Name)
	assert.True(t, entities[0].IsAsync)
	assert.Equal(t, 3, entities[0].ComplexityScore)
}

func TestParseSource_PlainFunctionScoresOne(t *testing.T) {
	entities := parse(t, "def noop():\n    return None\n")

	require.Len(t, entities, 1)
	assert.Equal(t, 1, entities[0].ComplexityScore)
	assert.Empty(t, entities[0].Decorators)
	assert.Nil(t, entities[0].ReturnType)
}

func TestParseSource_Decorators(t *testing.T) {
	src := `
@app.route("/api/users", methods=["GET"])
@login_required
@cache.memoize(timeout=60)
@(wrapper)
@handlers[0]
def users():
    pass

@dataclass
class Point:
    x: int
`
	entities := parse(t, src)

	require.Len(t, entities, 2)
	fn := entities[0]
	assert.Equal(t, []string{"app.route(...)", "login_required", "cache.memoize(...)", "wrapper", "..."}, fn.Decorators)
	assert.Equal(t, 7, fn.LineNumber)
	assert.True(t, fn.IsAPIEndpoint)
	assert.Nil(t, fn.EndpointPath, "call arguments are elided so no path survives")

	cls := entities[1]
	assert.Equal(t, []string{"dataclass"}, cls.Decorators)
	assert.Equal(t, 11, cls.LineNumber)
	assert.False(t, cls.IsAPIEndpoint)
}

func TestParseSource_Parameters(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{name: "none", src: "def f(): pass", want: []string{}},
		{name: "positional variadic keyword variadic", src: "def f(a, *args, **kwargs): pass", want: []string{"a", "*args", "**kwargs"}},
		{name: "defaults and annotations dropped", src: "def f(a: int, b=1, c: str = 'x'): pass", want: []string{"a", "b", "c"}},
		{name: "typed splats", src: "def f(*args: int, **kwargs: str): pass", want: []string{"*args", "**kwargs"}},
		{name: "keyword only after separator", src: "def f(a, *, key, other=2): pass", want: []string{"a"}},
		{name: "keyword only after variadic", src: "def f(a, *rest, key): pass", want: []string{"a", "*rest"}},
		{name: "positional only", src: "def f(a, b, /, c): pass", want: []string{"a", "b", "c"}},
		{name: "kwargs only", src: "def f(**opts): pass", want: []string{"**opts"}},
		{name: "keyword only may follow defaults", src: "def f(a=1, *, b, c=2): pass", want: []string{"a"}},
		{name: "defaults across positional only", src: "def f(a, b=1, /, c=2): pass", want: []string{"a", "b", "c"}},
		{name: "print called as a function", src: "def f(msg):\n    print(msg)\n    exec(msg)\n", want: []string{"msg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := parse(t, tt.src)
			require.Len(t, entities, 1)
			assert.Equal(t, tt.want, entities[0].Parameters)
		})
	}
}

func TestParseSource_ReturnTypes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{src: "def f() -> int: pass", want: "int"},
		{src: "def f() -> typing.Any: pass", want: "typing.Any"},
		{src: "def f() -> list[int]: pass", want: "..."},
		{src: "def f() -> None: pass", want: "..."},
		{src: "def f() -> 'Forward': pass", want: "..."},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			entities := parse(t, tt.src)
			require.Len(t, entities, 1)
			require.NotNil(t, entities[0].ReturnType)
			assert.Equal(t, tt.want, *entities[0].ReturnType)
		})
	}
}

func TestParseSource_Docstrings(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *string
	}{
		{name: "double quoted", body: `"Say hello."`, want: entity.StringPtr("Say hello.")},
		{name: "single quoted", body: `'Say hello.'`, want: entity.StringPtr("Say hello.")},
		{name: "triple single", body: `'''Say hello.'''`, want: entity.StringPtr("Say hello.")},
		{name: "escapes decoded", body: `"tab\there\nline"`, want: entity.StringPtr("tab\there\nline")},
		{name: "raw keeps escapes", body: `r"a\nb"`, want: entity.StringPtr(`a\nb`)},
		{name: "unicode prefix", body: `u"text"`, want: entity.StringPtr("text")},
		{name: "implicit concatenation", body: `"one " "two"`, want: entity.StringPtr("one two")},
		{name: "empty string", body: `""`, want: entity.StringPtr("")},
		{name: "parenthesized", body: `("Say hello.")`, want: entity.StringPtr("Say hello.")},
		{name: "nested parentheses", body: `(("Say hello."))`, want: entity.StringPtr("Say hello.")},
		{name: "parenthesized concatenation", body: "(\"one \"\n     \"two\")", want: entity.StringPtr("one two")},
		{name: "backslash newline continues", body: "\"\"\"a\\\nb\"\"\"", want: entity.StringPtr("ab")},
		{name: "backslash crlf continues", body: "\"\"\"a\\\r\nb\"\"\"", want: entity.StringPtr("ab")},
		{name: "parenthesized f-string", body: `(f"value {x}")`},
		{name: "f-string is not a docstring", body: `f"value {x}"`},
		{name: "bytes is not a docstring", body: `b"raw"`},
		{name: "assignment", body: `x = "doc"`},
		{name: "call returning string", body: `str("doc")`},
		{name: "tuple of strings", body: `"a", "b"`},
		{name: "pass", body: `pass`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := parse(t, "def f():\n    "+tt.body+"\n    return 1\n")
			require.Len(t, entities, 1)
			if tt.want == nil {
				assert.Nil(t, entities[0].Docstring)
				return
			}
			require.NotNil(t, entities[0].Docstring)
			assert.Equal(t, *tt.want, *entities[0].Docstring)
		})
	}
}

func TestParseSource_DocstringAfterComment(t *testing.T) {
	src := "def f():\n    # leading comment\n    \"\"\"Real doc.\"\"\"\n    pass\n"
	entities := parse(t, src)

	require.Len(t, entities, 1)
	require.NotNil(t, entities[0].Docstring)
	assert.Equal(t, "Real doc.", *entities[0].Docstring)
}

func TestParseSource_SecondStatementIsNotDocstring(t *testing.T) {
	entities := parse(t, "def f():\n    x = 1\n    \"not a doc\"\n")

	require.Len(t, entities, 1)
	assert.Nil(t, entities[0].Docstring)
}

func TestParseSource_Endpoints(t *testing.T) {
	src := `
@router.get
async def list_items():
    pass

@cache
def cached():
    pass
`
	entities := parse(t, src)

	require.Len(t, entities, 2)
	assert.True(t, entities[0].IsAPIEndpoint)
	assert.Nil(t, entities[0].EndpointPath)
	assert.Equal(t, 3, entities[0].ComplexityScore)
	assert.False(t, entities[1].IsAPIEndpoint)
}

func TestParseSource_Invariants(t *testing.T) {
	src := `
import os

@app.post
def create(a, b, *c, **d):
    if a:
        for x in b:
            pass

class Service:
    @staticmethod
    def helper():
        pass

    @property
    def name(self) -> str:
        return "svc"
`
	entities := parse(t, src)

	require.Len(t, entities, 4)
	for _, e := range entities {
		assert.GreaterOrEqual(t, e.ComplexityScore, 1, e.Name)
		if !e.IsAPIEndpoint {
			assert.Nil(t, e.EndpointPath, e.Name)
		}
		assert.False(t, e.IsInternal)
		assert.Empty(t, e.HTTPMethods)
	}
	// Scoring reads the placeholder, not the body, so the loops do not count.
	assert.Equal(t, 5, entities[0].ComplexityScore)
}

func TestParseSource_SyntaxError(t *testing.T) {
	tests := []string{
		"def broken(:\n    pass\n",
		"class\n",
		"x = (1, 2\n",
		"print \"hello\"\ndef g(): pass\n",
		"exec \"x = 1\"\ndef g(): pass\n",
		"def f(**kw, a): pass\n",
		"def f(**kw, *a): pass\n",
		"def f(*a, *b): pass\n",
		"def f(*, *b): pass\n",
		"def f(*): pass\n",
		"def f(*, **kw): pass\n",
		"def f(a, /, b, /): pass\n",
		"def f(/, a): pass\n",
		"def f(*a, b, /): pass\n",
		"def f(a=1, b): pass\n",
		"def f((a, b)): pass\n",
		"handler = lambda *a, *b: 0\n",
		"class C:\n    def m(self, **kw, x): pass\n",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			entities, err := NewParser().ParseSource([]byte(src), "bad.py")
			require.Error(t, err)
			assert.Nil(t, entities)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "bad.py", perr.File)
			assert.GreaterOrEqual(t, perr.Line, 1)
			assert.NotEmpty(t, perr.Message)
		})
	}
}

func TestParseSource_InvalidUTF8(t *testing.T) {
	_, err := NewParser().ParseSource([]byte{'d', 'e', 'f', 0xff, 0xfe}, "bin.py")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "UTF-8")
}

func TestParseSource_EmptySource(t *testing.T) {
	entities := parse(t, "")
	assert.Empty(t, entities)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("def a():\n    pass\n"), 0o644))

	entities, err := NewParser().ParseFile(path)

	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, path, entities[0].FilePath)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := NewParser().ParseFile(filepath.Join(t.TempDir(), "missing.py"))

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var perr *ParseError
	assert.False(t, errors.As(err, &perr))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("pkg/mod.py"))
	assert.True(t, Supported("stubs/mod.pyi"))
	assert.False(t, Supported("main.go"))
	assert.False(t, Supported("README"))
}
