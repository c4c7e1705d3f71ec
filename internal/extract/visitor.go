package extract

import (
	"fmt"

	"github.com/Emberfield/autodoc/internal/entity"

	sitter "github.com/smacker/go-tree-sitter"
)

// visitor walks one syntax tree. The class stack decides whether a function
// is a method; entities are appended in pre-order and never revisited.
type visitor struct {
	src      []byte
	filePath string
	classes  []string
	entities []entity.CodeEntity
}

func newVisitor(src []byte, filePath string) *visitor {
	return &visitor{
		src:      src,
		filePath: filePath,
		entities: []entity.CodeEntity{},
	}
}

// visitBody visits every statement directly inside a module or block.
func (v *visitor) visitBody(body *sitter.Node) {
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		v.visitStmt(body.NamedChild(i), nil)
	}
}

func (v *visitor) visitStmt(stmt *sitter.Node, decorators []string) {
	if stmt == nil {
		return
	}
	switch stmt.Type() {
	case "function_definition":
		v.visitFunction(stmt, decorators)
	case "class_definition":
		v.visitClass(stmt, decorators)
	case "decorated_definition":
		v.visitStmt(stmt.ChildByFieldName("definition"), v.decorators(stmt))
	}
}

func (v *visitor) visitFunction(fn *sitter.Node, decorators []string) {
	kind := entity.Function
	if len(v.classes) > 0 {
		kind = entity.Method
	}
	name := v.text(fn.ChildByFieldName("name"))
	e := entity.New(kind, name, v.filePath, line(fn))

	e.IsAsync = isAsync(fn)
	e.Docstring = docstring(fn.ChildByFieldName("body"), v.src)
	if decorators != nil {
		e.Decorators = decorators
	}
	e.Parameters = parameterNames(fn.ChildByFieldName("parameters"), v.src)
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		s := exprString(unwrapType(ret), v.src)
		e.ReturnType = &s
	}

	if e.IsAsync {
		e.Code = fmt.Sprintf("async def %s(...): ...", name)
	} else {
		e.Code = fmt.Sprintf("def %s(...): ...", name)
	}

	e.DetectAPIEndpoint()
	e.CalculateComplexity()

	v.entities = append(v.entities, e)
}

func (v *visitor) visitClass(cls *sitter.Node, decorators []string) {
	name := v.text(cls.ChildByFieldName("name"))
	e := entity.New(entity.Class, name, v.filePath, line(cls))

	body := cls.ChildByFieldName("body")
	e.Docstring = docstring(body, v.src)
	if decorators != nil {
		e.Decorators = decorators
	}
	e.Code = "class " + name

	// The class precedes its members in the output.
	v.entities = append(v.entities, e)

	v.classes = append(v.classes, name)
	v.visitBody(body)
	v.classes = v.classes[:len(v.classes)-1]
}

// decorators stringifies the decorators of a decorated_definition in source order.
func (v *visitor) decorators(n *sitter.Node) []string {
	out := []string{}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		out = append(out, exprString(firstNamed(child), v.src))
	}
	return out
}

func (v *visitor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(v.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// isAsync reports whether the definition starts with the async keyword.
func isAsync(fn *sitter.Node) bool {
	for i := 0; i < int(fn.ChildCount()); i++ {
		switch fn.Child(i).Type() {
		case "async":
			return true
		case "def":
			return false
		}
	}
	return false
}
