package extract

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// The Python grammar also accepts Python 2 statements and parameter lists
// the language itself rejects. checkPython3 reports the first such
// construct in document order.
func checkPython3(n *sitter.Node, filePath string) *ParseError {
	switch n.Type() {
	case "print_statement":
		return nodeError(n, filePath, "print statement is not valid in Python 3")
	case "exec_statement":
		return nodeError(n, filePath, "exec statement is not valid in Python 3")
	case "parameters", "lambda_parameters":
		if perr := checkParameters(n, filePath); perr != nil {
			return perr
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if perr := checkPython3(n.NamedChild(i), filePath); perr != nil {
			return perr
		}
	}
	return nil
}

type paramKind int

const (
	paramPlain paramKind = iota
	paramDefault
	paramSlash
	paramStar
	paramVararg
	paramKwarg
	paramTuple
	paramOther
)

func classifyParam(p *sitter.Node) paramKind {
	switch p.Type() {
	case "identifier":
		return paramPlain
	case "default_parameter", "typed_default_parameter":
		return paramDefault
	case "positional_separator", "/":
		return paramSlash
	case "keyword_separator":
		return paramStar
	case "list_splat_pattern":
		return paramVararg
	case "dictionary_splat_pattern":
		return paramKwarg
	case "tuple_pattern":
		return paramTuple
	case "typed_parameter":
		if inner := firstNamed(p); inner != nil {
			return classifyParam(inner)
		}
	}
	return paramOther
}

// checkParameters enforces the ordering rules of a parameter list:
// at most one "/" which must follow a parameter, at most one "*" or
// "*args", "**kwargs" last, no bare "*" without a keyword-only parameter
// after it, and no positional parameter without a default after one with.
func checkParameters(params *sitter.Node, filePath string) *ParseError {
	var (
		seenParam, seenSlash, seenStar, seenKwarg bool
		seenDefault, bareStarOpen                 bool
		bareStar                                  *sitter.Node
	)
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		if p == nil || p.Type() == "comment" || (!p.IsNamed() && p.Type() != "/") {
			continue
		}
		if seenKwarg {
			return nodeError(p, filePath, "parameter after **kwargs")
		}
		switch classifyParam(p) {
		case paramPlain:
			if seenDefault && !seenStar {
				return nodeError(p, filePath, "parameter without a default follows parameter with a default")
			}
			seenParam = true
			bareStarOpen = false
		case paramDefault:
			if !seenStar {
				seenDefault = true
			}
			seenParam = true
			bareStarOpen = false
		case paramSlash:
			if seenSlash {
				return nodeError(p, filePath, "/ may appear only once")
			}
			if seenStar {
				return nodeError(p, filePath, "/ must be ahead of *")
			}
			if !seenParam {
				return nodeError(p, filePath, "at least one parameter must precede /")
			}
			seenSlash = true
		case paramStar, paramVararg:
			if seenStar {
				return nodeError(p, filePath, "* may appear only once")
			}
			seenStar = true
			if classifyParam(p) == paramStar {
				bareStar, bareStarOpen = p, true
			}
		case paramTuple:
			return nodeError(p, filePath, "tuple parameter unpacking is not valid in Python 3")
		case paramKwarg:
			if bareStarOpen {
				return nodeError(bareStar, filePath, "named parameters must follow bare *")
			}
			seenKwarg = true
		}
	}
	if bareStarOpen {
		return nodeError(bareStar, filePath, "named parameters must follow bare *")
	}
	return nil
}

func nodeError(n *sitter.Node, filePath, msg string) *ParseError {
	pt := n.StartPoint()
	return &ParseError{
		File:    filePath,
		Line:    int(pt.Row) + 1,
		Column:  int(pt.Column) + 1,
		Message: msg,
	}
}
