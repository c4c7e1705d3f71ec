package boundary

import "github.com/Emberfield/autodoc/internal/entity"

// Record is the host-facing shape of a code entity. It holds only strings,
// booleans, integers, optional strings and string lists.
type Record struct {
	EntityType      string   `json:"entity_type"`
	Name            string   `json:"name"`
	FilePath        string   `json:"file_path"`
	LineNumber      int      `json:"line_number"`
	Docstring       *string  `json:"docstring"`
	Code            string   `json:"code"`
	IsAsync         bool     `json:"is_async"`
	Decorators      []string `json:"decorators"`
	Parameters      []string `json:"parameters"`
	ReturnType      *string  `json:"return_type"`
	IsInternal      bool     `json:"is_internal"`
	IsAPIEndpoint   bool     `json:"is_api_endpoint"`
	EndpointPath    *string  `json:"endpoint_path"`
	HTTPMethods     []string `json:"http_methods"`
	ComplexityScore int      `json:"complexity_score"`
}

// FromEntity converts an entity. List fields are never nil.
func FromEntity(e entity.CodeEntity) Record {
	return Record{
		EntityType:      string(e.Type),
		Name:            e.Name,
		FilePath:        e.FilePath,
		LineNumber:      e.LineNumber,
		Docstring:       copyString(e.Docstring),
		Code:            e.Code,
		IsAsync:         e.IsAsync,
		Decorators:      copyStrings(e.Decorators),
		Parameters:      copyStrings(e.Parameters),
		ReturnType:      copyString(e.ReturnType),
		IsInternal:      e.IsInternal,
		IsAPIEndpoint:   e.IsAPIEndpoint,
		EndpointPath:    copyString(e.EndpointPath),
		HTTPMethods:     copyStrings(e.HTTPMethods),
		ComplexityScore: e.ComplexityScore,
	}
}

// FromEntities converts a slice, preserving order.
func FromEntities(entities []entity.CodeEntity) []Record {
	out := make([]Record, len(entities))
	for i, e := range entities {
		out[i] = FromEntity(e)
	}
	return out
}

// ToEntity converts a record back into the core representation.
func (r Record) ToEntity() entity.CodeEntity {
	e := entity.New(entity.EntityType(r.EntityType), r.Name, r.FilePath, r.LineNumber)
	e.Docstring = copyString(r.Docstring)
	e.Code = r.Code
	e.IsAsync = r.IsAsync
	e.Decorators = copyStrings(r.Decorators)
	e.Parameters = copyStrings(r.Parameters)
	e.ReturnType = copyString(r.ReturnType)
	e.IsInternal = r.IsInternal
	e.IsAPIEndpoint = r.IsAPIEndpoint
	e.EndpointPath = copyString(r.EndpointPath)
	e.HTTPMethods = copyStrings(r.HTTPMethods)
	e.ComplexityScore = r.ComplexityScore
	return e
}

// ToMap returns the record as a string-keyed map of primitive values, the
// shape a dynamic host expects.
func (r Record) ToMap() map[string]any {
	return map[string]any{
		"entity_type":      r.EntityType,
		"name":             r.Name,
		"file_path":        r.FilePath,
		"line_number":      r.LineNumber,
		"docstring":        optional(r.Docstring),
		"code":             r.Code,
		"is_async":         r.IsAsync,
		"decorators":       copyStrings(r.Decorators),
		"parameters":       copyStrings(r.Parameters),
		"return_type":      optional(r.ReturnType),
		"is_internal":      r.IsInternal,
		"is_api_endpoint":  r.IsAPIEndpoint,
		"endpoint_path":    optional(r.EndpointPath),
		"http_methods":     copyStrings(r.HTTPMethods),
		"complexity_score": r.ComplexityScore,
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
