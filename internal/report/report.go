package report

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/Emberfield/autodoc/internal/boundary"
	"github.com/Emberfield/autodoc/internal/entity"
)

// Complexity bands. Scores up to LowMax are low, up to MediumMax medium,
// anything above high.
const (
	LowMax    = 5
	MediumMax = 15
)

// Distribution counts functions and methods per complexity band.
type Distribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Summary aggregates a set of records.
type Summary struct {
	Title     string `json:"title"`
	Files     int    `json:"files"`
	Total     int    `json:"total"`
	Functions int    `json:"functions"`
	Methods   int    `json:"methods"`
	Classes   int    `json:"classes"`
	Async     int    `json:"async"`
	// Documented and Documentable cover functions and methods only.
	Documented        int               `json:"documented"`
	Documentable      int               `json:"documentable"`
	Coverage          float64           `json:"coverage"`
	AverageComplexity float64           `json:"average_complexity"`
	Distribution      Distribution      `json:"distribution"`
	// Public counts top-level functions and classes whose name has no
	// leading underscore; PublicRatio divides it by all of them.
	Public            int               `json:"public"`
	PublicRatio       float64           `json:"public_ratio"`
	Endpoints         []boundary.Record `json:"endpoints"`
	MostComplex       []boundary.Record `json:"most_complex"`
	Directories       []DirectoryStats  `json:"directories"`
	Modules           []FileDoc         `json:"modules"`
}

// DirectoryStats counts entities in the files directly inside Dir.
type DirectoryStats struct {
	Dir       string `json:"dir"`
	Files     int    `json:"files"`
	Classes   int    `json:"classes"`
	Functions int    `json:"functions"`
	Methods   int    `json:"methods"`
}

// FileDoc documents one file. Methods are attached to the nearest class
// declared above them in the same file.
type FileDoc struct {
	Path       string            `json:"path"`
	Classes    []ClassDoc        `json:"classes"`
	Functions  []boundary.Record `json:"functions"`
	Exports    []string          `json:"exports"`
	Complexity int               `json:"complexity"`
}

// ClassDoc is a class with its methods in source order.
type ClassDoc struct {
	Class   boundary.Record   `json:"class"`
	Methods []boundary.Record `json:"methods"`
}

// Summarize computes statistics over records. top bounds MostComplex;
// zero leaves it empty.
func Summarize(records []boundary.Record, top int) Summary {
	s := Summary{
		Total:       len(records),
		Endpoints:   []boundary.Record{},
		MostComplex: []boundary.Record{},
	}
	topLevel := 0
	files := make(map[string]bool)
	var callables []boundary.Record
	complexitySum := 0

	for _, r := range records {
		files[r.FilePath] = true
		if r.IsAsync {
			s.Async++
		}
		if r.IsAPIEndpoint {
			s.Endpoints = append(s.Endpoints, r)
		}

		switch entity.EntityType(r.EntityType) {
		case entity.Class, entity.Function:
			topLevel++
			if isPublic(r.Name) {
				s.Public++
			}
		}

		switch entity.EntityType(r.EntityType) {
		case entity.Class:
			s.Classes++
			continue
		case entity.Function:
			s.Functions++
		case entity.Method:
			s.Methods++
		default:
			continue
		}

		callables = append(callables, r)
		if r.Docstring != nil && strings.TrimSpace(*r.Docstring) != "" {
			s.Documented++
		}
		complexitySum += r.ComplexityScore
		switch {
		case r.ComplexityScore <= LowMax:
			s.Distribution.Low++
		case r.ComplexityScore <= MediumMax:
			s.Distribution.Medium++
		default:
			s.Distribution.High++
		}
	}

	s.Files = len(files)
	if topLevel > 0 {
		s.PublicRatio = float64(s.Public) / float64(topLevel)
	}
	s.Modules = fileDocs(records)
	s.Directories = directoryStats(s.Modules)
	s.Documentable = len(callables)
	if s.Documentable > 0 {
		s.Coverage = float64(s.Documented) / float64(s.Documentable)
		s.AverageComplexity = float64(complexitySum) / float64(s.Documentable)
	}

	sort.SliceStable(callables, func(i, j int) bool {
		return callables[i].ComplexityScore > callables[j].ComplexityScore
	})
	if top > len(callables) {
		top = len(callables)
	}
	if top > 0 {
		s.MostComplex = append(s.MostComplex, callables[:top]...)
	}
	return s
}

func isPublic(name string) bool {
	return !strings.HasPrefix(name, "_")
}

// fileDocs groups records per file, ordered by path.
func fileDocs(records []boundary.Record) []FileDoc {
	byPath := make(map[string]*FileDoc)
	var paths []string
	for _, r := range records {
		doc, ok := byPath[r.FilePath]
		if !ok {
			doc = &FileDoc{
				Path:      r.FilePath,
				Classes:   []ClassDoc{},
				Functions: []boundary.Record{},
				Exports:   []string{},
			}
			byPath[r.FilePath] = doc
			paths = append(paths, r.FilePath)
		}
		doc.Complexity += r.ComplexityScore

		switch entity.EntityType(r.EntityType) {
		case entity.Class:
			doc.Classes = append(doc.Classes, ClassDoc{Class: r, Methods: []boundary.Record{}})
		case entity.Function:
			doc.Functions = append(doc.Functions, r)
		case entity.Method:
			if n := len(doc.Classes); n > 0 {
				doc.Classes[n-1].Methods = append(doc.Classes[n-1].Methods, r)
			}
			continue
		default:
			continue
		}
		if isPublic(r.Name) {
			doc.Exports = append(doc.Exports, r.Name)
		}
	}

	sort.Strings(paths)
	docs := make([]FileDoc, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, *byPath[p])
	}
	return docs
}

func directoryStats(docs []FileDoc) []DirectoryStats {
	byDir := make(map[string]*DirectoryStats)
	var dirs []string
	for _, doc := range docs {
		dir := path.Dir(doc.Path)
		ds, ok := byDir[dir]
		if !ok {
			ds = &DirectoryStats{Dir: dir}
			byDir[dir] = ds
			dirs = append(dirs, dir)
		}
		ds.Files++
		ds.Classes += len(doc.Classes)
		ds.Functions += len(doc.Functions)
		for _, c := range doc.Classes {
			ds.Methods += len(c.Methods)
		}
	}

	sort.Strings(dirs)
	out := make([]DirectoryStats, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, *byDir[d])
	}
	return out
}

// Signature renders a record as a Python-like def line.
func Signature(r boundary.Record) string {
	var b strings.Builder
	if r.IsAsync {
		b.WriteString("async ")
	}
	if entity.EntityType(r.EntityType) == entity.Class {
		b.WriteString("class ")
		b.WriteString(r.Name)
		return b.String()
	}
	fmt.Fprintf(&b, "def %s(%s)", r.Name, strings.Join(r.Parameters, ", "))
	if r.ReturnType != nil {
		b.WriteString(" -> ")
		b.WriteString(*r.ReturnType)
	}
	return b.String()
}

// firstLine returns the first non-blank line of a docstring.
func firstLine(doc *string) string {
	if doc == nil {
		return ""
	}
	for _, line := range strings.Split(*doc, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Markdown renders a summary as a markdown document.
func Markdown(s Summary) string {
	var b strings.Builder

	title := s.Title
	if title == "" {
		title = "Code summary"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Files | %d |\n", s.Files)
	fmt.Fprintf(&b, "| Entities | %d |\n", s.Total)
	fmt.Fprintf(&b, "| Classes | %d |\n", s.Classes)
	fmt.Fprintf(&b, "| Functions | %d |\n", s.Functions)
	fmt.Fprintf(&b, "| Methods | %d |\n", s.Methods)
	fmt.Fprintf(&b, "| Async | %d |\n", s.Async)
	fmt.Fprintf(&b, "| Documented | %d/%d (%.1f%%) |\n", s.Documented, s.Documentable, s.Coverage*100)
	fmt.Fprintf(&b, "| Average complexity | %.2f |\n", s.AverageComplexity)
	fmt.Fprintf(&b, "| Public API | %d/%d (%.1f%%) |\n", s.Public, s.Functions+s.Classes, s.PublicRatio*100)

	b.WriteString("\n## Complexity\n\n")
	fmt.Fprintf(&b, "- Low (<= %d): %d\n", LowMax, s.Distribution.Low)
	fmt.Fprintf(&b, "- Medium (<= %d): %d\n", MediumMax, s.Distribution.Medium)
	fmt.Fprintf(&b, "- High (> %d): %d\n", MediumMax, s.Distribution.High)

	if len(s.MostComplex) > 0 {
		b.WriteString("\n### Most complex\n\n")
		b.WriteString("| Name | Kind | Location | Score |\n|---|---|---|---|\n")
		for _, r := range s.MostComplex {
			fmt.Fprintf(&b, "| `%s` | %s | %s:%d | %d |\n", r.Name, r.EntityType, r.FilePath, r.LineNumber, r.ComplexityScore)
		}
	}

	b.WriteString("\n## API endpoints\n\n")
	if len(s.Endpoints) == 0 {
		b.WriteString("No endpoints detected.\n")
	} else {
		b.WriteString("| Name | Path | Location |\n|---|---|---|\n")
		for _, r := range s.Endpoints {
			route := "-"
			if r.EndpointPath != nil {
				route = "`" + *r.EndpointPath + "`"
			}
			fmt.Fprintf(&b, "| `%s` | %s | %s:%d |\n", r.Name, route, r.FilePath, r.LineNumber)
		}
	}

	if len(s.Directories) > 0 {
		b.WriteString("\n## Directories\n\n")
		b.WriteString("| Directory | Files | Classes | Functions | Methods |\n|---|---|---|---|---|\n")
		for _, d := range s.Directories {
			fmt.Fprintf(&b, "| `%s` | %d | %d | %d | %d |\n", d.Dir, d.Files, d.Classes, d.Functions, d.Methods)
		}
	}

	if len(s.Modules) > 0 {
		b.WriteString("\n## Files\n")
		for _, doc := range s.Modules {
			writeFileDoc(&b, doc)
		}
	}
	return b.String()
}

func writeFileDoc(b *strings.Builder, doc FileDoc) {
	fmt.Fprintf(b, "\n### `%s`\n\n", doc.Path)
	if len(doc.Exports) > 0 {
		fmt.Fprintf(b, "Exports: %s\n", strings.Join(doc.Exports, ", "))
	}

	for _, c := range doc.Classes {
		fmt.Fprintf(b, "\n#### class `%s` (line %d)\n\n", c.Class.Name, c.Class.LineNumber)
		writeDetails(b, c.Class, "")
		for _, m := range c.Methods {
			fmt.Fprintf(b, "- `%s` (line %d)\n", Signature(m), m.LineNumber)
			writeDetails(b, m, "  ")
		}
	}

	if len(doc.Functions) > 0 {
		b.WriteString("\n#### Functions\n\n")
		for _, f := range doc.Functions {
			fmt.Fprintf(b, "- `%s` (line %d)\n", Signature(f), f.LineNumber)
			writeDetails(b, f, "  ")
		}
	}
}

func writeDetails(b *strings.Builder, r boundary.Record, indent string) {
	if line := firstLine(r.Docstring); line != "" {
		fmt.Fprintf(b, "%s%s\n", indent, line)
	}
	if len(r.Decorators) > 0 {
		fmt.Fprintf(b, "%sDecorators: `@%s`\n", indent, strings.Join(r.Decorators, "`, `@"))
	}
	if indent == "" && (r.Docstring != nil || len(r.Decorators) > 0) {
		b.WriteString("\n")
	}
}
