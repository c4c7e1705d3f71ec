package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Emberfield/autodoc/internal/boundary"
)

// FileRecord represents an analyzed source file.
type FileRecord struct {
	ID          int64     `db:"id"`
	Path        string    `db:"path"`
	Hash        string    `db:"hash"`
	AnalyzedAt  time.Time `db:"analyzed_at"`
	EntityCount int       `db:"entity_count"`
}

// Filter narrows ListEntities and Search. Zero values match everything.
type Filter struct {
	Type          string // entity_type
	FilePath      string
	NameContains  string
	EndpointsOnly bool
	MinComplexity int
	Limit         int
}

// SearchResult is an entity matched by Search. Score is 1.0 for a name
// match and 0.5 for a docstring-only match.
type SearchResult struct {
	Record boundary.Record `json:"entity"`
	Score  float64         `json:"similarity"`
}

// entityRow is the column layout of the entities table. List fields are
// stored as JSON arrays.
type entityRow struct {
	ID              int64          `db:"id"`
	FileID          int64          `db:"file_id"`
	Ordinal         int            `db:"ordinal"`
	EntityType      string         `db:"entity_type"`
	Name            string         `db:"name"`
	FilePath        string         `db:"file_path"`
	LineNumber      int            `db:"line_number"`
	Docstring       sql.NullString `db:"docstring"`
	Code            string         `db:"code"`
	IsAsync         bool           `db:"is_async"`
	Decorators      string         `db:"decorators"`
	Parameters      string         `db:"parameters"`
	ReturnType      sql.NullString `db:"return_type"`
	IsInternal      bool           `db:"is_internal"`
	IsAPIEndpoint   bool           `db:"is_api_endpoint"`
	EndpointPath    sql.NullString `db:"endpoint_path"`
	HTTPMethods     string         `db:"http_methods"`
	ComplexityScore int            `db:"complexity_score"`
}

type searchRow struct {
	entityRow
	Score   float64 `db:"score"`
	FileKey string  `db:"file_key"`
}

func toRow(fileID int64, ordinal int, r boundary.Record) (entityRow, error) {
	row := entityRow{
		FileID:          fileID,
		Ordinal:         ordinal,
		EntityType:      r.EntityType,
		Name:            r.Name,
		FilePath:        r.FilePath,
		LineNumber:      r.LineNumber,
		Docstring:       nullString(r.Docstring),
		Code:            r.Code,
		IsAsync:         r.IsAsync,
		ReturnType:      nullString(r.ReturnType),
		IsInternal:      r.IsInternal,
		IsAPIEndpoint:   r.IsAPIEndpoint,
		EndpointPath:    nullString(r.EndpointPath),
		ComplexityScore: r.ComplexityScore,
	}
	var err error
	if row.Decorators, err = encodeList(r.Decorators); err != nil {
		return row, err
	}
	if row.Parameters, err = encodeList(r.Parameters); err != nil {
		return row, err
	}
	if row.HTTPMethods, err = encodeList(r.HTTPMethods); err != nil {
		return row, err
	}
	return row, nil
}

func (row entityRow) record() (boundary.Record, error) {
	r := boundary.Record{
		EntityType:      row.EntityType,
		Name:            row.Name,
		FilePath:        row.FilePath,
		LineNumber:      row.LineNumber,
		Docstring:       stringPtr(row.Docstring),
		Code:            row.Code,
		IsAsync:         row.IsAsync,
		ReturnType:      stringPtr(row.ReturnType),
		IsInternal:      row.IsInternal,
		IsAPIEndpoint:   row.IsAPIEndpoint,
		EndpointPath:    stringPtr(row.EndpointPath),
		ComplexityScore: row.ComplexityScore,
	}
	var err error
	if r.Decorators, err = decodeList(row.Decorators); err != nil {
		return r, err
	}
	if r.Parameters, err = decodeList(row.Parameters); err != nil {
		return r, err
	}
	if r.HTTPMethods, err = decodeList(row.HTTPMethods); err != nil {
		return r, err
	}
	return r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	return string(data), err
}

func decodeList(s string) ([]string, error) {
	list := []string{}
	if s == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, err
	}
	return list, nil
}
