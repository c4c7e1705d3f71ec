package store

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Emberfield/autodoc/internal/boundary"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := Open(filepath.Join(t.TempDir(), "nested", "entities.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(s string) *string { return &s }

func sampleRecords(file string) []boundary.Record {
	return []boundary.Record{
		{
			EntityType:      "class",
			Name:            "UserService",
			FilePath:        file,
			LineNumber:      1,
			Docstring:       ptr("Manages users."),
			Code:            "class UserService",
			Decorators:      []string{},
			Parameters:      []string{},
			HTTPMethods:     []string{},
			ComplexityScore: 1,
		},
		{
			EntityType:      "method",
			Name:            "get_user",
			FilePath:        file,
			LineNumber:      4,
			Code:            "async def get_user(...): ...",
			IsAsync:         true,
			Decorators:      []string{`app.get("/users/{id}")`},
			Parameters:      []string{"self", "user_id"},
			ReturnType:      ptr("User"),
			IsAPIEndpoint:   true,
			EndpointPath:    ptr("/users/{id}"),
			HTTPMethods:     []string{},
			ComplexityScore: 5,
		},
		{
			EntityType:      "function",
			Name:            "helper",
			FilePath:        file,
			LineNumber:      9,
			Code:            "def helper(...): ...",
			Decorators:      []string{},
			Parameters:      []string{"*args", "**kwargs"},
			HTTPMethods:     []string{},
			ComplexityScore: 3,
		},
	}
}

func TestReplaceFile_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	records := sampleRecords("svc.py")

	require.NoError(t, s.ReplaceFile("svc.py", "abc", records))

	got, err := s.FileEntities("svc.py")
	require.NoError(t, err)
	assert.Equal(t, records, got)

	hash, err := s.GetFileHash("svc.py")
	require.NoError(t, err)
	assert.Equal(t, "abc", hash)
}

func TestReplaceFile_SwapsPreviousEntities(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.ReplaceFile("svc.py", "v1", sampleRecords("svc.py")))

	replacement := sampleRecords("svc.py")[2:]
	require.NoError(t, s.ReplaceFile("svc.py", "v2", replacement))

	got, err := s.FileEntities("svc.py")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "v2", files[0].Hash)
	assert.Equal(t, 1, files[0].EntityCount)
}

func TestReplaceFile_NoEntities(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.ReplaceFile("empty.py", "h", nil))

	got, err := s.FileEntities("empty.py")
	require.NoError(t, err)
	assert.Empty(t, got)
	hash, err := s.GetFileHash("empty.py")
	require.NoError(t, err)
	assert.Equal(t, "h", hash)
}

func TestGetFileHash_Unknown(t *testing.T) {
	s := openTestStore(t)

	hash, err := s.GetFileHash("missing.py")

	require.NoError(t, err)
	assert.Equal(t, "", hash)
}

func TestListEntities_Filters(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.ReplaceFile("b.py", "1", sampleRecords("b.py")))
	require.NoError(t, s.ReplaceFile("a.py", "2", sampleRecords("a.py")))

	names := func(records []boundary.Record) []string {
		out := []string{}
		for _, r := range records {
			out = append(out, r.FilePath+":"+r.Name)
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all ordered by file then position", Filter{}, []string{
			"a.py:UserService", "a.py:get_user", "a.py:helper",
			"b.py:UserService", "b.py:get_user", "b.py:helper",
		}},
		{"by type", Filter{Type: "function"}, []string{"a.py:helper", "b.py:helper"}},
		{"by file", Filter{FilePath: "b.py"}, []string{"b.py:UserService", "b.py:get_user", "b.py:helper"}},
		{"name substring ignores case", Filter{NameContains: "USER"}, []string{
			"a.py:UserService", "a.py:get_user", "b.py:UserService", "b.py:get_user",
		}},
		{"endpoints only", Filter{EndpointsOnly: true}, []string{"a.py:get_user", "b.py:get_user"}},
		{"min complexity", Filter{MinComplexity: 3}, []string{
			"a.py:get_user", "a.py:helper", "b.py:get_user", "b.py:helper",
		}},
		{"combined with limit", Filter{MinComplexity: 3, Limit: 1}, []string{"a.py:get_user"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEntities(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestSearch_RanksNameAboveDocstring(t *testing.T) {
	s := openTestStore(t)
	a := sampleRecords("a.py")
	a[2].Docstring = ptr("Normalizes a USER record.")
	require.NoError(t, s.ReplaceFile("a.py", "1", a))
	b := sampleRecords("b.py")
	b[0].Docstring = nil
	require.NoError(t, s.ReplaceFile("b.py", "2", b))

	got, err := s.Search("user", Filter{})
	require.NoError(t, err)

	var hits []string
	var scores []float64
	for _, r := range got {
		hits = append(hits, r.Record.FilePath+":"+r.Record.Name)
		scores = append(scores, r.Score)
	}
	assert.Equal(t, []string{
		"a.py:UserService", "a.py:get_user", "b.py:UserService", "b.py:get_user",
		"a.py:helper",
	}, hits)
	assert.Equal(t, []float64{1, 1, 1, 1, 0.5}, scores)
	assert.Equal(t, a[2], got[4].Record)

	limited, err := s.Search("user", Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.Search("  ", Filter{})
	require.NoError(t, err)
	assert.Empty(t, none)

	functions, err := s.Search("user", Filter{Type: "function"})
	require.NoError(t, err)
	require.Len(t, functions, 1)
	assert.Equal(t, "a.py", functions[0].Record.FilePath)
	assert.Equal(t, 0.5, functions[0].Score)

	missing, err := s.Search("payment", Filter{})
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestEndpoints(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.ReplaceFile("svc.py", "1", sampleRecords("svc.py")))

	got, err := s.Endpoints()

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "get_user", got[0].Name)
	require.NotNil(t, got[0].EndpointPath)
	assert.Equal(t, "/users/{id}", *got[0].EndpointPath)
}

func TestDeleteFileAndDeleteAll(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.ReplaceFile("a.py", "1", sampleRecords("a.py")))
	require.NoError(t, s.ReplaceFile("b.py", "2", sampleRecords("b.py")))

	require.NoError(t, s.DeleteFile("a.py"))
	all, err := s.ListEntities(Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, r := range all {
		assert.Equal(t, "b.py", r.FilePath)
	}

	require.NoError(t, s.DeleteAll())
	files, err := s.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
	all, err = s.ListEntities(Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMeta(t *testing.T) {
	s := openTestStore(t)

	v, err := s.GetMeta("root")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.SetMeta("root", "/src/a"))
	require.NoError(t, s.SetMeta("root", "/src/b"))
	v, err = s.GetMeta("root")
	require.NoError(t, err)
	assert.Equal(t, "/src/b", v)
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceFile("a.py", "1", sampleRecords("a.py")))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.FileEntities("a.py")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
