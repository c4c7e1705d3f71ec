package boundary

import (
	"encoding/json"
	"testing"

	"github.com/Emberfield/autodoc/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntity() entity.CodeEntity {
	e := entity.New(entity.Method, "get_users", "app/api.py", 20)
	e.Docstring = entity.StringPtr("List users.")
	e.Code = "def get_users(...): ..."
	e.Decorators = []string{`route("/api/users")`}
	e.Parameters = []string{"self", "*args"}
	e.DetectAPIEndpoint()
	e.CalculateComplexity()
	return e
}

func TestFromEntity(t *testing.T) {
	r := FromEntity(sampleEntity())

	assert.Equal(t, "method", r.EntityType)
	assert.Equal(t, "get_users", r.Name)
	assert.Equal(t, "app/api.py", r.FilePath)
	assert.Equal(t, 20, r.LineNumber)
	require.NotNil(t, r.Docstring)
	assert.Equal(t, "List users.", *r.Docstring)
	assert.Nil(t, r.ReturnType)
	assert.True(t, r.IsAPIEndpoint)
	require.NotNil(t, r.EndpointPath)
	assert.Equal(t, "/api/users", *r.EndpointPath)
	assert.Equal(t, []string{"self", "*args"}, r.Parameters)
	assert.Equal(t, []string{}, r.HTTPMethods)
	assert.Equal(t, 3, r.ComplexityScore)
}

func TestFromEntity_DoesNotAlias(t *testing.T) {
	e := sampleEntity()
	r := FromEntity(e)

	e.Parameters[0] = "changed"
	*e.Docstring = "changed"

	assert.Equal(t, "self", r.Parameters[0])
	assert.Equal(t, "List users.", *r.Docstring)
}

func TestFromEntity_NilSlicesBecomeEmpty(t *testing.T) {
	r := FromEntity(entity.CodeEntity{Type: entity.Class, Name: "C", ComplexityScore: 1})

	assert.NotNil(t, r.Decorators)
	assert.NotNil(t, r.Parameters)
	assert.NotNil(t, r.HTTPMethods)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"decorators":[]`)
	assert.Contains(t, string(data), `"docstring":null`)
}

func TestFromEntities_PreservesOrder(t *testing.T) {
	a := entity.New(entity.Class, "A", "m.py", 1)
	b := entity.New(entity.Method, "b", "m.py", 2)
	c := entity.New(entity.Function, "c", "m.py", 5)

	records := FromEntities([]entity.CodeEntity{a, b, c})

	require.Len(t, records, 3)
	assert.Equal(t, "A", records[0].Name)
	assert.Equal(t, "b", records[1].Name)
	assert.Equal(t, "c", records[2].Name)
}

func TestRecord_ToEntity(t *testing.T) {
	e := sampleEntity()

	back := FromEntity(e).ToEntity()

	assert.Equal(t, e, back)
}

func TestRecord_ToMap(t *testing.T) {
	m := FromEntity(sampleEntity()).ToMap()

	assert.Equal(t, "method", m["entity_type"])
	assert.Equal(t, "app/api.py", m["file_path"])
	assert.Equal(t, "List users.", m["docstring"])
	assert.Nil(t, m["return_type"])
	assert.Equal(t, "/api/users", m["endpoint_path"])
	assert.Equal(t, []string{"self", "*args"}, m["parameters"])
	assert.Equal(t, 3, m["complexity_score"])
	assert.Len(t, m, 15)
}
