package toolgen

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objectSchema(props map[string]*openapi3.SchemaRef, required ...string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   required,
	})
}

func primitiveSchema(t string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("", &openapi3.Schema{Type: &openapi3.Types{t}})
}

func TestSchemaNodeAllOfMergesFields(t *testing.T) {
	w := &testWarnings{}
	r := &resolver{warn: w.warn}

	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		AllOf: openapi3.SchemaRefs{
			objectSchema(map[string]*openapi3.SchemaRef{
				"name": primitiveSchema("string"),
			}, "name"),
			objectSchema(map[string]*openapi3.SchemaRef{
				"size": primitiveSchema("integer"),
			}),
		},
	})

	node, err := r.schemaNode(ref, "test", resolveState{})
	require.NoError(t, err)
	require.Equal(t, KindObject, node.Kind)
	assert.ElementsMatch(t, []string{"name", "size"}, node.FieldNames())

	name := node.Fields[0]
	if name.Name != "name" {
		name = node.Fields[1]
	}
	assert.True(t, name.Required)
	assert.Empty(t, w.list)
}

func TestSchemaNodeAllOfConflictDegradesField(t *testing.T) {
	w := &testWarnings{}
	r := &resolver{warn: w.warn}

	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		AllOf: openapi3.SchemaRefs{
			objectSchema(map[string]*openapi3.SchemaRef{
				"value": primitiveSchema("string"),
			}),
			objectSchema(map[string]*openapi3.SchemaRef{
				"value": primitiveSchema("integer"),
			}),
		},
	})

	node, err := r.schemaNode(ref, "test", resolveState{})
	require.NoError(t, err)
	require.Equal(t, KindObject, node.Kind)
	require.Len(t, node.Fields, 1)
	assert.Equal(t, KindUnknown, node.Fields[0].Schema.Kind)
	require.Len(t, w.list, 1)
	assert.Contains(t, w.list[0].Detail, "conflicting types")
}

func TestSchemaNodeAllOfScalarAlias(t *testing.T) {
	r := &resolver{warn: func(string, string, string) {}}

	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		AllOf: openapi3.SchemaRefs{primitiveSchema("string")},
	})
	node, err := r.schemaNode(ref, "test", resolveState{})
	require.NoError(t, err)
	assert.Equal(t, KindPrimitive, node.Kind)
	assert.Equal(t, "string", node.Primitive)
}

func TestSchemaNodeCycleCutsToRecursive(t *testing.T) {
	r := &resolver{warn: func(string, string, string) {}}

	self := &openapi3.Schema{Type: &openapi3.Types{"object"}}
	self.Properties = map[string]*openapi3.SchemaRef{
		"parent": openapi3.NewSchemaRef("#/components/schemas/Node", self),
	}
	ref := openapi3.NewSchemaRef("#/components/schemas/Node", self)

	node, err := r.schemaNode(ref, "test", resolveState{})
	require.NoError(t, err)
	require.Equal(t, KindObject, node.Kind)
	require.Len(t, node.Fields, 1)
	assert.Equal(t, KindRecursive, node.Fields[0].Schema.Kind)
}

func TestSchemaNodeDanglingRefIsFatal(t *testing.T) {
	r := &resolver{warn: func(string, string, string) {}}

	ref := &openapi3.SchemaRef{Ref: "#/components/schemas/Missing"}
	_, err := r.schemaNode(ref, "GET /api/v0/things responses.200", resolveState{})
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "#/components/schemas/Missing", resErr.Ref)
	assert.Contains(t, resErr.Location, "GET /api/v0/things")
}

func TestSchemaNodeEnum(t *testing.T) {
	r := &resolver{warn: func(string, string, string) {}}

	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type: &openapi3.Types{"string"},
		Enum: []any{"Queued", "InProgress", "Completed"},
	})
	node, err := r.schemaNode(ref, "test", resolveState{})
	require.NoError(t, err)
	assert.Equal(t, KindEnum, node.Kind)
	assert.Equal(t, []string{"Queued", "InProgress", "Completed"}, node.EnumValues)
}

func TestResponseNodeUnionAcrossStatuses(t *testing.T) {
	r := &resolver{warn: func(string, string, string) {}}

	responses := openapi3.NewResponses()
	responses.Set("200", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription("OK").
			WithJSONSchemaRef(objectSchema(map[string]*openapi3.SchemaRef{
				"id": primitiveSchema("string"),
			})),
	})
	responses.Set("202", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription("Accepted").
			WithJSONSchemaRef(primitiveSchema("string")),
	})

	node, err := r.responseNode(Operation{Method: "GET", Path: "/api/v0/things", Responses: responses})
	require.NoError(t, err)
	require.NotNil(t, node)
	require.Equal(t, KindUnion, node.Kind)
	assert.Len(t, node.Variants, 2)
}

func TestResponseNodeSameShapeIsNotAUnion(t *testing.T) {
	r := &resolver{warn: func(string, string, string) {}}

	responses := openapi3.NewResponses()
	responses.Set("200", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription("OK").
			WithJSONSchemaRef(objectSchema(nil)),
	})
	responses.Set("201", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription("Created").
			WithJSONSchemaRef(objectSchema(nil)),
	})

	node, err := r.responseNode(Operation{Method: "POST", Path: "/api/v0/things", Responses: responses})
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, KindObject, node.Kind)
}

func TestResponseNodeOverrideFillsMissingSchema(t *testing.T) {
	overrides := &Overrides{
		Responses: map[string]string{"GET /api/v0/logs": "array"},
	}
	r := &resolver{overrides: overrides, warn: func(string, string, string) {}}

	responses := openapi3.NewResponses()
	responses.Set("200", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription("OK"),
	})

	node, err := r.responseNode(Operation{Method: "GET", Path: "/api/v0/logs", Responses: responses})
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, KindArray, node.Kind)
}

func TestResponseNodeNoBody(t *testing.T) {
	r := &resolver{warn: func(string, string, string) {}}

	responses := openapi3.NewResponses()
	responses.Set("204", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription("Deleted"),
	})

	node, err := r.responseNode(Operation{Method: "DELETE", Path: "/api/v0/things/{id}", Responses: responses})
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestExtractOperationsOrderIsStable(t *testing.T) {
	doc := mustLoad(t, fixtureSpec)
	ops := ExtractOperations(doc)

	var keys []string
	for _, op := range ops {
		keys = append(keys, op.Key())
	}
	assert.Equal(t, []string{
		"PATCH /api/v0/options",
		"GET /api/v0/searches",
		"POST /api/v0/searches",
		"GET /api/v0/searches/{id}",
		"DELETE /api/v0/searches/{id}",
	}, keys)
}
