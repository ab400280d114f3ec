package toolgen

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

// mustLoad parses and validates an inline OpenAPI JSON document.
func mustLoad(t *testing.T, spec string) *openapi3.T {
	t.Helper()
	doc, err := LoadSpecFromBytes([]byte(spec))
	require.NoError(t, err)
	return doc
}

// testWarnings collects sanitization warnings raised during a test.
type testWarnings struct {
	list []Warning
}

func (w *testWarnings) warn(tool, field, detail string) {
	w.list = append(w.list, Warning{Tool: tool, Field: field, Detail: detail})
}

// fixtureSpec is a small slskd-flavored document exercising most pipeline
// paths: list/get/create/delete, enums, readOnly fields, defaults, and a
// paginated response.
const fixtureSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "slskd API", "version": "0.21.4"},
  "paths": {
    "/api/v0/searches": {
      "get": {
        "summary": "List search requests",
        "parameters": [
          {"name": "state", "in": "query", "schema": {"type": "string", "enum": ["InProgress", "Completed"]}}
        ],
        "responses": {
          "200": {
            "description": "OK",
            "content": {"application/json": {"schema": {
              "type": "array",
              "items": {"$ref": "#/components/schemas/Search"}
            }}}
          }
        }
      },
      "post": {
        "summary": "Start a new search",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/SearchRequest"}}}
        },
        "responses": {"201": {"description": "Created"}}
      }
    },
    "/api/v0/searches/{id}": {
      "get": {
        "summary": "Get a search by id",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {
            "description": "OK",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Search"}}}
          }
        }
      },
      "delete": {
        "summary": "Delete a search",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {"204": {"description": "Deleted"}}
      }
    },
    "/api/v0/options": {
      "patch": {
        "summary": "Update options",
        "requestBody": {
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Options"}}}
        },
        "responses": {"200": {"description": "OK"}}
      }
    }
  },
  "components": {
    "schemas": {
      "Search": {
        "type": "object",
        "properties": {
          "id": {"type": "string", "readOnly": true},
          "searchText": {"type": "string"},
          "state": {"type": "string", "enum": ["InProgress", "Completed", "Cancelled"]}
        }
      },
      "SearchRequest": {
        "type": "object",
        "required": ["searchText"],
        "properties": {
          "id": {"type": "string"},
          "startedAt": {"type": "string", "readOnly": true},
          "searchText": {"type": "string", "description": "<b>Text</b> to  search for"},
          "timeout": {"type": "integer", "default": 15000},
          "token": {"type": "integer", "default": 9007199254740992}
        }
      },
      "Options": {
        "type": "object",
        "properties": {
          "slots": {"type": "integer", "default": 0},
          "note": {"type": "string", "description": "Required if slots=0."}
        }
      }
    }
  }
}`
