package toolgen

import (
	"fmt"
	"os"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// Operation is one HTTP method + path pair extracted from the document,
// with path-level and operation-level parameters merged.
type Operation struct {
	Method      string // upper case
	Path        string
	OperationID string
	Summary     string
	Description string
	Parameters  openapi3.Parameters
	RequestBody *openapi3.RequestBodyRef
	Responses   *openapi3.Responses
	Tags        []string
}

// Key returns the stable identity of the operation, "METHOD /path".
func (o Operation) Key() string { return o.Method + " " + o.Path }

// LoadSpec loads and validates an OpenAPI YAML or JSON file.
func LoadSpec(path string) (*openapi3.T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI spec file: %w", err)
	}
	return LoadSpecFromBytes(data)
}

// LoadSpecFromBytes loads and validates an OpenAPI YAML or JSON spec from a
// byte slice.
func LoadSpecFromBytes(data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("OpenAPI spec validation failed: %w", err)
	}
	return doc, nil
}

// ExtractOperations extracts every operation from the document in a stable
// order (path, then method). Determinism of the whole pipeline hinges on
// this ordering.
func ExtractOperations(doc *openapi3.T) []Operation {
	var ops []Operation
	if doc.Paths == nil {
		return ops
	}
	for path, pathItem := range doc.Paths.Map() {
		for method, op := range pathItem.Operations() {
			if op == nil {
				continue
			}
			merged := openapi3.Parameters{}
			merged = append(merged, pathItem.Parameters...)
			merged = append(merged, op.Parameters...)
			ops = append(ops, Operation{
				Method:      method,
				Path:        path,
				OperationID: op.OperationID,
				Summary:     op.Summary,
				Description: op.Description,
				Parameters:  merged,
				RequestBody: op.RequestBody,
				Responses:   op.Responses,
				Tags:        op.Tags,
			})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return methodRank(ops[i].Method) < methodRank(ops[j].Method)
	})
	return ops
}

// methodRank orders methods GET, POST, PUT, PATCH, DELETE, HEAD, then the
// rest lexically after.
func methodRank(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	case "HEAD":
		return 5
	default:
		return 6
	}
}
