package toolgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// maxResolveDepth bounds schema expansion. Self-referential definitions are
// cut with a KindRecursive node instead of expanding forever.
const maxResolveDepth = 12

// resolver turns openapi3 schema references into canonical SchemaNode trees.
// One resolver serves one compilation run.
type resolver struct {
	overrides *Overrides
	warn      func(tool, field, detail string)
}

// resolveState tracks the current expansion path so cycles are detected per
// branch, not globally.
type resolveState struct {
	depth int
	seen  map[*openapi3.Schema]bool
}

func (s resolveState) descend(v *openapi3.Schema) resolveState {
	seen := make(map[*openapi3.Schema]bool, len(s.seen)+1)
	for k := range s.seen {
		seen[k] = true
	}
	seen[v] = true
	return resolveState{depth: s.depth + 1, seen: seen}
}

// schemaNode resolves one schema reference into a canonical node. location
// is a human-readable position used in error messages.
func (r *resolver) schemaNode(ref *openapi3.SchemaRef, location string, st resolveState) (*SchemaNode, error) {
	if ref == nil {
		return &SchemaNode{Kind: KindUnknown}, nil
	}
	if ref.Value == nil {
		if ref.Ref != "" {
			return nil, &ResolutionError{Ref: ref.Ref, Location: location}
		}
		return &SchemaNode{Kind: KindUnknown}, nil
	}
	val := ref.Value
	if st.depth >= maxResolveDepth || st.seen[val] {
		return &SchemaNode{Kind: KindRecursive, Ref: ref.Ref, Description: val.Description}, nil
	}
	st = st.descend(val)

	node := &SchemaNode{
		Ref:         ref.Ref,
		Default:     val.Default,
		Description: val.Description,
		Nullable:    val.Nullable,
	}

	if len(val.AllOf) > 0 {
		merged, err := r.mergeAllOf(val.AllOf, location, st)
		if err != nil {
			return nil, err
		}
		merged.Ref = ref.Ref
		if merged.Default == nil {
			merged.Default = val.Default
		}
		if merged.Description == "" {
			merged.Description = val.Description
		}
		merged.Nullable = merged.Nullable || val.Nullable
		return merged, nil
	}

	if len(val.OneOf) > 0 || len(val.AnyOf) > 0 {
		branches := val.OneOf
		if len(branches) == 0 {
			branches = val.AnyOf
		}
		for i, sub := range branches {
			vn, err := r.schemaNode(sub, fmt.Sprintf("%s.oneOf[%d]", location, i), st)
			if err != nil {
				return nil, err
			}
			node.Variants = append(node.Variants, vn)
		}
		node.Kind = KindUnion
		return node, nil
	}

	if len(val.Enum) > 0 {
		node.Kind = KindEnum
		node.Primitive = "string"
		if val.Type != nil && len(*val.Type) > 0 {
			node.Primitive = (*val.Type)[0]
		}
		for _, v := range val.Enum {
			node.EnumValues = append(node.EnumValues, fmt.Sprintf("%v", v))
		}
		return node, nil
	}

	switch {
	case typeIs(val, "string"), typeIs(val, "integer"), typeIs(val, "number"), typeIs(val, "boolean"):
		node.Kind = KindPrimitive
		node.Primitive = (*val.Type)[0]
	case typeIs(val, "array"):
		node.Kind = KindArray
		item, err := r.schemaNode(val.Items, location+".items", st)
		if err != nil {
			return nil, err
		}
		node.Items = item
	case typeIs(val, "object"), len(val.Properties) > 0:
		node.Kind = KindObject
		required := map[string]bool{}
		for _, name := range val.Required {
			required[name] = true
		}
		names := make([]string, 0, len(val.Properties))
		for name := range val.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sub := val.Properties[name]
			fn, err := r.schemaNode(sub, location+"."+name, st)
			if err != nil {
				return nil, err
			}
			readOnly := sub != nil && sub.Value != nil && sub.Value.ReadOnly
			node.Fields = append(node.Fields, SchemaField{
				Name:     name,
				Schema:   fn,
				Required: required[name],
				ReadOnly: readOnly,
			})
		}
	default:
		node.Kind = KindUnknown
	}
	return node, nil
}

// mergeAllOf merges all allOf branches into one node. Object field maps are
// unioned; a field appearing in several branches with incompatible shapes
// degrades to unknown with a recorded warning. If any branch contributes
// named fields the result is an object, even when another branch is a
// primitive alias.
func (r *resolver) mergeAllOf(branches openapi3.SchemaRefs, location string, st resolveState) (*SchemaNode, error) {
	merged := &SchemaNode{Kind: KindObject}
	var firstScalar *SchemaNode
	for i, sub := range branches {
		bn, err := r.schemaNode(sub, fmt.Sprintf("%s.allOf[%d]", location, i), st)
		if err != nil {
			return nil, err
		}
		switch bn.Kind {
		case KindObject:
			for _, f := range bn.Fields {
				if existing := fieldByName(merged.Fields, f.Name); existing != nil {
					existing.Required = existing.Required || f.Required
					existing.ReadOnly = existing.ReadOnly || f.ReadOnly
					if !compatibleKinds(existing.Schema, f.Schema) {
						r.warn("", f.Name, fmt.Sprintf(
							"conflicting types across allOf branches at %s: %s vs %s",
							location, existing.Schema.Kind, f.Schema.Kind))
						existing.Schema = &SchemaNode{Kind: KindUnknown}
					} else if existing.Schema.Kind == KindUnknown {
						existing.Schema = f.Schema
					}
					continue
				}
				merged.Fields = append(merged.Fields, f)
			}
			if merged.Description == "" {
				merged.Description = bn.Description
			}
		case KindRecursive:
			// A cyclic branch cannot contribute fields; keep the object shape.
		default:
			if firstScalar == nil {
				firstScalar = bn
			}
		}
	}
	if len(merged.Fields) > 0 {
		return merged, nil
	}
	if firstScalar != nil {
		return firstScalar, nil
	}
	// allOf of empty objects still resolves to an object shape.
	return merged, nil
}

func fieldByName(fields []SchemaField, name string) *SchemaField {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}

// compatibleKinds reports whether two resolved shapes can coexist for the
// same field. The more specific one wins; only genuinely different concrete
// shapes conflict.
func compatibleKinds(a, b *SchemaNode) bool {
	if a.Kind == KindUnknown || b.Kind == KindUnknown {
		return true
	}
	if a.Kind != b.Kind {
		// Enums are string-backed and mix with string primitives.
		pair := func(x, y *SchemaNode) bool {
			return x.Kind == KindEnum && y.Kind == KindPrimitive && y.Primitive == "string"
		}
		return pair(a, b) || pair(b, a)
	}
	if a.Kind == KindPrimitive {
		return a.Primitive == b.Primitive
	}
	return true
}

// successStatuses are checked in order when locating a response schema.
var successStatuses = []string{"200", "201", "202", "204"}

// responseContentTypes are the media types considered JSON-shaped.
var responseContentTypes = []string{"application/json", "text/json", "text/plain"}

// responseNode resolves the declared response schema(s) of an operation.
// When distinct success responses declare different shapes the result is a
// union node; a missing schema may be filled from the operator override
// table. A nil node means the operation has no response body.
func (r *resolver) responseNode(op Operation) (*SchemaNode, error) {
	var nodes []*SchemaNode
	if op.Responses != nil {
		responses := op.Responses.Map()
		for _, status := range successStatuses {
			respRef := responses[status]
			if respRef == nil || respRef.Value == nil {
				continue
			}
			for _, ct := range responseContentTypes {
				mt := respRef.Value.Content.Get(ct)
				if mt == nil || mt.Schema == nil {
					continue
				}
				node, err := r.schemaNode(mt.Schema, fmt.Sprintf("%s %s responses.%s", op.Method, op.Path, status), resolveState{})
				if err != nil {
					return nil, err
				}
				if node.Kind != KindUnknown {
					nodes = appendDistinctShape(nodes, node)
				}
				break
			}
		}
	}
	if len(nodes) == 0 && r.overrides != nil {
		if kind, ok := r.overrides.responseFor(op.Method, op.Path); ok {
			return syntheticResponseNode(kind), nil
		}
	}
	switch len(nodes) {
	case 0:
		return nil, nil
	case 1:
		return nodes[0], nil
	default:
		return &SchemaNode{Kind: KindUnion, Variants: nodes}, nil
	}
}

// appendDistinctShape keeps one node per top-level shape so a union is only
// produced for genuinely heterogeneous responses.
func appendDistinctShape(nodes []*SchemaNode, node *SchemaNode) []*SchemaNode {
	for _, existing := range nodes {
		if existing.Kind == node.Kind {
			return nodes
		}
	}
	return append(nodes, node)
}

// syntheticResponseNode builds a response node from an operator-supplied
// shape name. Supported shapes: object, array, string, none.
func syntheticResponseNode(kind string) *SchemaNode {
	switch strings.ToLower(kind) {
	case "array":
		return &SchemaNode{Kind: KindArray, Items: &SchemaNode{Kind: KindObject}}
	case "object":
		return &SchemaNode{Kind: KindObject}
	case "string":
		return &SchemaNode{Kind: KindPrimitive, Primitive: "string"}
	default:
		return nil
	}
}

func typeIs(val *openapi3.Schema, t string) bool {
	return val.Type != nil && val.Type.Is(t)
}
