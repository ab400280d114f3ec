// Package toolgen compiles an OpenAPI 3.x document into a set of MCP tool
// definitions. The pipeline resolves schema references into canonical trees,
// normalizes them into a small type algebra, derives stable tool names,
// partitions tools into modules with a mutation/confirmation gate, and
// validates the whole batch against the MCP registration constraints before
// anything is emitted.
package toolgen

import (
	"encoding/json"
	"fmt"
)

// SchemaKind classifies a canonical, reference-free schema node.
type SchemaKind int

const (
	KindUnknown SchemaKind = iota
	KindPrimitive
	KindObject
	KindArray
	KindEnum
	KindUnion
	// KindRecursive marks the point where a cyclic reference was cut off
	// during resolution.
	KindRecursive
)

func (k SchemaKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindEnum:
		return "enum"
	case KindUnion:
		return "union"
	case KindRecursive:
		return "recursive"
	default:
		return "unknown"
	}
}

// SchemaNode is the canonical representation of a schema fragment after
// reference and composition resolution. It never contains an unresolved
// reference; cycles are cut with a KindRecursive node.
type SchemaNode struct {
	Kind        SchemaKind
	Primitive   string // "string", "integer", "number", "boolean"
	Fields      []SchemaField
	Items       *SchemaNode
	Variants    []*SchemaNode
	EnumValues  []string
	Default     any
	Description string
	Nullable    bool
	Ref         string // named definition this node was resolved from, if any
}

// SchemaField is one named field of an object SchemaNode.
type SchemaField struct {
	Name     string
	Schema   *SchemaNode
	Required bool
	ReadOnly bool
}

// FieldNames returns the field names of an object node in declaration order.
func (n *SchemaNode) FieldNames() []string {
	names := make([]string, 0, len(n.Fields))
	for _, f := range n.Fields {
		names = append(names, f.Name)
	}
	return names
}

// TypeKind enumerates the target-agnostic type algebra.
type TypeKind int

const (
	TypeNone TypeKind = iota // no content (e.g. 204 responses)
	TypeString
	TypeInteger
	TypeNumber
	TypeBoolean
	TypeObject
	TypeArray
	TypeUnion
)

var typeKindNames = map[TypeKind]string{
	TypeNone:    "none",
	TypeString:  "string",
	TypeInteger: "integer",
	TypeNumber:  "number",
	TypeBoolean: "boolean",
	TypeObject:  "object",
	TypeArray:   "array",
	TypeUnion:   "union",
}

func (k TypeKind) String() string { return typeKindNames[k] }

// MarshalJSON renders the kind as its lower-case name.
func (k TypeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(typeKindNames[k])
}

// UnmarshalJSON accepts the lower-case kind name.
func (k *TypeKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for v, name := range typeKindNames {
		if name == s {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown type kind %q", s)
}

// TypeDescriptor is a normalized, target-agnostic type. Response descriptors
// may be unions; input descriptors never are (they collapse to their first
// concrete variant during normalization).
type TypeDescriptor struct {
	Kind     TypeKind         `json:"kind"`
	Elem     *TypeDescriptor  `json:"elem,omitempty"`     // array element
	Variants []TypeDescriptor `json:"variants,omitempty"` // union members
	Optional bool             `json:"optional,omitempty"`
}

// IsList reports whether the descriptor is array-shaped, including unions
// with an array member.
func (t TypeDescriptor) IsList() bool {
	if t.Kind == TypeArray {
		return true
	}
	if t.Kind == TypeUnion {
		for _, v := range t.Variants {
			if v.Kind == TypeArray {
				return true
			}
		}
	}
	return false
}

func (t TypeDescriptor) String() string {
	switch t.Kind {
	case TypeArray:
		if t.Elem != nil {
			return "array of " + t.Elem.String()
		}
		return "array"
	case TypeUnion:
		s := "union("
		for i, v := range t.Variants {
			if i > 0 {
				s += "|"
			}
			s += v.String()
		}
		return s + ")"
	default:
		return t.Kind.String()
	}
}

// ParamLocation is where a parameter travels on the wire.
type ParamLocation string

const (
	LocPath   ParamLocation = "path"
	LocQuery  ParamLocation = "query"
	LocHeader ParamLocation = "header"
	LocBody   ParamLocation = "body"
)

// Parameter describes one input of a tool after sanitization. A nil Default
// means "unset".
type Parameter struct {
	Name        string         `json:"name"`
	WireName    string         `json:"wire_name,omitempty"` // original name before escaping, if different
	Location    ParamLocation  `json:"location"`
	Type        TypeDescriptor `json:"type"`
	Required    bool           `json:"required,omitempty"`
	Default     any            `json:"default,omitempty"`
	Description string         `json:"description,omitempty"`
	Enum        []string       `json:"enum,omitempty"`
	Nullable    bool           `json:"nullable,omitempty"`
	Base64      bool           `json:"base64,omitempty"` // value must be base64-encoded before substitution
	// Control marks a compiler-synthesized control parameter by role:
	// "confirm", "fields", or "filter". Control parameters steer the
	// invocation itself and never reach the wire; spec-derived parameters
	// always leave it empty, even when their name matches a role.
	Control string `json:"control,omitempty"`
}

// ToolDefinition is the compiler's terminal artifact: one callable unit.
// Identity is the Name; uniqueness across a compiled set is a hard invariant
// enforced by the emission validator.
type ToolDefinition struct {
	Name            string         `json:"name"`
	Module          string         `json:"module"`
	Method          string         `json:"method"`
	Path            string         `json:"path"`
	Params          []Parameter    `json:"parameters"`
	Response        TypeDescriptor `json:"response"`
	Mutating        bool           `json:"mutating"`
	RequiresConfirm bool           `json:"requires_confirm,omitempty"`
	ListShaped      bool           `json:"list_shaped,omitempty"`
	CrossCutting    bool           `json:"cross_cutting,omitempty"`
	Doc             string         `json:"doc"`
	Tags            []string       `json:"tags,omitempty"`
}

// Param returns the parameter with the given name, or nil.
func (t *ToolDefinition) Param(name string) *Parameter {
	for i := range t.Params {
		if t.Params[i].Name == name {
			return &t.Params[i]
		}
	}
	return nil
}

// ControlParam returns the synthesized control parameter with the given
// role, or nil. The parameter's name may differ from the role when the
// operation already declared a parameter under that name.
func (t *ToolDefinition) ControlParam(role string) *Parameter {
	for i := range t.Params {
		if t.Params[i].Control == role {
			return &t.Params[i]
		}
	}
	return nil
}

// Diagnostic records one operation excluded from the tool set, with the
// reason.
type Diagnostic struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Detail string `json:"detail"`
}

// Warning records a non-fatal sanitization rewrite for operator review.
type Warning struct {
	Tool   string `json:"tool,omitempty"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail"`
}

// CompileResult is the output of one compilation run. Tools are ordered by
// method+path with cross-cutting meta tools appended last.
type CompileResult struct {
	Title    string           `json:"title"`
	Version  string           `json:"version"`
	Service  string           `json:"service"`
	Tools    []ToolDefinition `json:"tools"`
	Excluded []Diagnostic     `json:"excluded,omitempty"`
	// Omitted lists operations deliberately removed by module selection or
	// read-only mode, as opposed to Excluded's schema failures.
	Omitted  []Diagnostic `json:"omitted,omitempty"`
	Warnings []Warning    `json:"warnings,omitempty"`
}

// Tool returns the tool with the given name, or nil.
func (r *CompileResult) Tool(name string) *ToolDefinition {
	for i := range r.Tools {
		if r.Tools[i].Name == name {
			return &r.Tools[i]
		}
	}
	return nil
}

// Modules returns the distinct module names in first-seen order.
func (r *CompileResult) Modules() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range r.Tools {
		if t.Module == "" || seen[t.Module] {
			continue
		}
		seen[t.Module] = true
		out = append(out, t.Module)
	}
	return out
}
