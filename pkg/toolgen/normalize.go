package toolgen

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
)

// maxSafeInteger is 2^53. Integer literals at or beyond this magnitude are
// unsafe for the MCP client's JSON serialization and are dropped from
// defaults entirely.
const maxSafeInteger = float64(1 << 53)

var (
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	conditionalRe = regexp.MustCompile(`(?i)\brequired\s+(?:when|if)\b`)
)

// serverStateDefaults are documented server-derived sentinel defaults that
// must never be resent by a client.
var serverStateDefaults = map[string]bool{"now": true, "auto": true}

// normalizer walks canonical SchemaNode trees into TypeDescriptors and
// applies the sanitization policy. One normalizer serves one run.
type normalizer struct {
	resolver *resolver
	logger   *zap.Logger
	warn     func(tool, field, detail string)
}

// descriptor converts a node into a target-agnostic type. forInput collapses
// unions to their first concrete variant: an input parameter is never a bare
// union. Unknown shapes are an error; callers decide whether that excludes
// the whole operation or just degrades one nested field.
func (n *normalizer) descriptor(node *SchemaNode, forInput bool) (TypeDescriptor, error) {
	if node == nil {
		return TypeDescriptor{Kind: TypeNone}, nil
	}
	switch node.Kind {
	case KindPrimitive:
		switch node.Primitive {
		case "string":
			return TypeDescriptor{Kind: TypeString}, nil
		case "integer":
			return TypeDescriptor{Kind: TypeInteger}, nil
		case "number":
			return TypeDescriptor{Kind: TypeNumber}, nil
		case "boolean":
			return TypeDescriptor{Kind: TypeBoolean}, nil
		default:
			return TypeDescriptor{}, fmt.Errorf("unclassifiable primitive %q", node.Primitive)
		}
	case KindEnum:
		// Enum literals ride along in the description, not the type.
		return TypeDescriptor{Kind: TypeString}, nil
	case KindObject, KindRecursive:
		return TypeDescriptor{Kind: TypeObject}, nil
	case KindArray:
		elem, err := n.descriptor(node.Items, forInput)
		if err != nil || elem.Kind == TypeNone {
			// Array of unclassifiable items degrades to array of objects.
			elem = TypeDescriptor{Kind: TypeObject}
		}
		return TypeDescriptor{Kind: TypeArray, Elem: &elem}, nil
	case KindUnion:
		if forInput {
			for _, v := range node.Variants {
				if d, err := n.descriptor(v, true); err == nil {
					return d, nil
				}
			}
			return TypeDescriptor{}, fmt.Errorf("union with no concrete variant")
		}
		var variants []TypeDescriptor
		for _, v := range node.Variants {
			d, err := n.descriptor(v, false)
			if err != nil {
				continue
			}
			variants = appendDistinctDescriptor(variants, d)
		}
		switch len(variants) {
		case 0:
			return TypeDescriptor{}, fmt.Errorf("union with no concrete variant")
		case 1:
			return variants[0], nil
		default:
			return TypeDescriptor{Kind: TypeUnion, Variants: variants}, nil
		}
	default:
		return TypeDescriptor{}, fmt.Errorf("unknown schema shape")
	}
}

func appendDistinctDescriptor(ds []TypeDescriptor, d TypeDescriptor) []TypeDescriptor {
	for _, existing := range ds {
		if existing.Kind == d.Kind {
			return ds
		}
	}
	return append(ds, d)
}

// parameters builds the sanitized input parameter list for one operation.
// A shape the normalizer cannot classify at parameter level returns a
// *SchemaTypeError, which excludes the operation (with diagnostic) rather
// than aborting the run.
func (n *normalizer) parameters(op Operation) ([]Parameter, error) {
	isUpdate := op.Method == "PUT" || op.Method == "PATCH"
	var params []Parameter

	for _, paramRef := range op.Parameters {
		if paramRef == nil || paramRef.Value == nil {
			continue
		}
		p, err := n.wireParameter(op, paramRef.Value)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}

	bodyParams, err := n.bodyParameters(op, isUpdate, params)
	if err != nil {
		return nil, err
	}
	params = append(params, bodyParams...)
	return params, nil
}

// wireParameter normalizes one path/query/header parameter.
func (n *normalizer) wireParameter(op Operation, p *openapi3.Parameter) (Parameter, error) {
	node, err := n.resolver.schemaNode(p.Schema, fmt.Sprintf("%s parameter %q", op.Key(), p.Name), resolveState{})
	if err != nil {
		return Parameter{}, err
	}
	desc, derr := n.descriptor(node, true)
	if derr != nil {
		if node.Kind == KindUnknown && p.Schema == nil {
			// Parameters without a schema default to string.
			desc = TypeDescriptor{Kind: TypeString}
			n.warn(op.Key(), p.Name, "parameter has no schema, assuming string")
		} else {
			return Parameter{}, &SchemaTypeError{Method: op.Method, Path: op.Path,
				Detail: fmt.Sprintf("parameter %q: %v", p.Name, derr)}
		}
	}

	name := escapeParameterName(p.Name)
	param := Parameter{
		Name:     name,
		Location: paramLocation(p.In),
		Type:     desc,
		Required: p.Required,
		Nullable: node.Nullable,
		Base64:   strings.HasPrefix(p.Name, "base64"),
	}
	if name != p.Name {
		param.WireName = p.Name
	}
	param.Type.Optional = !param.Required

	text := p.Description
	if text == "" {
		text = node.Description
	}
	param.Description, param.Enum = n.describe(op.Key(), p.Name, text, node, param.Type, param.Base64)

	if !param.Required {
		param.Default = n.sanitizeDefault(op.Key(), p.Name, node.Default)
	}
	return param, nil
}

// bodyParameters flattens an object request body into individual parameters,
// or maps an array body to a single "body" parameter.
func (n *normalizer) bodyParameters(op Operation, isUpdate bool, existing []Parameter) ([]Parameter, error) {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil, nil
	}
	mt := op.RequestBody.Value.Content.Get("application/json")
	if mt == nil || mt.Schema == nil {
		for name := range op.RequestBody.Value.Content {
			n.warn(op.Key(), "", fmt.Sprintf("request body media type %q is not supported, only application/json", name))
		}
		return nil, nil
	}
	node, err := n.resolver.schemaNode(mt.Schema, op.Key()+" requestBody", resolveState{})
	if err != nil {
		return nil, err
	}

	switch node.Kind {
	case KindArray:
		elem, derr := n.descriptor(node, true)
		if derr != nil {
			return nil, &SchemaTypeError{Method: op.Method, Path: op.Path, Detail: derr.Error()}
		}
		return []Parameter{{
			Name:        "body",
			Location:    LocBody,
			Type:        elem,
			Required:    true,
			Description: "Request body (array).",
		}}, nil
	case KindObject:
		taken := map[string]bool{}
		for _, p := range existing {
			taken[p.Name] = true
		}
		var params []Parameter
		for _, f := range node.Fields {
			if f.ReadOnly || f.Name == "id" || taken[f.Name] {
				continue
			}
			p := n.bodyField(op, f, isUpdate)
			params = append(params, p)
		}
		return params, nil
	case KindRecursive:
		return []Parameter{{
			Name:        "body",
			Location:    LocBody,
			Type:        TypeDescriptor{Kind: TypeObject},
			Required:    op.RequestBody.Value.Required,
			Description: "Request body (recursive object, pass as JSON).",
		}}, nil
	case KindUnknown:
		return nil, &SchemaTypeError{Method: op.Method, Path: op.Path, Detail: "request body has an unclassifiable schema"}
	default:
		n.warn(op.Key(), "", fmt.Sprintf("request body of %s shape is not mapped to parameters", node.Kind))
		return nil, nil
	}
}

// bodyField normalizes one writable object field into a body parameter,
// applying the conditional-required downgrade and the update-operation
// default suppression.
func (n *normalizer) bodyField(op Operation, f SchemaField, isUpdate bool) Parameter {
	desc, derr := n.descriptor(f.Schema, true)
	if derr != nil {
		// Field-level unknown (e.g. an allOf conflict) degrades to an
		// unconstrained object rather than excluding the whole tool.
		n.warn(op.Key(), f.Name, "field type is unclassifiable, treating as unstructured object")
		desc = TypeDescriptor{Kind: TypeObject}
	}
	name := escapeParameterName(f.Name)
	param := Parameter{
		Name:     name,
		Location: LocBody,
		Type:     desc,
		Required: f.Required,
		Nullable: f.Schema.Nullable,
	}
	if name != f.Name {
		param.WireName = f.Name
	}
	param.Description, param.Enum = n.describe(op.Key(), f.Name, f.Schema.Description, f.Schema, desc, false)

	if conditionalRe.MatchString(param.Description) {
		// "required when/if ..." fields are forced optional; the condition
		// text stays verbatim in the description for the caller to read.
		param.Required = false
		param.Default = nil
	} else if isUpdate {
		// A declared default must never be silently resent on update.
		param.Required = false
		if f.Schema.Default != nil {
			n.warn(op.Key(), f.Name, "default suppressed on update operation")
		}
	} else if !param.Required {
		param.Default = n.sanitizeDefault(op.Key(), f.Name, f.Schema.Default)
	}
	param.Type.Optional = !param.Required
	return param
}

// response normalizes the response node. The second return flags list-shaped
// responses, including the paginated envelope (records + totalRecords).
func (n *normalizer) response(op Operation, node *SchemaNode) (TypeDescriptor, bool, error) {
	if node == nil {
		return TypeDescriptor{Kind: TypeNone}, false, nil
	}
	desc, err := n.descriptor(node, false)
	if err != nil {
		return TypeDescriptor{}, false, &SchemaTypeError{Method: op.Method, Path: op.Path,
			Detail: fmt.Sprintf("response: %v", err)}
	}
	return desc, desc.IsList() || isPagingEnvelope(node), nil
}

// isPagingEnvelope recognizes the paginated list envelope used by the API.
func isPagingEnvelope(node *SchemaNode) bool {
	if node.Kind != KindObject {
		return false
	}
	hasRecords, hasTotal := false, false
	for _, f := range node.Fields {
		switch f.Name {
		case "records":
			hasRecords = true
		case "totalRecords":
			hasTotal = true
		}
	}
	return hasRecords && hasTotal
}

// describe applies description hygiene: markup stripped, whitespace
// collapsed, full text preserved, enum literal sets always rendered into the
// text. Array-of-object parameters and base64 parameters get usage notes.
func (n *normalizer) describe(opKey, field, text string, node *SchemaNode, desc TypeDescriptor, base64 bool) (string, []string) {
	out := stripMarkup(text)

	enumValues := enumLiterals(node)
	if len(enumValues) > 0 {
		joined := strings.Join(enumValues, ", ")
		if out != "" {
			out = fmt.Sprintf("%s (values: %s)", out, joined)
		} else {
			out = "Values: " + joined
		}
	}
	if desc.Kind == TypeArray && desc.Elem != nil && desc.Elem.Kind == TypeObject {
		if out != "" {
			out += " "
		}
		out += "Pass as JSON array of objects. If creation fails, manage these via their dedicated sub-resource endpoints instead."
	}
	if base64 {
		if out != "" {
			out += " "
		}
		out += "Value must be base64-encoded."
	}
	return out, enumValues
}

// enumLiterals finds the enum literal set of a node, looking through unions.
func enumLiterals(node *SchemaNode) []string {
	if node == nil {
		return nil
	}
	if node.Kind == KindEnum {
		return node.EnumValues
	}
	if node.Kind == KindUnion {
		for _, v := range node.Variants {
			if vals := enumLiterals(v); vals != nil {
				return vals
			}
		}
	}
	return nil
}

// sanitizeDefault rewrites unsafe defaults to unset: integer literals at or
// beyond 2^53, empty-object/empty-array defaults, and server-state sentinel
// defaults. Every rewrite is recorded as a SanitizationWarning.
func (n *normalizer) sanitizeDefault(opKey, field string, value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		if math.Abs(v) >= maxSafeInteger {
			n.warn(opKey, field, fmt.Sprintf("default %v exceeds 2^53, dropped", v))
			return nil
		}
	case int64:
		if math.Abs(float64(v)) >= maxSafeInteger {
			n.warn(opKey, field, fmt.Sprintf("default %v exceeds 2^53, dropped", v))
			return nil
		}
	case int:
		if math.Abs(float64(v)) >= maxSafeInteger {
			n.warn(opKey, field, fmt.Sprintf("default %v exceeds 2^53, dropped", v))
			return nil
		}
	case string:
		if serverStateDefaults[strings.ToLower(v)] {
			n.warn(opKey, field, fmt.Sprintf("server-state default %q dropped", v))
			return nil
		}
	case map[string]any:
		if len(v) == 0 {
			n.warn(opKey, field, "empty object default dropped")
			return nil
		}
	case []any:
		if len(v) == 0 {
			n.warn(opKey, field, "empty array default dropped")
			return nil
		}
	}
	return value
}

// stripMarkup removes HTML tags and collapses whitespace. The text is never
// truncated.
func stripMarkup(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// escapeParameterName converts bracketed parameter names to MCP-compatible
// names: "filter[created_at]" becomes "filter_created_at_". The trailing
// underscore marks escaped names.
func escapeParameterName(name string) string {
	if !strings.ContainsAny(name, "[]") {
		return name
	}
	escaped := strings.ReplaceAll(name, "[", "_")
	escaped = strings.ReplaceAll(escaped, "]", "_")
	if !strings.HasSuffix(escaped, "_") {
		escaped += "_"
	}
	return escaped
}

func paramLocation(in string) ParamLocation {
	switch in {
	case "path":
		return LocPath
	case "header":
		return LocHeader
	case "query":
		return LocQuery
	default:
		return LocQuery
	}
}
