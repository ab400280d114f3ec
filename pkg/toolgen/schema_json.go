package toolgen

// InputSchema renders a tool's parameter list as a single JSON Schema object
// for MCP tool input validation. json.Marshal sorts map keys, so the
// serialized form is deterministic.
func InputSchema(td ToolDefinition) map[string]any {
	properties := map[string]any{}
	var required []string
	for _, p := range td.Params {
		properties[p.Name] = parameterSchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func parameterSchema(p Parameter) map[string]any {
	prop := descriptorSchema(p.Type)
	if p.Description != "" {
		prop["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		enum := make([]any, len(p.Enum))
		for i, v := range p.Enum {
			enum[i] = v
		}
		prop["enum"] = enum
	}
	if p.Default != nil {
		prop["default"] = p.Default
	}
	return prop
}

// descriptorSchema renders a TypeDescriptor as a JSON Schema fragment.
// Unions render as oneOf; they only ever occur in response schemas.
func descriptorSchema(t TypeDescriptor) map[string]any {
	switch t.Kind {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeObject:
		return map[string]any{"type": t.Kind.String()}
	case TypeArray:
		items := map[string]any{"type": "object"}
		if t.Elem != nil {
			items = descriptorSchema(*t.Elem)
		}
		return map[string]any{"type": "array", "items": items}
	case TypeUnion:
		var oneOf []any
		for _, v := range t.Variants {
			oneOf = append(oneOf, descriptorSchema(v))
		}
		return map[string]any{"oneOf": oneOf}
	default:
		return map[string]any{}
	}
}

// ResponseSchema renders a tool's response descriptor, or nil when the
// operation has no response body.
func ResponseSchema(td ToolDefinition) map[string]any {
	if td.Response.Kind == TypeNone {
		return nil
	}
	return descriptorSchema(td.Response)
}
