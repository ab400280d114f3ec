package toolgen

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"github.com/xeipuuv/gojsonschema"
)

// The MCP client rejects the entire tool set when any single tool's schema
// is malformed. ValidateEmission front-loads that all-or-nothing behavior:
// it simulates the client's structural acceptance rules across the whole
// batch and reports every violation in one pass. If anything fails, nothing
// is emitted.

var toolNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// maxToolNameLength is the longest tool name the MCP client registers.
const maxToolNameLength = 64

// ValidateEmission checks the complete tool set. A nil return means the
// batch is safe to emit.
func ValidateEmission(tools []ToolDefinition) ValidationErrors {
	var issues ValidationErrors
	add := func(tool, field, rule, detail string) {
		issues = append(issues, ValidationIssue{Tool: tool, Field: field, Rule: rule, Detail: detail})
	}

	seen := map[string]bool{}
	for _, td := range tools {
		if seen[td.Name] {
			add(td.Name, "", "unique-name", "duplicate tool name in compiled set")
		}
		seen[td.Name] = true

		if !toolNameRe.MatchString(td.Name) {
			add(td.Name, "", "name-grammar", "tool name must be lower_snake_case starting with a letter")
		}
		if len(td.Name) > maxToolNameLength {
			add(td.Name, "", "name-length", fmt.Sprintf("tool name exceeds %d characters", maxToolNameLength))
		}
		if td.Doc == "" {
			add(td.Name, "", "docstring", "tool has an empty description")
		}

		validateParams(td, add)
		validateSchema(td, add)

		if td.Mutating {
			validateConfirmGate(td, add)
		}
	}
	return issues
}

func validateParams(td ToolDefinition, add func(tool, field, rule, detail string)) {
	names := map[string]bool{}
	for _, p := range td.Params {
		if names[p.Name] {
			add(td.Name, p.Name, "unique-parameter", "duplicate parameter name")
		}
		names[p.Name] = true

		if p.Type.Kind == TypeUnion {
			add(td.Name, p.Name, "input-shape", "input parameter must not be a bare union")
		}
		if p.Type.Kind == TypeNone {
			add(td.Name, p.Name, "input-shape", "input parameter has no type")
		}
		if n, ok := numericValue(p.Default); ok && math.Abs(n) >= maxSafeInteger {
			add(td.Name, p.Name, "numeric-bound",
				fmt.Sprintf("default %v exceeds the safe integer bound 2^53", p.Default))
		}
		if p.Default != nil && !defaultMatchesType(p.Default, p.Type) {
			add(td.Name, p.Name, "default-type",
				fmt.Sprintf("default %v does not match parameter type %s", p.Default, p.Type))
		}
		if p.Required && p.Default != nil {
			add(td.Name, p.Name, "required-default", "required parameter must not carry a default")
		}
	}
}

// validateSchema compiles the generated JSON Schema the same way the MCP
// client does, then checks the tool's default argument set against it.
func validateSchema(td ToolDefinition, add func(tool, field, rule, detail string)) {
	schemaMap := InputSchema(td)
	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		add(td.Name, "", "schema-compile", "input schema is not serializable: "+err.Error())
		return
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		add(td.Name, "", "schema-compile", "input schema rejected: "+err.Error())
		return
	}

	defaults := map[string]any{}
	for _, p := range td.Params {
		if p.Default != nil {
			defaults[p.Name] = p.Default
		}
	}
	if len(defaults) == 0 {
		return
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(defaults))
	if err != nil {
		add(td.Name, "", "schema-validate", "default arguments not validatable: "+err.Error())
		return
	}
	for _, verr := range result.Errors() {
		if verr.Type() == "required" {
			// Defaults alone need not satisfy required parameters.
			continue
		}
		add(td.Name, verr.Field(), "schema-validate", verr.Description())
	}
}

func validateConfirmGate(td ToolDefinition, add func(tool, field, rule, detail string)) {
	count := 0
	for _, p := range td.Params {
		if p.Control != "confirm" {
			continue
		}
		count++
		if p.Type.Kind != TypeBoolean {
			add(td.Name, p.Name, "confirm-gate", "confirmation parameter must be boolean")
		}
		if v, ok := p.Default.(bool); !ok || v {
			add(td.Name, p.Name, "confirm-gate", "confirmation parameter must default to false")
		}
		if p.Required {
			add(td.Name, p.Name, "confirm-gate", "confirmation parameter must be optional")
		}
	}
	if count != 1 {
		add(td.Name, "confirm", "confirm-gate",
			fmt.Sprintf("mutating tool must carry exactly one confirmation parameter, found %d", count))
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func defaultMatchesType(v any, t TypeDescriptor) bool {
	switch t.Kind {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeInteger, TypeNumber:
		_, ok := numericValue(v)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return false
	}
}
