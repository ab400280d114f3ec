package toolgen

import (
	"fmt"
	"strings"
)

// ResolutionError reports a dangling or unresolvable schema reference.
// It is fatal: the whole compilation run aborts with no output.
type ResolutionError struct {
	Ref      string // the offending reference, e.g. "#/components/schemas/Missing"
	Location string // where in the document resolution was attempted
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolvable schema reference %q at %s", e.Ref, e.Location)
}

// SchemaTypeError reports a schema shape the normalizer cannot classify.
// The affected operation is excluded with a diagnostic; the run continues.
type SchemaTypeError struct {
	Method string
	Path   string
	Detail string
}

func (e *SchemaTypeError) Error() string {
	return fmt.Sprintf("cannot derive type for %s %s: %s", e.Method, e.Path, e.Detail)
}

// NamingCollisionError reports two operations resolving to the same tool
// name even after override and suffix rules. It indicates a defect in the
// naming rules (or a colliding override) and aborts the run.
type NamingCollisionError struct {
	Name       string
	Operations []string
}

func (e *NamingCollisionError) Error() string {
	return fmt.Sprintf("tool name %q produced by multiple operations: %s",
		e.Name, strings.Join(e.Operations, ", "))
}

// ValidationIssue is one emission-validator violation for one tool.
type ValidationIssue struct {
	Tool   string `json:"tool"`
	Field  string `json:"field,omitempty"`
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

func (v ValidationIssue) String() string {
	s := v.Tool
	if v.Field != "" {
		s += "." + v.Field
	}
	return fmt.Sprintf("%s: %s (%s)", s, v.Detail, v.Rule)
}

// ValidationErrors aggregates every violation found across a batch. One bad
// schema poisons MCP registration of the entire set, so the validator never
// stops at the first problem and the whole batch fails together.
type ValidationErrors []ValidationIssue

func (ve ValidationErrors) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "emission validation failed with %d issue(s):", len(ve))
	for _, issue := range ve {
		b.WriteString("\n  - ")
		b.WriteString(issue.String())
	}
	return b.String()
}
