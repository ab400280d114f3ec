package toolgen

import (
	"fmt"
	"strings"
)

// assembler merges normalized parameters, response descriptors, names, and
// classifications into immutable ToolDefinitions and synthesizes their
// docstrings.
type assembler struct {
	service   string
	overrides *Overrides
}

// assemble builds the final ToolDefinition for one operation.
func (a *assembler) assemble(op Operation, name, module string, params []Parameter, response TypeDescriptor, listShaped bool) ToolDefinition {
	mutating := IsMutation(op.Method)
	td := ToolDefinition{
		Name:            name,
		Module:          module,
		Method:          op.Method,
		Path:            op.Path,
		Params:          params,
		Response:        response,
		Mutating:        mutating,
		RequiresConfirm: mutating,
		ListShaped:      listShaped,
		Tags:            op.Tags,
	}
	taken := map[string]bool{}
	for _, p := range params {
		taken[p.Name] = true
	}
	if listShaped {
		for _, p := range listControlParams() {
			p.Name = controlName(p.Name, taken)
			taken[p.Name] = true
			td.Params = append(td.Params, p)
		}
	}
	if mutating {
		p := confirmParam()
		p.Name = controlName(p.Name, taken)
		taken[p.Name] = true
		td.Params = append(td.Params, p)
	}
	td.Doc = a.docstring(op, td)
	return td
}

// controlName keeps a synthesized parameter clear of spec-derived names,
// reusing the trailing-underscore escape convention.
func controlName(base string, taken map[string]bool) string {
	name := base
	for taken[name] {
		name += "_"
	}
	return name
}

// confirmParam is the confirmation gate every mutating tool carries. With
// confirm=false the invocation returns a preview of the request instead of
// performing the action.
func confirmParam() Parameter {
	return Parameter{
		Name:        "confirm",
		Control:     "confirm",
		Location:    LocBody,
		Type:        TypeDescriptor{Kind: TypeBoolean, Optional: true},
		Required:    false,
		Default:     false,
		Description: "Set to true to execute. When false, the call returns a preview of the request (method, path, body) and performs no action.",
	}
}

// listControlParams are the optional field-selection and row-filter
// parameters exposed by every list-shaped tool.
func listControlParams() []Parameter {
	return []Parameter{
		{
			Name:        "fields",
			Control:     "fields",
			Location:    LocBody,
			Type:        TypeDescriptor{Kind: TypeArray, Elem: &TypeDescriptor{Kind: TypeString}, Optional: true},
			Description: "Optional list of field names to keep in each returned row.",
		},
		{
			Name:        "filter",
			Control:     "filter",
			Location:    LocBody,
			Type:        TypeDescriptor{Kind: TypeString, Optional: true},
			Description: "Optional substring filter applied to returned rows.",
		},
	}
}

// docstring synthesizes the tool description: summary (or a phrase derived
// from the name), response-shape note, issue-reporter hint, operator
// workflow hint, and the confirmation-gate notice for mutating tools.
func (a *assembler) docstring(op Operation, td ToolDefinition) string {
	doc := stripMarkup(op.Summary)
	if doc == "" {
		if d := stripMarkup(op.Description); d != "" {
			doc, _, _ = strings.Cut(d, ".")
		}
	}
	if doc == "" {
		doc = derivedPhrase(a.service, td)
	}
	doc = strings.TrimSuffix(doc, ".")

	switch {
	case td.Response.IsList():
		doc += ". Returns a list."
	case td.ListShaped:
		doc += ". Returns paginated results."
	default:
		doc += "."
	}

	doc += fmt.Sprintf(" If unexpected errors occur, call %s_report_issue.", a.service)

	if hint := a.overrides.hintFor(td.Name); hint != "" {
		doc += " " + stripMarkup(hint)
	}
	if td.Mutating {
		confirmName := "confirm"
		if cp := td.ControlParam("confirm"); cp != nil {
			confirmName = cp.Name
		}
		doc += fmt.Sprintf(" This action changes server state and requires %s=true to execute.", confirmName)
	}
	return doc
}

// derivedPhrase builds a fallback description from the tool name and path
// when the operation has neither summary nor description.
func derivedPhrase(service string, td ToolDefinition) string {
	parts := strings.Split(strings.TrimPrefix(td.Name, service+"_"), "_")
	verb := parts[0]
	resource := strings.Join(parts[1:], " ")
	byID := hasPathID(td.Path)
	switch {
	case byID && td.Method == "GET":
		return fmt.Sprintf("Get %s by ID", resource)
	case byID && td.Method == "DELETE":
		return fmt.Sprintf("Delete %s by ID", resource)
	case byID && (td.Method == "PUT" || td.Method == "PATCH"):
		return fmt.Sprintf("Update %s by ID", resource)
	default:
		return capitalize(verb) + " " + resource
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// metaTools are the cross-cutting tools present in every compiled set
// regardless of module selection: a service overview, keyword search over
// the tool set, and an issue reporter.
func (a *assembler) metaTools() []ToolDefinition {
	s := a.service
	return []ToolDefinition{
		{
			Name:         s + "_overview",
			Module:       "meta",
			CrossCutting: true,
			Response:     TypeDescriptor{Kind: TypeString},
			Doc:          "Show an overview of the available tools: modules, tool counts, and the service version.",
		},
		{
			Name:         s + "_find_tools",
			Module:       "meta",
			CrossCutting: true,
			Response:     TypeDescriptor{Kind: TypeString},
			Params: []Parameter{{
				Name:        "keyword",
				Location:    LocBody,
				Type:        TypeDescriptor{Kind: TypeString},
				Required:    true,
				Description: "Keyword to search for in tool names and descriptions.",
			}},
			Doc: "Search the available tools by keyword and return matching names with their descriptions.",
		},
		{
			Name:         s + "_report_issue",
			Module:       "meta",
			CrossCutting: true,
			Response:     TypeDescriptor{Kind: TypeString},
			Params: []Parameter{
				{
					Name:        "description",
					Location:    LocBody,
					Type:        TypeDescriptor{Kind: TypeString},
					Required:    true,
					Description: "What went wrong: the tool called, the arguments used, and the unexpected result.",
				},
				{
					Name:        "tool",
					Location:    LocBody,
					Type:        TypeDescriptor{Kind: TypeString, Optional: true},
					Description: "Name of the tool the issue relates to.",
				},
			},
			Doc: "Report unexpected tool behavior or a mismatch between a tool and the live API. Reports are collected for operator review.",
		},
	}
}
