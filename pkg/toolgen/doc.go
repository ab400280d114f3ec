package toolgen

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteMarkdownDoc writes Markdown documentation for a compiled set, grouped
// by module, with each tool's description and input schema.
func WriteMarkdownDoc(w io.Writer, result *CompileResult) error {
	fmt.Fprintf(w, "# %s MCP Tools\n\n", result.Service)
	if result.Title != "" {
		fmt.Fprintf(w, "**API:** %s\n\n", result.Title)
	}
	if result.Version != "" {
		fmt.Fprintf(w, "**Version:** %s\n\n", result.Version)
	}

	for _, module := range result.Modules() {
		fmt.Fprintf(w, "## Module: %s\n\n", module)
		for _, td := range result.Tools {
			if td.Module != module {
				continue
			}
			fmt.Fprintf(w, "### %s\n\n", td.Name)
			if td.Method != "" {
				fmt.Fprintf(w, "`%s %s`\n\n", td.Method, td.Path)
			}
			fmt.Fprintf(w, "%s\n\n", td.Doc)
			schemaJSON, err := json.MarshalIndent(InputSchema(td), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Input:\n\n```json\n%s\n```\n\n", schemaJSON)
			if rs := ResponseSchema(td); rs != nil {
				respJSON, err := json.MarshalIndent(rs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Response:\n\n```json\n%s\n```\n\n", respJSON)
			}
		}
	}

	if len(result.Excluded) > 0 {
		fmt.Fprintf(w, "## Excluded operations\n\n")
		for _, d := range result.Excluded {
			fmt.Fprintf(w, "- `%s %s`: %s\n", d.Method, d.Path, d.Detail)
		}
		fmt.Fprintln(w)
	}
	return nil
}
