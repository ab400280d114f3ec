package toolgen

import (
	"fmt"
	"sort"
	"strings"
)

// Summary renders a human-readable overview of a compiled set: modules,
// per-module tool counts, and mutation/read-only split.
func Summary(result *CompileResult) string {
	perModule := map[string]int{}
	mutating := 0
	for _, t := range result.Tools {
		perModule[t.Module]++
		if t.Mutating {
			mutating++
		}
	}
	modules := make([]string, 0, len(perModule))
	for m := range perModule {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %d tools (%d mutating, %d read-only)\n",
		result.Service, result.Version, len(result.Tools), mutating, len(result.Tools)-mutating)
	for _, m := range modules {
		fmt.Fprintf(&b, "  %s: %d\n", m, perModule[m])
	}
	if len(result.Excluded) > 0 {
		fmt.Fprintf(&b, "excluded: %d operation(s)\n", len(result.Excluded))
		for _, d := range result.Excluded {
			fmt.Fprintf(&b, "  %s %s: %s\n", d.Method, d.Path, d.Detail)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "warnings: %d\n", len(result.Warnings))
	}
	return b.String()
}
