package toolgen

import "strings"

// ModuleRule maps a path prefix to a module name. Rules are evaluated
// longest-prefix-wins; ties fall to declaration order.
type ModuleRule struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	Module string `yaml:"module" json:"module"`
}

// ModuleMap classifies operations into modules. It is built once per run
// from operator rules, or derived from the document's own paths when no
// rules are supplied.
type ModuleMap struct {
	rules    []ModuleRule
	fallback string
}

// NewModuleMap builds a ModuleMap from an ordered rule list.
func NewModuleMap(rules []ModuleRule, fallback string) *ModuleMap {
	if fallback == "" {
		fallback = "application"
	}
	return &ModuleMap{rules: rules, fallback: fallback}
}

// DeriveModuleMap builds rules from the document's paths: each first
// resource segment becomes its own module, mirroring the per-resource
// partitioning of the upstream API.
func DeriveModuleMap(ops []Operation, fallback string) *ModuleMap {
	m := NewModuleMap(nil, fallback)
	seen := map[string]bool{}
	for _, op := range ops {
		prefix := modulePrefix(op.Path)
		if prefix == "" || seen[prefix] {
			continue
		}
		seen[prefix] = true
		module := sanitizeSegment(prefix[strings.LastIndex(prefix, "/")+1:])
		if module == "" {
			continue
		}
		m.rules = append(m.rules, ModuleRule{Prefix: prefix, Module: module})
	}
	return m
}

// modulePrefix returns the path up to and including the first resource
// segment.
func modulePrefix(path string) string {
	rest := path
	prefix := ""
	for _, p := range apiPrefixes {
		if strings.HasPrefix(rest, p) {
			prefix = strings.TrimSuffix(p, "/")
			rest = rest[len(p):]
			break
		}
	}
	rest = strings.TrimPrefix(rest, "/")
	segs := strings.Split(rest, "/")
	if len(segs) == 0 || segs[0] == "" || strings.HasPrefix(segs[0], "{") {
		return ""
	}
	return prefix + "/" + segs[0]
}

// Classify returns the module owning the given path: the longest matching
// prefix rule wins, first declared wins on equal length.
func (m *ModuleMap) Classify(path string) string {
	best := m.fallback
	bestLen := 0
	for _, rule := range m.rules {
		if strings.HasPrefix(path, rule.Prefix) && len(rule.Prefix) > bestLen {
			best = rule.Module
			bestLen = len(rule.Prefix)
		}
	}
	return best
}

// IsMutation reports whether the method changes remote state. Mutating
// tools carry the confirmation gate.
func IsMutation(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	default:
		return false
	}
}
