package toolgen

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Overrides is the operator-supplied manual intervention table: name
// overrides and response-schema fill-ins keyed by "METHOD /path", plus
// module rules and workflow hints. One compilation run takes one immutable
// snapshot; nothing here is ever inferred.
type Overrides struct {
	Service       string            `yaml:"service"`
	Names         map[string]string `yaml:"names"`
	Responses     map[string]string `yaml:"responses"` // shape: object, array, string, none
	Modules       []ModuleRule      `yaml:"modules"`
	WorkflowHints map[string]string `yaml:"workflow_hints"`
}

// LoadOverrides reads an override table from a YAML file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file: %w", err)
	}
	o.normalizeKeys()
	return &o, nil
}

// normalizeKeys upper-cases the method part of every "METHOD /path" key so
// lookups are case-insensitive on the method.
func (o *Overrides) normalizeKeys() {
	o.Names = normalizeKeyMap(o.Names)
	o.Responses = normalizeKeyMap(o.Responses)
}

func normalizeKeyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		method, path, ok := strings.Cut(strings.TrimSpace(k), " ")
		if !ok {
			out[k] = v
			continue
		}
		out[strings.ToUpper(method)+" "+strings.TrimSpace(path)] = v
	}
	return out
}

func (o *Overrides) nameFor(method, path string) (string, bool) {
	if o == nil || o.Names == nil {
		return "", false
	}
	name, ok := o.Names[method+" "+path]
	return name, ok
}

func (o *Overrides) responseFor(method, path string) (string, bool) {
	if o == nil || o.Responses == nil {
		return "", false
	}
	kind, ok := o.Responses[method+" "+path]
	return kind, ok
}

func (o *Overrides) hintFor(toolName string) string {
	if o == nil {
		return ""
	}
	return o.WorkflowHints[toolName]
}
