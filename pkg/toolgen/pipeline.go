package toolgen

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
)

// Options configures one compilation run. The snapshot is immutable for the
// duration of the run; there is no ambient state.
type Options struct {
	// Service is the tool-name prefix. Empty means: the overrides file's
	// service value, else a name derived from the document title.
	Service string
	// Modules restricts the emitted set to the named modules. Empty means
	// all modules. Cross-cutting tools are always kept.
	Modules []string
	// ReadOnly strips every mutating tool from the emitted set.
	ReadOnly bool
	// Overrides is the operator intervention table (may be nil).
	Overrides *Overrides
	// ModuleRules overrides module classification. Empty means: the
	// overrides file's rules, else rules derived from the document paths.
	ModuleRules []ModuleRule
	// DefaultModule receives operations no rule matches.
	DefaultModule string
	// Logger receives sanitization warnings and stage progress. Nil means
	// no logging.
	Logger *zap.Logger
}

// Compile runs the full pipeline over a loaded OpenAPI document: resolve,
// normalize, name, classify, assemble, validate. The compiler is a
// single-pass batch transformation; the returned tool list is ordered by
// path+method with cross-cutting tools appended last.
//
// A ResolutionError or NamingCollisionError aborts the run with no result.
// Emission validation failures return the assembled result together with
// the full ValidationErrors list; such a result must not be emitted.
func Compile(doc *openapi3.T, opts Options) (*CompileResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	service := opts.Service
	if service == "" && opts.Overrides != nil {
		service = opts.Overrides.Service
	}
	if service == "" {
		service = deriveService(doc)
	}

	result := &CompileResult{Service: service}
	if doc.Info != nil {
		result.Title = doc.Info.Title
		result.Version = doc.Info.Version
	}

	warn := func(tool, field, detail string) {
		result.Warnings = append(result.Warnings, Warning{Tool: tool, Field: field, Detail: detail})
		logger.Warn("sanitization", zap.String("tool", tool), zap.String("field", field), zap.String("detail", detail))
	}

	res := &resolver{overrides: opts.Overrides, warn: warn}
	norm := &normalizer{resolver: res, logger: logger, warn: warn}

	ops := ExtractOperations(doc)
	logger.Debug("operations extracted", zap.Int("count", len(ops)))

	type compiled struct {
		op         Operation
		params     []Parameter
		response   TypeDescriptor
		listShaped bool
	}
	var included []compiled
	for _, op := range ops {
		params, err := norm.parameters(op)
		if err != nil {
			if excluded := excludeOn(err); excluded != nil {
				result.Excluded = append(result.Excluded, *excluded)
				logger.Warn("operation excluded", zap.String("operation", op.Key()), zap.String("reason", excluded.Detail))
				continue
			}
			return nil, err
		}
		respNode, err := res.responseNode(op)
		if err != nil {
			return nil, err
		}
		respDesc, listShaped, err := norm.response(op, respNode)
		if err != nil {
			if excluded := excludeOn(err); excluded != nil {
				result.Excluded = append(result.Excluded, *excluded)
				logger.Warn("operation excluded", zap.String("operation", op.Key()), zap.String("reason", excluded.Detail))
				continue
			}
			return nil, err
		}
		included = append(included, compiled{op: op, params: params, response: respDesc, listShaped: listShaped})
	}

	nm := &namer{service: service, overrides: opts.Overrides, logger: logger}
	includedOps := make([]Operation, len(included))
	for i, c := range included {
		includedOps[i] = c.op
	}
	names, _, err := nm.assign(includedOps)
	if err != nil {
		return nil, err
	}

	moduleRules := opts.ModuleRules
	if len(moduleRules) == 0 && opts.Overrides != nil {
		moduleRules = opts.Overrides.Modules
	}
	var modules *ModuleMap
	if len(moduleRules) > 0 {
		modules = NewModuleMap(moduleRules, opts.DefaultModule)
	} else {
		modules = DeriveModuleMap(includedOps, opts.DefaultModule)
	}

	asm := &assembler{service: service, overrides: opts.Overrides}
	selected := moduleFilter(opts.Modules)
	for i, c := range included {
		td := asm.assemble(c.op, names[i], modules.Classify(c.op.Path), c.params, c.response, c.listShaped)
		if selected != nil && !selected[td.Module] {
			result.Omitted = append(result.Omitted, Diagnostic{
				Method: c.op.Method, Path: c.op.Path,
				Detail: fmt.Sprintf("module %q not selected", td.Module),
			})
			continue
		}
		if opts.ReadOnly && td.Mutating {
			result.Omitted = append(result.Omitted, Diagnostic{
				Method: c.op.Method, Path: c.op.Path,
				Detail: "mutating tool removed in read-only mode",
			})
			continue
		}
		result.Tools = append(result.Tools, td)
	}
	// Meta tools are read-only and exempt from module gating.
	result.Tools = append(result.Tools, asm.metaTools()...)

	if issues := ValidateEmission(result.Tools); len(issues) > 0 {
		return result, issues
	}
	logger.Debug("compilation complete", zap.Int("tools", len(result.Tools)), zap.Int("excluded", len(result.Excluded)))
	return result, nil
}

// excludeOn converts a SchemaTypeError into an exclusion diagnostic; any
// other error stays fatal.
func excludeOn(err error) *Diagnostic {
	if te, ok := err.(*SchemaTypeError); ok {
		return &Diagnostic{Method: te.Method, Path: te.Path, Detail: te.Detail}
	}
	return nil
}

func moduleFilter(modules []string) map[string]bool {
	if len(modules) == 0 {
		return nil
	}
	out := map[string]bool{}
	for _, m := range modules {
		for _, part := range strings.Split(m, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out[part] = true
			}
		}
	}
	return out
}

// deriveService derives a service prefix from the document title: the first
// word, sanitized. "slskd API" becomes "slskd".
func deriveService(doc *openapi3.T) string {
	if doc.Info != nil && doc.Info.Title != "" {
		first := strings.Fields(doc.Info.Title)[0]
		if s := sanitizeSegment(first); s != "" {
			return s
		}
	}
	return "api"
}

// CrossCheck verifies that every operation in the document surfaced either
// as a compiled tool, as an exclusion diagnostic, or as a deliberate
// module/read-only omission. It reports spec/tool drift introduced by
// compiler defects, not by the API itself.
func CrossCheck(doc *openapi3.T, result *CompileResult) error {
	covered := map[string]bool{}
	for _, t := range result.Tools {
		if !t.CrossCutting {
			covered[t.Method+" "+t.Path] = true
		}
	}
	for _, d := range result.Excluded {
		covered[d.Method+" "+d.Path] = true
	}
	for _, d := range result.Omitted {
		covered[d.Method+" "+d.Path] = true
	}
	var missing []string
	for _, op := range ExtractOperations(doc) {
		if !covered[op.Key()] {
			missing = append(missing, op.Key())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("self-test failed: %d operation(s) missing from compiled set: %s",
			len(missing), strings.Join(missing, ", "))
	}
	return nil
}
