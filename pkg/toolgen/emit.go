package toolgen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// Doer executes one HTTP request. http.DefaultClient satisfies it; tests
// inject their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RuntimeOptions configures the runtime surface built from a compiled set.
// Every tool invocation builds an independent outbound request; there is no
// shared mutable state between concurrent invocations.
type RuntimeOptions struct {
	BaseURL      string
	Client       Doer
	APIKey       string
	APIKeyHeader string
	BearerToken  string
	Logger       *zap.Logger
}

func (o *RuntimeOptions) client() Doer {
	if o != nil && o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o *RuntimeOptions) logger() *zap.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// BuildMCPTools converts a compiled set into MCP tool records, preserving
// order. Mutating tools carry a destructive hint, read-only tools a
// read-only hint.
func BuildMCPTools(result *CompileResult) []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(result.Tools))
	for _, td := range result.Tools {
		schemaJSON, _ := json.MarshalIndent(InputSchema(td), "", "  ")
		tool := mcp.NewToolWithRawSchema(td.Name, td.Doc, schemaJSON)
		annotations := mcp.ToolAnnotation{
			ReadOnlyHint: mcp.ToBoolPtr(!td.Mutating),
		}
		if td.Method == "DELETE" {
			annotations.DestructiveHint = mcp.ToBoolPtr(true)
		}
		var titleParts []string
		if td.Module != "" {
			titleParts = append(titleParts, "Module: "+td.Module)
		}
		if len(td.Tags) > 0 {
			titleParts = append(titleParts, "Tags: "+strings.Join(td.Tags, ", "))
		}
		annotations.Title = strings.Join(titleParts, " | ")
		tool.Annotations = annotations
		tools = append(tools, tool)
	}
	return tools
}

// RegisterTools registers every compiled tool on an MCP server with a live
// handler. Handlers validate arguments against the tool's schema, honor the
// confirmation gate (confirm=false returns a request preview, no side
// effect), and execute confirmed calls through opts.Client. Returns the
// registered tool names in order.
func RegisterTools(srv *server.MCPServer, result *CompileResult, opts *RuntimeOptions) []string {
	mcpTools := BuildMCPTools(result)
	var names []string
	for i, tool := range mcpTools {
		td := result.Tools[i]
		if td.CrossCutting {
			srv.AddTool(tool, metaHandler(result, td))
		} else {
			srv.AddTool(tool, invocationHandler(td, opts))
		}
		names = append(names, td.Name)
	}
	return names
}

// invocationHandler builds the handler for one API-backed tool. Each call
// validates, previews or executes, and never shares state with sibling
// invocations.
func invocationHandler(td ToolDefinition, opts *RuntimeOptions) server.ToolHandlerFunc {
	schemaJSON, _ := json.Marshal(InputSchema(td))
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		if msg, ok := validateArgs(schemaJSON, args); !ok {
			return mcp.NewToolResultError(msg), nil
		}

		reqSpec, err := buildRequestSpec(td, args, opts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if td.RequiresConfirm {
			confirmed := false
			if cp := td.ControlParam("confirm"); cp != nil {
				confirmed, _ = args[cp.Name].(bool)
			}
			if !confirmed {
				return mcp.NewToolResultText(reqSpec.preview()), nil
			}
		}

		httpReq, err := reqSpec.toHTTP(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := opts.client().Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			text := fmt.Sprintf("HTTP Error: %s (HTTP %d)", http.StatusText(resp.StatusCode), resp.StatusCode)
			if len(respBody) > 0 {
				text += "\nDetails: " + string(respBody)
			}
			text += fmt.Sprintf("\nOperation: %s %s (%s)", td.Method, td.Path, td.Name)
			return mcp.NewToolResultError(text), nil
		}

		body := shapeListResponse(td, args, respBody, opts.logger())
		text := fmt.Sprintf("HTTP %s %s\nStatus: %d\nResponse:\n%s", td.Method, reqSpec.url, resp.StatusCode, body)
		return mcp.NewToolResultText(text), nil
	}
}

// validateArgs checks arguments against the tool's input schema and renders
// validation failures as plain text.
func validateArgs(schemaJSON []byte, args map[string]any) (string, bool) {
	argsJSON, _ := json.Marshal(args)
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(argsJSON))
	if err != nil {
		return "Validation error: " + err.Error(), false
	}
	if result.Valid() {
		return "", true
	}
	var msgs []string
	for _, verr := range result.Errors() {
		switch verr.Type() {
		case "required":
			if missing, ok := verr.Details()["property"].(string); ok {
				msgs = append(msgs, fmt.Sprintf("Missing required parameter: %q", missing))
				continue
			}
			msgs = append(msgs, verr.String())
		default:
			msgs = append(msgs, verr.String())
		}
	}
	return strings.Join(msgs, "\n"), false
}

// requestSpec is the fully resolved outbound request for one invocation.
type requestSpec struct {
	method      string
	url         string
	headers     map[string]string
	body        []byte
	confirmName string // name of the confirmation parameter, if any
}

// buildRequestSpec resolves path placeholders, query parameters, headers,
// and the JSON body from the invocation arguments.
func buildRequestSpec(td ToolDefinition, args map[string]any, opts *RuntimeOptions) (*requestSpec, error) {
	path := td.Path
	query := url.Values{}
	headers := map[string]string{}
	body := map[string]any{}

	for _, p := range td.Params {
		if p.Control != "" {
			// Control parameters steer the invocation, not the request. A
			// spec-derived parameter that happens to be named confirm,
			// fields, or filter still reaches the wire.
			continue
		}
		val, ok := args[p.Name]
		if !ok || val == nil {
			if p.Default != nil {
				val = p.Default
			} else {
				continue
			}
		}
		wire := p.WireName
		if wire == "" {
			wire = p.Name
		}
		switch p.Location {
		case LocPath:
			s := fmt.Sprintf("%v", val)
			if p.Base64 {
				s = base64.StdEncoding.EncodeToString([]byte(s))
			}
			path = strings.ReplaceAll(path, "{"+wire+"}", s)
		case LocQuery:
			query.Set(wire, fmt.Sprintf("%v", val))
		case LocHeader:
			headers[wire] = fmt.Sprintf("%v", val)
		case LocBody:
			body[wire] = val
		}
	}

	if opts != nil {
		if opts.APIKey != "" {
			header := opts.APIKeyHeader
			if header == "" {
				header = "X-API-Key"
			}
			headers[header] = opts.APIKey
		}
		if opts.BearerToken != "" {
			headers["Authorization"] = "Bearer " + opts.BearerToken
		}
	}

	base := ""
	if opts != nil {
		base = strings.TrimSuffix(opts.BaseURL, "/")
	}
	full := base + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}

	spec := &requestSpec{method: td.Method, url: full, headers: headers}
	if cp := td.ControlParam("confirm"); cp != nil {
		spec.confirmName = cp.Name
	}
	if len(body) > 0 {
		if raw, ok := body["body"]; ok && len(body) == 1 {
			// Array-bodied operations pass the payload through directly.
			b, err := json.Marshal(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request body: %w", err)
			}
			spec.body = b
		} else {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request body: %w", err)
			}
			spec.body = b
		}
	}
	return spec, nil
}

// PreviewInvocation renders the request a tool invocation would perform,
// without performing it. This is the same preview shown when a mutating tool
// is called with confirm=false.
func PreviewInvocation(td ToolDefinition, args map[string]any, baseURL string) (string, error) {
	spec, err := buildRequestSpec(td, args, &RuntimeOptions{BaseURL: baseURL})
	if err != nil {
		return "", err
	}
	return spec.preview(), nil
}

// preview renders the human-readable dry-run shown when a mutating tool is
// invoked without confirmation.
func (r *requestSpec) preview() string {
	var b strings.Builder
	b.WriteString("PREVIEW (no action taken)\n")
	fmt.Fprintf(&b, "HTTP %s %s\n", r.method, r.url)
	if len(r.body) > 0 {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, r.body, "", "  "); err == nil {
			b.WriteString("Body:\n" + pretty.String() + "\n")
		} else {
			b.WriteString("Body:\n" + string(r.body) + "\n")
		}
	}
	confirm := r.confirmName
	if confirm == "" {
		confirm = "confirm"
	}
	fmt.Fprintf(&b, "Re-run with %q: true to execute.", confirm)
	return b.String()
}

func (r *requestSpec) toHTTP(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, bytes.NewReader(r.body))
	if err != nil {
		return nil, err
	}
	if len(r.body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// shapeListResponse applies the optional fields/filter parameters of
// list-shaped tools to a JSON array response body.
func shapeListResponse(td ToolDefinition, args map[string]any, body []byte, logger *zap.Logger) string {
	if !td.ListShaped {
		return string(body)
	}
	var filter string
	var fieldsArg []any
	if cp := td.ControlParam("filter"); cp != nil {
		filter, _ = args[cp.Name].(string)
	}
	if cp := td.ControlParam("fields"); cp != nil {
		fieldsArg, _ = args[cp.Name].([]any)
	}
	if filter == "" && len(fieldsArg) == 0 {
		return string(body)
	}

	var rows []any
	if err := json.Unmarshal(body, &rows); err != nil {
		logger.Debug("response is not a JSON array, fields/filter ignored", zap.String("tool", td.Name))
		return string(body)
	}

	fields := map[string]bool{}
	for _, f := range fieldsArg {
		if s, ok := f.(string); ok {
			fields[s] = true
		}
	}

	var out []any
	for _, row := range rows {
		if filter != "" {
			encoded, _ := json.Marshal(row)
			if !strings.Contains(strings.ToLower(string(encoded)), strings.ToLower(filter)) {
				continue
			}
		}
		if len(fields) > 0 {
			if m, ok := row.(map[string]any); ok {
				kept := map[string]any{}
				for k, v := range m {
					if fields[k] {
						kept[k] = v
					}
				}
				row = kept
			}
		}
		out = append(out, row)
	}
	shaped, err := json.Marshal(out)
	if err != nil {
		return string(body)
	}
	return string(shaped)
}

// metaHandler builds the handler for one cross-cutting tool.
func metaHandler(result *CompileResult, td ToolDefinition) server.ToolHandlerFunc {
	suffix := td.Name[strings.LastIndex(td.Name, "_")+1:]
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		switch suffix {
		case "overview":
			return mcp.NewToolResultText(Summary(result)), nil
		case "tools": // {service}_find_tools
			keyword, _ := args["keyword"].(string)
			if keyword == "" {
				return mcp.NewToolResultError("Missing required parameter: \"keyword\""), nil
			}
			return mcp.NewToolResultText(findTools(result, keyword)), nil
		case "issue": // {service}_report_issue
			description, _ := args["description"].(string)
			if description == "" {
				return mcp.NewToolResultError("Missing required parameter: \"description\""), nil
			}
			tool, _ := args["tool"].(string)
			ack := "Issue recorded for operator review."
			if tool != "" {
				ack += " Tool: " + tool + "."
			}
			ack += " Spec/reality drift is a known limitation; the report helps the operator fix the generated tool set."
			return mcp.NewToolResultText(ack), nil
		default:
			return mcp.NewToolResultError("unknown meta tool: " + td.Name), nil
		}
	}
}

// findTools searches tool names and docstrings for a keyword.
func findTools(result *CompileResult, keyword string) string {
	kw := strings.ToLower(keyword)
	var matches []string
	for _, t := range result.Tools {
		if strings.Contains(strings.ToLower(t.Name), kw) || strings.Contains(strings.ToLower(t.Doc), kw) {
			matches = append(matches, fmt.Sprintf("%s: %s", t.Name, t.Doc))
		}
	}
	if len(matches) == 0 {
		return "No tools match " + fmt.Sprintf("%q", keyword) + "."
	}
	sort.Strings(matches)
	return strings.Join(matches, "\n")
}
