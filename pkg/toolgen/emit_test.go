package toolgen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDoer records the outbound request and returns a canned response.
type fakeDoer struct {
	t      *testing.T
	status int
	body   string
	last   *http.Request
	calls  int
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	f.last = req
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     http.Header{},
	}, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestBuildMCPTools(t *testing.T) {
	result := compileFixture(t, Options{})
	tools := BuildMCPTools(result)
	require.Len(t, tools, len(result.Tools))

	for i, tool := range tools {
		td := result.Tools[i]
		assert.Equal(t, td.Name, tool.Name)
		assert.Equal(t, td.Doc, tool.Description)
		assert.NotEmpty(t, tool.RawInputSchema)
		require.NotNil(t, tool.Annotations.ReadOnlyHint)
		assert.Equal(t, !td.Mutating, *tool.Annotations.ReadOnlyHint)
	}

	del := tools[4]
	require.Equal(t, "slskd_delete_search", del.Name)
	require.NotNil(t, del.Annotations.DestructiveHint)
	assert.True(t, *del.Annotations.DestructiveHint)
	assert.Contains(t, del.Annotations.Title, "Module: searches")
}

func TestRegisterTools(t *testing.T) {
	result := compileFixture(t, Options{})
	srv := server.NewMCPServer("test", "0.0.1")
	names := RegisterTools(srv, result, &RuntimeOptions{BaseURL: "http://localhost:5030"})
	assert.Equal(t, toolNames(result), names)
}

func TestInvocationPreviewPerformsNoRequest(t *testing.T) {
	result := compileFixture(t, Options{})
	td := result.Tool("slskd_delete_search")
	require.NotNil(t, td)

	doer := &fakeDoer{t: t, status: 204}
	handler := invocationHandler(*td, &RuntimeOptions{BaseURL: "http://localhost:5030", Client: doer})

	res, err := handler(context.Background(), callRequest(map[string]any{"id": "abc"}))
	require.NoError(t, err)
	text := resultText(t, res)

	assert.Contains(t, text, "PREVIEW (no action taken)")
	assert.Contains(t, text, "HTTP DELETE http://localhost:5030/api/v0/searches/abc")
	assert.Contains(t, text, `Re-run with "confirm": true to execute.`)
	assert.Equal(t, 0, doer.calls, "a preview must never reach the network")
}

func TestInvocationConfirmedExecutes(t *testing.T) {
	result := compileFixture(t, Options{})
	td := result.Tool("slskd_create_search")
	require.NotNil(t, td)

	doer := &fakeDoer{t: t, status: 201, body: `{"id":"s1"}`}
	handler := invocationHandler(*td, &RuntimeOptions{
		BaseURL: "http://localhost:5030",
		Client:  doer,
		APIKey:  "secret",
	})

	res, err := handler(context.Background(), callRequest(map[string]any{
		"searchText": "pink floyd",
		"confirm":    true,
	}))
	require.NoError(t, err)
	require.Equal(t, 1, doer.calls)

	req := doer.last
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "http://localhost:5030/api/v0/searches", req.URL.String())
	assert.Equal(t, "secret", req.Header.Get("X-API-Key"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	sent, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(sent, &payload))
	assert.Equal(t, "pink floyd", payload["searchText"])
	// Declared defaults for omitted optional parameters ride along.
	assert.Equal(t, float64(15000), payload["timeout"])
	assert.NotContains(t, payload, "confirm")

	text := resultText(t, res)
	assert.Contains(t, text, "Status: 201")
	assert.Contains(t, text, `{"id":"s1"}`)
}

func TestInvocationRejectsInvalidArguments(t *testing.T) {
	result := compileFixture(t, Options{})
	td := result.Tool("slskd_create_search")
	require.NotNil(t, td)

	doer := &fakeDoer{t: t, status: 201}
	handler := invocationHandler(*td, &RuntimeOptions{BaseURL: "http://localhost:5030", Client: doer})

	res, err := handler(context.Background(), callRequest(map[string]any{"confirm": true}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `Missing required parameter: "searchText"`)
	assert.Equal(t, 0, doer.calls)
}

func TestInvocationHTTPErrorSurface(t *testing.T) {
	result := compileFixture(t, Options{})
	td := result.Tool("slskd_get_search")
	require.NotNil(t, td)

	doer := &fakeDoer{t: t, status: 404, body: "no such search"}
	handler := invocationHandler(*td, &RuntimeOptions{BaseURL: "http://localhost:5030", Client: doer})

	res, err := handler(context.Background(), callRequest(map[string]any{"id": "gone"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "HTTP Error: Not Found (HTTP 404)")
	assert.Contains(t, text, "no such search")
	assert.Contains(t, text, "GET /api/v0/searches/{id}")
}

func TestBuildRequestSpecBase64Path(t *testing.T) {
	td := ToolDefinition{
		Method: "DELETE",
		Path:   "/api/v0/files/{base64Path}",
		Params: []Parameter{
			{Name: "base64Path", Location: LocPath, Type: TypeDescriptor{Kind: TypeString}, Required: true, Base64: true},
		},
	}
	spec, err := buildRequestSpec(td, map[string]any{"base64Path": "music/album"}, &RuntimeOptions{BaseURL: "http://h"})
	require.NoError(t, err)
	assert.Equal(t, "http://h/api/v0/files/bXVzaWMvYWxidW0=", spec.url)
}

func TestBuildRequestSpecQueryAndEscapedNames(t *testing.T) {
	td := ToolDefinition{
		Method: "GET",
		Path:   "/api/v0/logs",
		Params: []Parameter{
			{Name: "filter_created_at_", WireName: "filter[created_at]", Location: LocQuery, Type: TypeDescriptor{Kind: TypeString}},
		},
	}
	spec, err := buildRequestSpec(td, map[string]any{"filter_created_at_": "2024"}, nil)
	require.NoError(t, err)
	assert.Contains(t, spec.url, "filter%5Bcreated_at%5D=2024")
}

func TestBuildRequestSpecArrayBodyPassthrough(t *testing.T) {
	td := ToolDefinition{
		Method: "POST",
		Path:   "/api/v0/shares",
		Params: []Parameter{
			{Name: "body", Location: LocBody, Type: TypeDescriptor{Kind: TypeArray, Elem: &TypeDescriptor{Kind: TypeString}}, Required: true},
		},
	}
	spec, err := buildRequestSpec(td, map[string]any{"body": []any{"/music", "/books"}}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `["/music","/books"]`, string(spec.body))
}

const filterParamSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "slskd API", "version": "1"},
  "paths": {
    "/api/v0/logs/{id}": {
      "get": {
        "summary": "Get one log entry",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "filter", "in": "query", "schema": {"type": "string"}},
          {"name": "confirm", "in": "query", "schema": {"type": "boolean"}}
        ],
        "responses": {
          "200": {
            "description": "OK",
            "content": {"application/json": {"schema": {"type": "object"}}}
          }
        }
      }
    }
  }
}`

func TestBuildRequestSpecKeepsDeclaredFilterParameter(t *testing.T) {
	doc := mustLoad(t, filterParamSpec)
	result, err := Compile(doc, Options{})
	require.NoError(t, err)

	td := result.Tool("slskd_get_log")
	require.NotNil(t, td)
	require.False(t, td.ListShaped)
	require.Empty(t, td.Param("filter").Control, "declared parameters are never controls")

	spec, err := buildRequestSpec(*td, map[string]any{"id": "7", "filter": "error", "confirm": true}, nil)
	require.NoError(t, err)
	assert.Contains(t, spec.url, "/api/v0/logs/7")
	assert.Contains(t, spec.url, "filter=error")
	assert.Contains(t, spec.url, "confirm=true")
}

func TestShapeListResponse(t *testing.T) {
	td := ToolDefinition{Name: "slskd_list_searches", ListShaped: true, Params: listControlParams()}
	body := []byte(`[{"id":"1","searchText":"abba","state":"Completed"},{"id":"2","searchText":"queen","state":"InProgress"}]`)

	logger := zap.NewNop()
	shaped := shapeListResponse(td, map[string]any{"filter": "queen"}, body, logger)
	assert.JSONEq(t, `[{"id":"2","searchText":"queen","state":"InProgress"}]`, shaped)

	shaped = shapeListResponse(td, map[string]any{"fields": []any{"id"}}, body, logger)
	assert.JSONEq(t, `[{"id":"1"},{"id":"2"}]`, shaped)

	// Without controls the body passes through untouched.
	assert.Equal(t, string(body), shapeListResponse(td, map[string]any{}, body, logger))
}

func TestPreviewInvocation(t *testing.T) {
	result := compileFixture(t, Options{})
	td := result.Tool("slskd_update_options")
	require.NotNil(t, td)

	preview, err := PreviewInvocation(*td, map[string]any{"slots": float64(5)}, "http://localhost:5030")
	require.NoError(t, err)
	assert.Contains(t, preview, "HTTP PATCH http://localhost:5030/api/v0/options")
	assert.Contains(t, preview, `"slots": 5`)
}

func TestMetaHandlers(t *testing.T) {
	result := compileFixture(t, Options{})

	overview := metaHandler(result, *result.Tool("slskd_overview"))
	res, err := overview(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "slskd 0.21.4")

	find := metaHandler(result, *result.Tool("slskd_find_tools"))
	res, err = find(context.Background(), callRequest(map[string]any{"keyword": "search"}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "slskd_create_search")
	assert.Contains(t, text, "slskd_get_search")

	res, err = find(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	report := metaHandler(result, *result.Tool("slskd_report_issue"))
	res, err = report(context.Background(), callRequest(map[string]any{
		"description": "slskd_get_search returned an unexpected shape",
		"tool":        "slskd_get_search",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Issue recorded")
}

func TestFindToolsNoMatch(t *testing.T) {
	result := compileFixture(t, Options{})
	assert.Contains(t, findTools(result, "zebra"), "No tools match")
}
