// flags.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// cliFlags holds all parsed CLI flags and arguments.
type cliFlags struct {
	showHelp     bool
	service      string
	overrides    string
	modules      string
	readOnly     bool
	outFile      string
	docFile      string
	summary      bool
	pretty       bool
	serve        bool
	baseURL      string
	apiKey       string
	apiKeyHeader string
	bearerToken  string
	verbose      bool
	args         []string
}

// parseFlags parses all CLI flags and returns a cliFlags struct.
// Environment variables provide defaults for deployment-level settings.
func parseFlags() *cliFlags {
	var flags cliFlags
	flag.BoolVar(&flags.showHelp, "h", false, "Show help")
	flag.BoolVar(&flags.showHelp, "help", false, "Show help")
	flag.StringVar(&flags.service, "service", os.Getenv("SLSKD_MCP_SERVICE"), "Service prefix for tool names (default: derived from the spec title)")
	flag.StringVar(&flags.overrides, "overrides", "", "Path to the operator overrides YAML file (name overrides, response fill-ins, module rules, workflow hints)")
	flag.StringVar(&flags.modules, "modules", os.Getenv("SLSKD_MCP_MODULES"), "Comma-separated module names to include (default: all modules)")
	flag.BoolVar(&flags.readOnly, "read-only", envBool("SLSKD_MCP_READ_ONLY"), "Strip every mutating tool from the compiled set")
	flag.StringVar(&flags.outFile, "out", "", "Write the compiled tool set JSON to this file instead of stdout")
	flag.StringVar(&flags.docFile, "doc", "", "Write Markdown documentation for all tools to this file")
	flag.BoolVar(&flags.summary, "summary", false, "Print a summary of the compiled tools (count per module, warnings)")
	flag.BoolVar(&flags.pretty, "pretty", false, "Pretty-print the JSON output")
	flag.BoolVar(&flags.serve, "serve", false, "Serve the compiled tools over MCP stdio instead of writing JSON")
	flag.StringVar(&flags.baseURL, "base-url", os.Getenv("SLSKD_MCP_BASE_URL"), "Base URL for HTTP calls made by served tools")
	flag.StringVar(&flags.apiKey, "api-key", os.Getenv("SLSKD_MCP_API_KEY"), "API key for authenticated endpoints")
	flag.StringVar(&flags.apiKeyHeader, "api-key-header", "X-API-Key", "Header name used for the API key")
	flag.StringVar(&flags.bearerToken, "bearer-token", os.Getenv("SLSKD_MCP_BEARER_TOKEN"), "Bearer token for the Authorization header")
	flag.BoolVar(&flags.verbose, "verbose", false, "Enable debug logging")
	flag.Parse()
	flags.args = flag.Args()
	return &flags
}

// envBool reads a boolean environment variable. Unset, empty, or
// unparseable values are false, so SLSKD_MCP_READ_ONLY=false stays off.
func envBool(name string) bool {
	v := os.Getenv(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// printHelp prints the CLI help message.
func printHelp() {
	fmt.Print(`slskd-mcp: Compile an OpenAPI spec into MCP tool definitions

Usage:
  slskd-mcp [flags] <openapi-spec-path>
  slskd-mcp validate <openapi-spec-path>

Commands:
  validate <openapi-spec-path>  Compile and validate the tool set without emitting it;
                                reports every violation, exclusion, and warning

Flags:
  --service        Service prefix for tool names (default: derived from spec title)
  --overrides      Operator overrides YAML (names, response fill-ins, modules, hints)
  --modules        Comma-separated modules to include (default: all)
  --read-only      Strip every mutating tool
  --out            Write compiled tool set JSON to a file (default: stdout)
  --doc            Write Markdown documentation to a file
  --summary        Print a per-module summary to stderr
  --pretty         Pretty-print JSON output
  --serve          Serve the compiled tools over MCP stdio
  --base-url       Base URL for served tool HTTP calls
  --api-key        API key for authenticated endpoints
  --api-key-header Header name for the API key (default: X-API-Key)
  --bearer-token   Bearer token for the Authorization header
  --verbose        Enable debug logging

The exit status is zero only when emission validation finds zero violations
across the whole batch; no partial tool set is ever emitted.
`)
}
