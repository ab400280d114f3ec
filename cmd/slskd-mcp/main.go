// slskd-mcp compiles an OpenAPI 3.x document into MCP tool definitions.
// It can emit the compiled set as JSON, write Markdown documentation, or
// serve the tools over MCP stdio with live HTTP handlers.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/abl030/slskd-mcp/pkg/toolgen"
)

func main() {
	flags := parseFlags()
	if flags.showHelp {
		printHelp()
		os.Exit(0)
	}

	logger := newLogger(flags.verbose)
	defer logger.Sync()

	args := flags.args
	validateOnly := false
	if len(args) > 0 && args[0] == "validate" {
		validateOnly = true
		args = args[1:]
	}
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: missing required <openapi-spec-path> argument.")
		printHelp()
		os.Exit(1)
	}
	specPath := args[0]

	doc, err := toolgen.LoadSpec(specPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load OpenAPI spec: %v\n", err)
		os.Exit(1)
	}

	opts := toolgen.Options{
		Service:  flags.service,
		ReadOnly: flags.readOnly,
		Logger:   logger,
	}
	if flags.modules != "" {
		opts.Modules = strings.Split(flags.modules, ",")
	}
	if flags.overrides != "" {
		overrides, err := toolgen.LoadOverrides(flags.overrides)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts.Overrides = overrides
	}

	result, err := toolgen.Compile(doc, opts)
	if err != nil {
		var verrs toolgen.ValidationErrors
		if errors.As(err, &verrs) {
			// Every violation is itemized; a single ambiguous "registration
			// failed" is exactly the failure mode this tool exists to avoid.
			fmt.Fprintln(os.Stderr, verrs.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if validateOnly {
		if err := toolgen.CrossCheck(doc, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprint(os.Stderr, toolgen.Summary(result))
		fmt.Fprintln(os.Stderr, "Validation passed: the tool set is safe to emit.")
		os.Exit(0)
	}

	if flags.summary {
		fmt.Fprint(os.Stderr, toolgen.Summary(result))
	}

	if flags.docFile != "" {
		if err := writeDoc(flags.docFile, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing documentation: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Wrote Markdown documentation to %s\n", flags.docFile)
		if !flags.serve && flags.outFile == "" {
			os.Exit(0)
		}
	}

	if flags.serve {
		serveStdio(result, flags, logger)
		return
	}

	if err := writeJSON(flags, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func writeDoc(path string, result *toolgen.CompileResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toolgen.WriteMarkdownDoc(f, result)
}

func writeJSON(flags *cliFlags, result *toolgen.CompileResult) error {
	var out []byte
	var err error
	if flags.pretty {
		out, err = json.MarshalIndent(result, "", "  ")
	} else {
		out, err = json.Marshal(result)
	}
	if err != nil {
		return err
	}
	out = append(out, '\n')
	if flags.outFile != "" {
		return os.WriteFile(flags.outFile, out, 0o644)
	}
	_, err = os.Stdout.Write(out)
	return err
}

func serveStdio(result *toolgen.CompileResult, flags *cliFlags, logger *zap.Logger) {
	srv := server.NewMCPServer(result.Service, result.Version, server.WithToolCapabilities(true))
	runtime := &toolgen.RuntimeOptions{
		BaseURL:      flags.baseURL,
		APIKey:       flags.apiKey,
		APIKeyHeader: flags.apiKeyHeader,
		BearerToken:  flags.bearerToken,
		Logger:       logger,
	}
	names := toolgen.RegisterTools(srv, result, runtime)
	logger.Info("serving MCP over stdio", zap.Int("tools", len(names)))
	if err := server.ServeStdio(srv); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
