// mcp-inspect is an interactive browser for a compiled tool set produced by
// slskd-mcp. It reads the compiled JSON and provides a readline prompt with
// completion for inspecting tools, schemas, and request previews without
// touching the network.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/abl030/slskd-mcp/pkg/toolgen"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		printHelp()
		if len(os.Args) < 2 {
			os.Exit(1)
		}
		os.Exit(0)
	}

	result, err := loadResult(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "inspect> ",
		AutoComplete: completer(result),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize readline:", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%d tools loaded from %s. Type 'help' for commands.\n", len(result.Tools), os.Args[1])
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return
			}
			return
		}
		if !dispatch(result, strings.TrimSpace(line)) {
			return
		}
	}
}

func loadResult(path string) (*toolgen.CompileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compiled tool set: %w", err)
	}
	var result toolgen.CompileResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse compiled tool set: %w", err)
	}
	return &result, nil
}

func completer(result *toolgen.CompileResult) *readline.PrefixCompleter {
	var toolItems []readline.PrefixCompleterInterface
	for _, t := range result.Tools {
		toolItems = append(toolItems, readline.PcItem(t.Name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("modules"),
		readline.PcItem("schema", toolItems...),
		readline.PcItem("show", toolItems...),
		readline.PcItem("preview", toolItems...),
		readline.PcItem("find"),
		readline.PcItem("summary"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

// dispatch executes one REPL command. Returns false to exit.
func dispatch(result *toolgen.CompileResult, line string) bool {
	if line == "" {
		return true
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "exit", "quit":
		return false
	case "help":
		printHelp()
	case "list":
		for _, t := range result.Tools {
			marker := " "
			if t.Mutating {
				marker = "*"
			}
			fmt.Printf("%s %-50s %s\n", marker, t.Name, t.Module)
		}
		fmt.Println("(* = mutating, requires confirm=true)")
	case "modules":
		for _, m := range result.Modules() {
			fmt.Println(m)
		}
	case "summary":
		fmt.Print(toolgen.Summary(result))
	case "find":
		if rest == "" {
			fmt.Println("Usage: find <keyword>")
			break
		}
		for _, t := range result.Tools {
			if strings.Contains(strings.ToLower(t.Name), strings.ToLower(rest)) ||
				strings.Contains(strings.ToLower(t.Doc), strings.ToLower(rest)) {
				fmt.Printf("%s: %s\n", t.Name, t.Doc)
			}
		}
	case "show":
		td := result.Tool(rest)
		if td == nil {
			fmt.Printf("Unknown tool: %q\n", rest)
			break
		}
		out, _ := json.MarshalIndent(td, "", "  ")
		fmt.Println(string(out))
	case "schema":
		td := result.Tool(rest)
		if td == nil {
			fmt.Printf("Unknown tool: %q\n", rest)
			break
		}
		out, _ := json.MarshalIndent(toolgen.InputSchema(*td), "", "  ")
		fmt.Println(string(out))
	case "preview":
		name, argsJSON, _ := strings.Cut(rest, " ")
		td := result.Tool(name)
		if td == nil {
			fmt.Printf("Unknown tool: %q\n", name)
			break
		}
		args := map[string]any{}
		if strings.TrimSpace(argsJSON) != "" {
			if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
				fmt.Printf("Invalid JSON arguments: %v\n", err)
				break
			}
		}
		preview, err := toolgen.PreviewInvocation(*td, args, "")
		if err != nil {
			fmt.Printf("Preview failed: %v\n", err)
			break
		}
		fmt.Println(preview)
	default:
		fmt.Printf("Unknown command: %q (type 'help')\n", cmd)
	}
	return true
}

func printHelp() {
	fmt.Print(`mcp-inspect: Browse a compiled MCP tool set

Usage:
  mcp-inspect <compiled-tools.json>

Commands:
  list                     List all tools (mutating tools marked with *)
  modules                  List module names
  summary                  Print the per-module summary
  find <keyword>           Search tool names and descriptions
  show <tool>              Show the full tool definition
  schema <tool>            Show the tool's input JSON Schema
  preview <tool> [json]    Show the HTTP request the tool would perform
  help                     Show this help
  exit, quit               Leave the prompt
`)
}
