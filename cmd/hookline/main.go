package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "hook":
		os.Exit(cmdHook(os.Args[2:]))
	case "events":
		cmdEvents(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "version":
		fmt.Printf("hookline %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: hookline <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the hub server\n")
	fmt.Fprintf(os.Stderr, "  hook      Process one hook invocation from stdin\n")
	fmt.Fprintf(os.Stderr, "  events    Query recorded events\n")
	fmt.Fprintf(os.Stderr, "  mcp       Serve event queries over MCP stdio\n")
	fmt.Fprintf(os.Stderr, "  version   Print version\n")
}
