// Command paradox-mcp serves a directory of tables as MCP tools over stdio.
package main

import "github.com/mesh-intelligence/paradox-mcp/internal/cli"

func main() {
	cli.Execute()
}
