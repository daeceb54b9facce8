// Package pxmcp holds build metadata for the paradox-mcp server.
package pxmcp

// Version is the server version reported by the CLI and in the MCP
// initialize handshake.
const Version = "0.1.0"

// Name is the server name advertised to MCP clients.
const Name = "paradox-mcp"
