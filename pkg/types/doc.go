// Package types defines the data model shared by every layer of the
// paradox-mcp server: field types and their JSON mapping, schemas, records,
// table handles, search criteria, the server configuration, and the
// standard error values that the tool dispatcher maps onto JSON-RPC codes.
package types
