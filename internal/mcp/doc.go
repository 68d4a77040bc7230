// Package mcp exposes the back-office operations as MCP tools over stdio.
// Handlers resolve the calling actor, consult the capability gate, invoke
// the core packages, and map domain errors to stable protocol error codes.
package mcp
