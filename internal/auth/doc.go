// Package auth resolves operators and decides what they may do. It keeps a
// capability table per role, verifies bcrypt credentials against the user
// store, and hands out opaque session tokens. Core packages never consult
// roles directly; handlers gate the operation and pass the actor id down.
package auth
