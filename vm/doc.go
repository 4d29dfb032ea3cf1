// Package vm implements the Ruby runtime that compiled script bodies run on.
//
// This package contains:
//   - Value representation and the core class hierarchy
//   - Frames, dynamic scopes, blocks and bindings
//   - The bytecode emitter and interpreter with per-site inline caches
//   - Non-local control flow (break, next, redo, retry, return, throw)
//   - Core library primitives, including Range, Enumerable and StringScanner
//   - Threads, thread groups and the interpreter lock
package vm
