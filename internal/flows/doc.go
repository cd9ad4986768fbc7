// Package flows contains the pure-function orchestrators behind every Engine
// operation.
//
// Each flow (RunFirstContext, RunContext, RunBuild) accepts a typed dependency
// struct and returns a result that classifies failures. The Engine maps those
// classifications to its public errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flows fix the order in which blob layers are peeled and built. They do NOT
// own strategies or session handlers; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import instantauth (to avoid import cycles).
//   - Decrypt the data segment of an authenticated blob before its verifier
//     segment has been confirmed.
package flows
