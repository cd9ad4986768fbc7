// Package session provides the session records and session handlers used by
// the instantauth engine.
//
// # Storage
//
// [Store] keeps one compact binary [Record] per public key in Redis. Records
// carry the session's private key, so Redis must be treated as a secret store.
// [MemoryHandler] holds records in process for tests and single-node use.
//
// # Architecture boundaries
//
// This package owns record persistence and key-pair lookup. It does NOT peel
// blobs, verify segments or decide whether a request is authenticated; those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import instantauth (handlers satisfy SessionHandler structurally).
//   - Forward unvalidated public keys to Redis.
//   - Distinguish "unknown" from "expired" to callers.
package session
