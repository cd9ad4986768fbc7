// Package instantauth provides a session-based message authentication engine.
//
// Every message exchanged through the engine is an opaque, layered blob. The outer
// layers hide the contents from passive observers, the verifier segment commits to a
// public key that identifies the sender, and once a session exists the engine proves
// the sender held that session's private key before the payload is trusted.
//
// # Capabilities
//
// The engine does not implement any algorithm itself. It composes four pluggable
// strategies bound at [Builder.Build]:
//
//   - [Coder]: application data to payload bytes and back (package coder).
//   - [Cryptor]: symmetric encryption at global and per-session granularity (package cryptor).
//   - [Verifier]: commitment segment encode/divide/merge/verify (package verifier).
//   - [SessionHandler]: public key to session record lookup (package session).
//
// An optional [WireEncoding] (package wire) armors the outermost layer for transports
// that cannot carry raw bytes.
//
// # Flows
//
//   - [Engine.GetFirstContext]: bootstrap; extracts an unauthenticated public key.
//   - [Engine.GetContext]: authenticated; resolves a session and confirms the verifier
//     before decrypting the payload.
//   - [Engine.BuildData]: issues a blob for an existing session.
//
// Every read-flow rejection returns [ErrAuthentication]. Callers cannot tell which
// check failed; the reason is only visible to operators through metrics, audit events
// and debug logs.
//
// # Concurrency
//
// Engine methods are safe to call from multiple goroutines when the bound strategies
// and session handler are. The engine adds no locking of its own.
package instantauth
