// Package middleware adapts instantauth.Engine to net/http.
//
// # Guards
//
//   - [Guard]: reads the request body as a blob and runs the selected flow.
//   - [RequireContext]: authenticated flow ([instantauth.Engine.GetContext]).
//   - [RequireFirstContext]: bootstrap flow ([instantauth.Engine.GetFirstContext]).
//
// Accepted requests carry the decoded *instantauth.Context, retrievable with
// [ContextFromRequest]. Rejected requests get 401 "unauthorized" whatever the
// cause. [WriteBlob] encodes a response through [instantauth.Engine.BuildData].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT peel
// blobs or look up sessions itself.
//
// # What this package must NOT do
//
//   - Reveal to the client why a blob was rejected.
//   - Read unbounded request bodies.
package middleware
