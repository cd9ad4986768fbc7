// Package coder provides payload codecs for the instantauth engine.
//
// A coder turns application data into the innermost payload of a blob and
// back. Every coder in this package returns a non-nil payload on success and
// reports its name through DerivedContext under the "coder" attribute.
//
// # What this package must NOT do
//
//   - Import instantauth (coders satisfy its interfaces structurally).
//   - Encrypt or authenticate payloads.
package coder
