// Package ir defines the schema descriptor intermediate representation.
//
// This package contains type definitions and their validation only. The
// compiler package lowers CUE descriptors into these types; the verifier
// consumes them after conversion to a bound schema. ir imports nothing
// internal, keeping it the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - All JSON tags use snake_case
//   - Descriptor identity is content-addressed (see DescriptorID)
//   - Validation returns every error found, never just the first
package ir
