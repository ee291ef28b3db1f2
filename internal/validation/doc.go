// Package validation provides centralized input validation logic.
// This includes container name validation, object key validation, and
// checks on the metadata and content properties written onto objects.
//
// Inputs are validated before any store call so that a bad key fails its
// own file rather than surfacing as an opaque store error.
package validation
