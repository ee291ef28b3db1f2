// Package pool provides memory management optimizations.
// This includes buffer pooling for digest computation and chunk transfers.
//
// The pool package keeps memory bounded by the number of in-flight chunks
// rather than by file size.
package pool
