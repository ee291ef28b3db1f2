// Package transfer moves local content into a store.
//
// The multipart subpackage splits large files into contiguous chunks,
// uploads them concurrently with per-chunk retry and finalizes the object
// only after every chunk has landed.
package transfer
