// Package multipart handles chunked uploads with concurrent chunk transfers
// and per-chunk retry.
//
// An object uploaded in chunks becomes visible only when Finalize succeeds.
// If any chunk fails after its retries are exhausted the upload is aborted
// and never finalized, so a partial object is never observable as complete.
package multipart
