// Package internal contains private implementation details for the blobsync module.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - store: Object store contract, decorators and the S3 and MinIO backends
//   - sync: Scanning, fingerprinting, comparison, planning and the per-file pipeline
//   - transfer: Chunked uploads with retry
//   - localfs: Local filesystem access over go-billy
//   - metrics: Prometheus instrumentation
//   - validation: Input validation logic
//   - pool: Memory management optimizations
package internal
