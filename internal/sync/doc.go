// Package sync implements one-way directory synchronization into a container.
// Subpackages scan local files, fingerprint both sides, compare them, plan
// object keys, and run each file's pipeline on a bounded worker pool.
//
// The sync/sync subpackage provides the complete implementation for the public Sync API.
package sync
