// Package sync provides the main sync orchestration logic.
//
// A run makes sure the container exists, scans the local files, plans one
// job per object key and runs a pipeline per file on a bounded pool:
// fingerprint local and remote, compare, upload when required and record
// metadata. Every file ends with exactly one outcome; failures of one file
// never abort its siblings.
package sync
