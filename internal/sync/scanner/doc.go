// Package scanner discovers the local files of a sync run.
//
// ScanTree walks a directory and keys every regular file by its slash
// separated path relative to the root. ScanFiles keys an explicit list of
// files by basename. Include and exclude patterns use doublestar globs.
package scanner
