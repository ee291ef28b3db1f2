// Package executor runs per-file pipelines on a bounded worker pool.
//
// At most MaxConcurrency pipelines run at once. Cancelling the context stops
// scheduling; jobs that never started get failed outcomes so every file is
// still reported.
package executor
