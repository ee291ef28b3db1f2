// Package planner turns scanned files into upload jobs.
//
// It applies the destination folder prefix, validates the resulting object
// keys, reports keys claimed by more than one local file and orders jobs so
// small files are processed first.
package planner
