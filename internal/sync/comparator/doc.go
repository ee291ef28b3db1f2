// Package comparator decides whether a local file must be uploaded.
//
// Compare applies a fixed decision order to a remote and a local fingerprint
// and yields a tri-state verdict. Only LikelyEqual lets a file be skipped;
// a remote copy whose content cannot be proven equal is always re-uploaded.
package comparator
