package store

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Metadata keys written onto every object the engine uploads.
const (
	// MetaLastModified holds the local modification time in 100ns ticks since 0001-01-01 UTC
	MetaLastModified = "LastModified"

	// MetaContentMD5 holds the base64 MD5 digest of the object content
	MetaContentMD5 = "ContentMD5"
)

// LookupMetadata finds key in md ignoring case. Stores normalize user
// metadata keys differently (S3 lowercases them, MinIO canonicalizes them).
func LookupMetadata(md map[string]string, key string) (string, bool) {
	if v, ok := md[key]; ok {
		return v, true
	}
	for k, v := range md {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// MergeMetadata returns a copy of base with every entry of updates applied.
// An update replaces any existing key that differs only in case.
func MergeMetadata(base, updates map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(updates))
	for k, v := range base {
		merged[k] = v
	}
	for uk, uv := range updates {
		for k := range merged {
			if strings.EqualFold(k, uk) {
				delete(merged, k)
			}
		}
		merged[uk] = uv
	}
	return merged
}

// RecordedDigest returns the base64 MD5 recorded for an object. The
// ContentMD5 metadata entry wins; otherwise a single-part ETag is the hex MD5
// of the content. Multipart ETags carry a part count suffix and are not digests.
func RecordedDigest(metadata map[string]string, etag string) string {
	if v, ok := LookupMetadata(metadata, MetaContentMD5); ok && v != "" {
		return v
	}
	etag = strings.Trim(etag, `"`)
	if etag == "" || strings.Contains(etag, "-") {
		return ""
	}
	sum, err := hex.DecodeString(etag)
	if err != nil || len(sum) != 16 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(sum)
}
