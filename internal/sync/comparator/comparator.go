package comparator

import (
	"strconv"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/metadata"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// Compare returns the verdict for a remote fingerprint against a local one.
// The checks run in this order and the first match wins:
//
//  1. remote absent: NotEqual
//  2. lengths differ: NotEqual
//  3. remote digest unknown: SizeMatchContentUnknown
//  4. digests differ: NotEqual
//  5. otherwise: LikelyEqual
func Compare(remote, local synctypes.ContentInfo) synctypes.ComparisonResult {
	if remote.IsAbsent() {
		return synctypes.NotEqual
	}
	if remote.Length != local.Length {
		return synctypes.NotEqual
	}
	if remote.Digest == "" {
		return synctypes.SizeMatchContentUnknown
	}
	if remote.Digest != local.Digest {
		return synctypes.NotEqual
	}
	return synctypes.LikelyEqual
}

// RequiresUpload reports whether the pair must be uploaded.
func RequiresUpload(remote, local synctypes.ContentInfo) bool {
	return Compare(remote, local).RequiresUpload()
}

// QuickCheck reports whether the remote attributes can stand in for a local
// fingerprint without reading the file. It holds when the remote object has a
// recorded digest, the same length as the local file and a LastModified
// entry equal to the local modification time in ticks.
func QuickCheck(attrs *synctypes.Attributes, size int64, modTime time.Time) bool {
	if attrs == nil || attrs.Digest == "" || attrs.Length != size {
		return false
	}
	raw, ok := store.LookupMetadata(attrs.Metadata, store.MetaLastModified)
	if !ok {
		return false
	}
	ticks, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return ticks == metadata.Ticks(modTime)
}
