package comparator

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/metadata"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

func TestCompare(t *testing.T) {
	local := synctypes.ContentInfo{Digest: "D1", Length: 10}

	tests := []struct {
		name   string
		remote synctypes.ContentInfo
		want   synctypes.ComparisonResult
	}{
		{name: "absent", remote: synctypes.Absent, want: synctypes.NotEqual},
		{name: "length differs", remote: synctypes.ContentInfo{Digest: "D1", Length: 11}, want: synctypes.NotEqual},
		{
			name:   "length differs without digest",
			remote: synctypes.ContentInfo{Length: 9},
			want:   synctypes.NotEqual,
		},
		{
			name:   "size match content unknown",
			remote: synctypes.ContentInfo{Length: 10},
			want:   synctypes.SizeMatchContentUnknown,
		},
		{name: "digest differs", remote: synctypes.ContentInfo{Digest: "D2", Length: 10}, want: synctypes.NotEqual},
		{name: "likely equal", remote: synctypes.ContentInfo{Digest: "D1", Length: 10}, want: synctypes.LikelyEqual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.remote, local)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != synctypes.LikelyEqual, RequiresUpload(tt.remote, local))
		})
	}
}

func TestCompareEmptyLocalFile(t *testing.T) {
	empty := synctypes.ContentInfo{Digest: "1B2M2Y8AsgTpgAmY7PhCfg==", Length: 0}
	assert.Equal(t, synctypes.NotEqual, Compare(synctypes.Absent, empty))
	assert.Equal(t, synctypes.LikelyEqual, Compare(empty, empty))
}

func TestQuickCheck(t *testing.T) {
	mod := time.Date(2025, 1, 2, 3, 4, 5, 600, time.UTC)
	ticks := strconv.FormatInt(metadata.Ticks(mod), 10)

	tests := []struct {
		name  string
		attrs *synctypes.Attributes
		want  bool
	}{
		{name: "nil", attrs: nil},
		{
			name:  "match",
			attrs: &synctypes.Attributes{Length: 3, Digest: "d", Metadata: map[string]string{"lastmodified": ticks}},
			want:  true,
		},
		{
			name:  "no digest",
			attrs: &synctypes.Attributes{Length: 3, Metadata: map[string]string{store.MetaLastModified: ticks}},
		},
		{
			name:  "length differs",
			attrs: &synctypes.Attributes{Length: 4, Digest: "d", Metadata: map[string]string{store.MetaLastModified: ticks}},
		},
		{
			name:  "ticks differ",
			attrs: &synctypes.Attributes{Length: 3, Digest: "d", Metadata: map[string]string{store.MetaLastModified: "1"}},
		},
		{
			name:  "garbage ticks",
			attrs: &synctypes.Attributes{Length: 3, Digest: "d", Metadata: map[string]string{store.MetaLastModified: "x"}},
		},
		{name: "no metadata", attrs: &synctypes.Attributes{Length: 3, Digest: "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuickCheck(tt.attrs, 3, mod))
		})
	}
}
