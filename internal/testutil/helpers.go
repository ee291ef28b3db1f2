package testutil

import (
	"crypto/md5" //nolint:gosec // ETag fixtures only
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// CalculateETag returns the quoted hex MD5 a single-part S3 upload reports.
func CalculateETag(data []byte) string {
	h := md5.Sum(data) //nolint:gosec // ETag fixtures only
	return fmt.Sprintf(`"%x"`, h)
}

// CreateHeadObjectOutput builds a HeadObject response for data.
func CreateHeadObjectOutput(data []byte, contentType string, metadata map[string]string) *s3.HeadObjectOutput {
	out := &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		ETag:          aws.String(CalculateETag(data)),
		LastModified:  aws.Time(time.Now()),
		Metadata:      metadata,
	}
	if contentType != "" {
		out.ContentType = aws.String(contentType)
	}
	return out
}
