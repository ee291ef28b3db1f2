package s3store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

const (
	// maxSimpleCopySize is the S3 limit for a single CopyObject request (5GB)
	maxSimpleCopySize = 5 * 1024 * 1024 * 1024

	// copyPartSize is the range size used when rewriting larger objects
	copyPartSize = 512 * 1024 * 1024

	// copyConcurrency bounds concurrent UploadPartCopy requests for one object
	copyConcurrency = 4
)

// replace rewrites an object's properties and metadata in place. S3 has no
// metadata-only update, so the object is copied onto itself with
// MetadataDirective REPLACE; objects over 5GB use a multipart self-copy.
func (s *Store) replace(
	ctx context.Context,
	key string,
	head *s3.HeadObjectOutput,
	props synctypes.Properties,
	metadata map[string]string,
) error {
	size := aws.ToInt64(head.ContentLength)
	if size > maxSimpleCopySize {
		return s.replaceMultipart(ctx, key, size, props, metadata)
	}

	input := &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(s.copySource(key)),
		MetadataDirective: awstypes.MetadataDirectiveReplace,
		Metadata:          metadata,
	}
	applyProperties(&input.ContentType, &input.ContentEncoding, props)

	if _, err := s.client.CopyObject(ctx, input); err != nil {
		return translate("copyObject", s.bucket, key, err)
	}
	return nil
}

func (s *Store) copySource(key string) string {
	return s.bucket + "/" + url.PathEscape(key)
}

func (s *Store) replaceMultipart(
	ctx context.Context,
	key string,
	size int64,
	props synctypes.Properties,
	metadata map[string]string,
) error {
	input := &s3.CreateMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Metadata: metadata,
	}
	applyProperties(&input.ContentType, &input.ContentEncoding, props)

	out, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return translate("createMultipartCopy", s.bucket, key, err)
	}
	uploadID := aws.ToString(out.UploadId)

	parts, err := s.copyParts(ctx, key, uploadID, size)
	if err == nil {
		_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
			Bucket:          aws.String(s.bucket),
			Key:             aws.String(key),
			UploadId:        aws.String(uploadID),
			MultipartUpload: &awstypes.CompletedMultipartUpload{Parts: parts},
		})
	}
	if err != nil {
		// Ignore errors during cleanup
		_, _ = s.client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(key),
			UploadId: aws.String(uploadID),
		})
		return translate("completeMultipartCopy", s.bucket, key, err)
	}
	return nil
}

// copyParts copies the object onto the pending upload range by range. The
// first failed range cancels the ones still in flight.
func (s *Store) copyParts(ctx context.Context, key, uploadID string, size int64) ([]awstypes.CompletedPart, error) {
	numParts := int((size + copyPartSize - 1) / copyPartSize)
	parts := make([]awstypes.CompletedPart, numParts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for i := range parts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			partNumber := int32(i + 1)
			start := int64(i) * copyPartSize
			end := min(start+copyPartSize, size) - 1
			out, err := s.client.UploadPartCopy(gctx, &s3.UploadPartCopyInput{
				Bucket:          aws.String(s.bucket),
				Key:             aws.String(key),
				CopySource:      aws.String(s.copySource(key)),
				CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
				UploadId:        aws.String(uploadID),
				PartNumber:      aws.Int32(partNumber),
			})
			if err != nil {
				return err
			}
			parts[i] = awstypes.CompletedPart{PartNumber: aws.Int32(partNumber)}
			if out.CopyPartResult != nil {
				parts[i].ETag = out.CopyPartResult.ETag
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}
