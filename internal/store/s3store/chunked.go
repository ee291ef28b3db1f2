package s3store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// StartChunked implements store.Store with an S3 multipart upload.
//
//nolint:ireturn // the store contract returns the writer interface.
func (s *Store) StartChunked(ctx context.Context, key string, props synctypes.Properties) (store.ChunkWriter, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	applyProperties(&input.ContentType, &input.ContentEncoding, props)

	out, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return nil, translate("createMultipartUpload", s.bucket, key, err)
	}
	return &multipartWriter{
		store:    s,
		key:      key,
		uploadID: aws.ToString(out.UploadId),
		parts:    make(map[int32]string),
	}, nil
}

// multipartWriter stages parts of one multipart upload.
// Part numbers are chunk indices plus one.
type multipartWriter struct {
	store    *Store
	key      string
	uploadID string

	mu    sync.Mutex
	parts map[int32]string
}

func (w *multipartWriter) UploadChunk(ctx context.Context, index int, _ int64, data []byte) error {
	partNumber := int32(index + 1)
	out, err := w.store.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(w.store.bucket),
		Key:           aws.String(w.key),
		UploadId:      aws.String(w.uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return translate("uploadPart", w.store.bucket, w.key, err)
	}

	w.mu.Lock()
	w.parts[partNumber] = aws.ToString(out.ETag)
	w.mu.Unlock()
	return nil
}

func (w *multipartWriter) Finalize(ctx context.Context) error {
	w.mu.Lock()
	parts := make([]awstypes.CompletedPart, 0, len(w.parts))
	for n, etag := range w.parts {
		parts = append(parts, awstypes.CompletedPart{
			PartNumber: aws.Int32(n),
			ETag:       aws.String(etag),
		})
	}
	w.mu.Unlock()

	if len(parts) == 0 {
		return errors.NewObjectError("completeMultipartUpload", w.store.bucket, w.key,
			fmt.Errorf("%w: no parts staged", errors.ErrNotFinalized))
	}
	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})

	_, err := w.store.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(w.store.bucket),
		Key:             aws.String(w.key),
		UploadId:        aws.String(w.uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return translate("completeMultipartUpload", w.store.bucket, w.key, err)
	}
	return nil
}

func (w *multipartWriter) Abort(ctx context.Context) error {
	_, err := w.store.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.store.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
	if err != nil {
		return translate("abortMultipartUpload", w.store.bucket, w.key, err)
	}
	return nil
}
