// Package miniostore implements the store contract on MinIO and other
// S3-compatible servers using minio-go.
package miniostore

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// objectAPI is the subset of *minio.Client used by the store.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(
		ctx context.Context,
		bucketName, objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	ComposeObject(ctx context.Context, dst minio.CopyDestOptions, srcs ...minio.CopySrcOptions) (minio.UploadInfo, error)
}

// multipartAPI is the subset of minio.Core used for chunked uploads.
type multipartAPI interface {
	NewMultipartUpload(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error)
	PutObjectPart(
		ctx context.Context,
		bucket, object, uploadID string,
		partID int,
		data io.Reader,
		size int64,
		opts minio.PutObjectPartOptions,
	) (minio.ObjectPart, error)
	CompleteMultipartUpload(
		ctx context.Context,
		bucket, object, uploadID string,
		parts []minio.CompletePart,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error
}

var (
	_ objectAPI    = (*minio.Client)(nil)
	_ multipartAPI = minio.Core{}
)

// Store is a MinIO bucket bound to the store contract.
type Store struct {
	objects   objectAPI
	multipart multipartAPI
	bucket    string
	region    string
	logger    *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a Store from a plaintext credential blob. Endpoint is required.
func New(bucket string, blob []byte, logger *slog.Logger) (*Store, error) {
	creds, err := store.ParseCredentials(blob)
	if err != nil {
		return nil, err
	}
	if creds.Endpoint == "" {
		return nil, errors.NewConfigError(fmt.Sprintf("%s is required for the minio backend", store.KeyEndpoint))
	}

	endpoint := creds.Endpoint
	secure := creds.UseSSL
	if i := strings.Index(endpoint, "://"); i >= 0 {
		secure = endpoint[:i] == "https"
		endpoint = endpoint[i+3:]
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		Secure: secure,
		Region: creds.Region,
	}
	if creds.UsePathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("create minio client: %v", err))
	}

	s := newStore(client, minio.Core{Client: client}, bucket, logger)
	s.region = creds.Region
	return s, nil
}

func newStore(objects objectAPI, multipart multipartAPI, bucket string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		objects:   objects,
		multipart: multipart,
		bucket:    bucket,
		logger:    logger,
	}
}

// Container implements store.Store.
func (s *Store) Container() string {
	return s.bucket
}

// EnsureContainer implements store.Store.
func (s *Store) EnsureContainer(ctx context.Context) error {
	exists, err := s.objects.BucketExists(ctx, s.bucket)
	if err != nil {
		return translate("ensureContainer", s.bucket, "", err)
	}
	if exists {
		return nil
	}
	if err := s.objects.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return translate("ensureContainer", s.bucket, "", err)
	}
	s.logger.Info("created bucket", "bucket", s.bucket)
	return nil
}

// ObjectExists implements store.Store.
func (s *Store) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.IsObjectNotFound(err) {
		return false, nil
	}
	return false, err
}

// FetchAttributes implements store.Store.
func (s *Store) FetchAttributes(ctx context.Context, key string) (*synctypes.Attributes, error) {
	info, err := s.stat(ctx, key)
	if err != nil {
		return nil, err
	}
	return &synctypes.Attributes{
		Length:          info.Size,
		Digest:          store.RecordedDigest(info.UserMetadata, info.ETag),
		ContentType:     info.ContentType,
		ContentEncoding: info.Metadata.Get("Content-Encoding"),
		Metadata:        info.UserMetadata,
	}, nil
}

func (s *Store) stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	info, err := s.objects.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return minio.ObjectInfo{}, translate("statObject", s.bucket, key, err)
	}
	return info, nil
}

// PutObject implements store.Store.
func (s *Store) PutObject(
	ctx context.Context,
	key string,
	body io.ReadSeeker,
	size int64,
	props synctypes.Properties,
) error {
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return errors.NewObjectError("putObject", s.bucket, key, err)
	}
	_, err := s.objects.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:     props.ContentType,
		ContentEncoding: props.ContentEncoding,
	})
	if err != nil {
		return translate("putObject", s.bucket, key, err)
	}
	return nil
}

// SetProperties implements store.Store with a server-side copy onto itself.
func (s *Store) SetProperties(ctx context.Context, key string, props synctypes.Properties) error {
	info, err := s.stat(ctx, key)
	if err != nil {
		return err
	}
	return s.replace(ctx, key, props, info.UserMetadata)
}

// SetMetadata implements store.Store with a server-side copy onto itself.
func (s *Store) SetMetadata(ctx context.Context, key string, metadata map[string]string) error {
	if err := validation.ValidateMetadata(metadata); err != nil {
		return errors.NewObjectError("setMetadata", s.bucket, key, err)
	}
	info, err := s.stat(ctx, key)
	if err != nil {
		return err
	}
	props := synctypes.Properties{
		ContentType:     info.ContentType,
		ContentEncoding: info.Metadata.Get("Content-Encoding"),
	}
	return s.replace(ctx, key, props, store.MergeMetadata(info.UserMetadata, metadata))
}

// replace copies the object onto itself. Standard headers such as
// Content-Type travel in UserMetadata and are sent as-is by minio-go.
func (s *Store) replace(ctx context.Context, key string, props synctypes.Properties, metadata map[string]string) error {
	userMetadata := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		userMetadata[k] = v
	}
	if props.ContentType != "" {
		userMetadata["Content-Type"] = props.ContentType
	}
	if props.ContentEncoding != "" {
		userMetadata["Content-Encoding"] = props.ContentEncoding
	}

	_, err := s.objects.ComposeObject(ctx,
		minio.CopyDestOptions{
			Bucket:          s.bucket,
			Object:          key,
			UserMetadata:    userMetadata,
			ReplaceMetadata: true,
		},
		minio.CopySrcOptions{Bucket: s.bucket, Object: key},
	)
	if err != nil {
		return translate("copyObject", s.bucket, key, err)
	}
	return nil
}

// StartChunked implements store.Store with a MinIO multipart upload.
//
//nolint:ireturn // the store contract returns the writer interface.
func (s *Store) StartChunked(ctx context.Context, key string, props synctypes.Properties) (store.ChunkWriter, error) {
	uploadID, err := s.multipart.NewMultipartUpload(ctx, s.bucket, key, minio.PutObjectOptions{
		ContentType:     props.ContentType,
		ContentEncoding: props.ContentEncoding,
	})
	if err != nil {
		return nil, translate("newMultipartUpload", s.bucket, key, err)
	}
	return &partWriter{store: s, key: key, uploadID: uploadID, parts: make(map[int]string)}, nil
}

type partWriter struct {
	store    *Store
	key      string
	uploadID string

	mu    sync.Mutex
	parts map[int]string
}

func (w *partWriter) UploadChunk(ctx context.Context, index int, _ int64, data []byte) error {
	partID := index + 1
	part, err := w.store.multipart.PutObjectPart(ctx, w.store.bucket, w.key, w.uploadID, partID,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectPartOptions{})
	if err != nil {
		return translate("putObjectPart", w.store.bucket, w.key, err)
	}
	w.mu.Lock()
	w.parts[partID] = part.ETag
	w.mu.Unlock()
	return nil
}

func (w *partWriter) Finalize(ctx context.Context) error {
	w.mu.Lock()
	parts := make([]minio.CompletePart, 0, len(w.parts))
	for n, etag := range w.parts {
		parts = append(parts, minio.CompletePart{PartNumber: n, ETag: etag})
	}
	w.mu.Unlock()

	if len(parts) == 0 {
		return errors.NewObjectError("completeMultipartUpload", w.store.bucket, w.key,
			fmt.Errorf("%w: no parts staged", errors.ErrNotFinalized))
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })

	_, err := w.store.multipart.CompleteMultipartUpload(ctx, w.store.bucket, w.key, w.uploadID, parts,
		minio.PutObjectOptions{})
	if err != nil {
		return translate("completeMultipartUpload", w.store.bucket, w.key, err)
	}
	return nil
}

func (w *partWriter) Abort(ctx context.Context) error {
	if err := w.store.multipart.AbortMultipartUpload(ctx, w.store.bucket, w.key, w.uploadID); err != nil {
		return translate("abortMultipartUpload", w.store.bucket, w.key, err)
	}
	return nil
}

// errorCodeSentinels maps MinIO error response codes to sentinel errors.
var errorCodeSentinels = map[string]error{
	"NoSuchKey":                  errors.ErrObjectNotFound,
	"NoSuchBucket":               errors.ErrContainerNotFound,
	"NoSuchUpload":               errors.ErrNotFinalized,
	"AccessDenied":               errors.ErrAccessDenied,
	"InvalidAccessKeyId":         errors.ErrAccessDenied,
	"InvalidBucketName":          errors.ErrInvalidContainerName,
	"XMinioInvalidObjectName":    errors.ErrInvalidObjectKey,
	"SlowDown":                   errors.ErrTooManyRequests,
	"SlowDownRead":               errors.ErrTooManyRequests,
	"SlowDownWrite":              errors.ErrTooManyRequests,
	"RequestTimeout":             errors.ErrTransient,
	"InternalError":              errors.ErrTransient,
	"ServiceUnavailable":         errors.ErrTransient,
	"XMinioServerNotInitialized": errors.ErrTransient,
}

func translate(op, bucket, key string, err error) error {
	var sentinel error
	var netErr net.Error
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code != "":
		sentinel = errorCodeSentinels[resp.Code]
		if sentinel == nil && resp.StatusCode == 404 {
			sentinel = errors.ErrObjectNotFound
		}
	case stderrors.As(err, &netErr):
		sentinel = errors.ErrTransient
	}
	if sentinel == nil {
		return errors.NewObjectError(op, bucket, key, err)
	}
	return errors.NewObjectError(op, bucket, key, fmt.Errorf("%w: %w", sentinel, err))
}
