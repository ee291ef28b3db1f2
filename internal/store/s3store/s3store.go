// Package s3store implements the store contract on Amazon S3 and
// S3-compatible services using the AWS SDK v2.
package s3store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

const defaultRegion = "us-east-1"

// Store is an S3 bucket bound to the store contract.
type Store struct {
	client s3api.S3API
	bucket string
	region string
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a Store from a plaintext credential blob.
// Missing keys fall back to the default AWS credential chain.
func New(ctx context.Context, bucket string, blob []byte, logger *slog.Logger) (*Store, error) {
	creds, err := store.ParseCredentials(blob)
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*config.LoadOptions) error
	if creds.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(creds.Region))
	}
	if creds.HasStaticKeys() {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("load AWS configuration: %v", err))
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if creds.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(creds.Endpoint, creds.UseSSL))
		}
		o.UsePathStyle = creds.UsePathStyle
	})

	s := NewWithClient(client, bucket, logger)
	s.region = cfg.Region
	return s, nil
}

// NewWithClient creates a Store around an existing S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(client s3api.S3API, bucket string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		client: client,
		bucket: bucket,
		region: defaultRegion,
		logger: logger,
	}
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// Container implements store.Store.
func (s *Store) Container() string {
	return s.bucket
}

// EnsureContainer implements store.Store.
func (s *Store) EnsureContainer(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return translate("ensureContainer", s.bucket, "", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	if s.region != defaultRegion {
		input.CreateBucketConfiguration = &awstypes.CreateBucketConfiguration{
			LocationConstraint: awstypes.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		if isAlreadyOwned(err) {
			return nil
		}
		return translate("ensureContainer", s.bucket, "", err)
	}
	s.logger.Info("created bucket", "bucket", s.bucket, "region", s.region)
	return nil
}

// ObjectExists implements store.Store.
func (s *Store) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.head(ctx, key)
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
	out, err := s.head(ctx, key)
	if err != nil {
		return nil, err
	}
	return &synctypes.Attributes{
		Length:          aws.ToInt64(out.ContentLength),
		Digest:          store.RecordedDigest(out.Metadata, aws.ToString(out.ETag)),
		ContentType:     aws.ToString(out.ContentType),
		ContentEncoding: aws.ToString(out.ContentEncoding),
		Metadata:        out.Metadata,
	}, nil
}

func (s *Store) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate("headObject", s.bucket, key, err)
	}
	return out, nil
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
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	applyProperties(&input.ContentType, &input.ContentEncoding, props)

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return translate("putObject", s.bucket, key, err)
	}
	return nil
}

// SetProperties implements store.Store by copying the object onto itself
// with the new content properties and its existing metadata.
func (s *Store) SetProperties(ctx context.Context, key string, props synctypes.Properties) error {
	head, err := s.head(ctx, key)
	if err != nil {
		return err
	}
	return s.replace(ctx, key, head, props, head.Metadata)
}

// SetMetadata implements store.Store by copying the object onto itself
// with merged metadata and its existing content properties.
func (s *Store) SetMetadata(ctx context.Context, key string, metadata map[string]string) error {
	if err := validation.ValidateMetadata(metadata); err != nil {
		return errors.NewObjectError("setMetadata", s.bucket, key, err)
	}
	head, err := s.head(ctx, key)
	if err != nil {
		return err
	}
	props := synctypes.Properties{
		ContentType:     aws.ToString(head.ContentType),
		ContentEncoding: aws.ToString(head.ContentEncoding),
	}
	return s.replace(ctx, key, head, props, store.MergeMetadata(head.Metadata, metadata))
}

func applyProperties(contentType, contentEncoding **string, props synctypes.Properties) {
	if props.ContentType != "" {
		*contentType = aws.String(props.ContentType)
	}
	if props.ContentEncoding != "" {
		*contentEncoding = aws.String(props.ContentEncoding)
	}
}
