package testutil

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// MockBuilder provides a fluent interface for building MockS3Client instances.
type MockBuilder struct {
	client  *MockS3Client
	objects map[string]*s3.HeadObjectOutput
}

// NewMockBuilder creates a new MockBuilder. Unknown keys report NotFound.
func NewMockBuilder() *MockBuilder {
	b := &MockBuilder{
		client:  &MockS3Client{},
		objects: make(map[string]*s3.HeadObjectOutput),
	}
	b.client.HeadObjectFunc = func(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		if out, ok := b.objects[aws.ToString(in.Key)]; ok {
			return out, nil
		}
		return nil, &types.NotFound{}
	}
	return b
}

// Build returns the configured MockS3Client.
func (b *MockBuilder) Build() *MockS3Client {
	return b.client
}

// WithObject makes HeadObject report key as holding data.
func (b *MockBuilder) WithObject(key string, data []byte, contentType string, metadata map[string]string) *MockBuilder {
	b.objects[key] = CreateHeadObjectOutput(data, contentType, metadata)
	return b
}

// WithMissingBucket makes HeadBucket report NotFound.
func (b *MockBuilder) WithMissingBucket() *MockBuilder {
	b.client.HeadBucketFunc = func(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
		return nil, &types.NotFound{}
	}
	return b
}

// WithSuccessfulUpload consumes PutObject bodies and hands them to sink.
func (b *MockBuilder) WithSuccessfulUpload(sink func(key string, body []byte)) *MockBuilder {
	b.client.PutObjectFunc = func(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		var body []byte
		if in.Body != nil {
			data, err := io.ReadAll(in.Body)
			if err != nil {
				return nil, err
			}
			body = data
		}
		if sink != nil {
			sink(aws.ToString(in.Key), body)
		}
		return &s3.PutObjectOutput{ETag: aws.String(CalculateETag(body))}, nil
	}
	return b
}

// WithFailedUpload configures PutObject to always fail with err.
func (b *MockBuilder) WithFailedUpload(err error) *MockBuilder {
	b.client.PutObjectFunc = func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, err
	}
	return b
}

// WithMultipartUpload configures a happy-path multipart upload.
func (b *MockBuilder) WithMultipartUpload() *MockBuilder {
	b.client.CreateMultipartUploadFunc = func(_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
		return &s3.CreateMultipartUploadOutput{UploadId: aws.String("test-upload-id"), Bucket: in.Bucket, Key: in.Key}, nil
	}
	b.client.UploadPartFunc = func(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
		var body []byte
		if in.Body != nil {
			body, _ = io.ReadAll(in.Body)
		}
		return &s3.UploadPartOutput{ETag: aws.String(CalculateETag(body))}, nil
	}
	b.client.CompleteMultipartUploadFunc = func(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
		return &s3.CompleteMultipartUploadOutput{ETag: aws.String(`"multipart-etag"`), Bucket: in.Bucket, Key: in.Key}, nil
	}
	b.client.AbortMultipartUploadFunc = func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
		return &s3.AbortMultipartUploadOutput{}, nil
	}
	return b
}

// WithAccessDenied makes every object and bucket call fail with AccessDenied.
func (b *MockBuilder) WithAccessDenied() *MockBuilder {
	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}

	b.client.HeadBucketFunc = func(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
		return nil, denied
	}
	b.client.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, denied
	}
	b.client.PutObjectFunc = func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, denied
	}
	b.client.CopyObjectFunc = func(context.Context, *s3.CopyObjectInput, ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
		return nil, denied
	}
	return b
}
