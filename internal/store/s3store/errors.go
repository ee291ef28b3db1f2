package s3store

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"

	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
)

// apiErrorSentinels maps S3 API error codes to sentinel errors.
var apiErrorSentinels = map[string]error{
	"NotFound":              errors.ErrObjectNotFound,
	"NoSuchKey":             errors.ErrObjectNotFound,
	"NoSuchBucket":          errors.ErrContainerNotFound,
	"NoSuchUpload":          errors.ErrNotFinalized,
	"AccessDenied":          errors.ErrAccessDenied,
	"Forbidden":             errors.ErrAccessDenied,
	"InvalidAccessKeyId":    errors.ErrAccessDenied,
	"SignatureDoesNotMatch": errors.ErrAccessDenied,
	"InvalidBucketName":     errors.ErrInvalidContainerName,
	"KeyTooLongError":       errors.ErrInvalidObjectKey,
	"SlowDown":              errors.ErrTooManyRequests,
	"Throttling":            errors.ErrTooManyRequests,
	"TooManyRequests":       errors.ErrTooManyRequests,
	"RequestLimitExceeded":  errors.ErrTooManyRequests,
	"RequestTimeout":        errors.ErrTransient,
	"InternalError":         errors.ErrTransient,
	"ServiceUnavailable":    errors.ErrTransient,
	"BadDigest":             errors.ErrTransient,
	"IncompleteBody":        errors.ErrTransient,
}

// translate wraps an SDK error with operation context and the matching sentinel.
func translate(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewObjectError(op, bucket, key, err)
	}

	var sentinel error
	var apiErr smithy.APIError
	var netErr net.Error
	switch {
	case stderrors.As(err, &apiErr):
		sentinel = apiErrorSentinels[apiErr.ErrorCode()]
	case stderrors.As(err, &netErr):
		sentinel = errors.ErrTransient
	}
	if sentinel == nil {
		return errors.NewObjectError(op, bucket, key, err)
	}
	return errors.NewObjectError(op, bucket, key, fmt.Errorf("%w: %w", sentinel, err))
}

// isNotFound reports whether err is a HeadObject or HeadBucket 404.
func isNotFound(err error) bool {
	var nf *awstypes.NotFound
	var nsb *awstypes.NoSuchBucket
	if stderrors.As(err, &nf) || stderrors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket", "NoSuchKey":
			return true
		}
	}
	return false
}

// isAlreadyOwned reports whether a CreateBucket error means the bucket is already ours.
func isAlreadyOwned(err error) bool {
	var owned *awstypes.BucketAlreadyOwnedByYou
	if stderrors.As(err, &owned) {
		return true
	}
	var apiErr smithy.APIError
	return stderrors.As(err, &apiErr) && apiErr.ErrorCode() == "BucketAlreadyOwnedByYou"
}
