package storage

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	ErrInvalidConfig = errors.New("storage: invalid configuration")
	ErrNotFound      = errors.New("storage: object not found")
	ErrAccessDenied  = errors.New("storage: access denied")
	ErrTooLarge      = errors.New("storage: object exceeds size limit")
	ErrReadFailed    = errors.New("storage: read failed")
)

// wrapS3Error maps S3 failures onto the package sentinels. The original error
// is formatted with %v so callers match on sentinels, not AWS types.
func wrapS3Error(err error, fallback error) error {
	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}
	return fmt.Errorf("%w: %v", fallback, err)
}
