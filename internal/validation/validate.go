package validation

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
)

const (
	minContainerNameLength = 3
	maxContainerNameLength = 63
	maxObjectKeyLength     = 1024
	maxMetadataKeyLength   = 128
	maxMetadataValueLength = 2048
)

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+\-]*/[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+\-]*(\s*;.*)?$`)

// ValidateContainerName validates that a container name is DNS-compliant.
// The rules are the intersection of S3 bucket and blob container naming so a
// name accepted here works with every supported backend.
func ValidateContainerName(container string) error {
	fail := func(msg string) error {
		return errors.NewError("validateContainerName", errors.ErrInvalidContainerName).
			WithContainer(container).
			WithCode(errors.CodeInvalidConfig).
			WithMessage(msg)
	}

	if container == "" {
		return fail("container name cannot be empty")
	}
	if len(container) < minContainerNameLength || len(container) > maxContainerNameLength {
		return fail(fmt.Sprintf("container name must be between %d and %d characters long",
			minContainerNameLength, maxContainerNameLength))
	}
	for _, r := range container {
		if !isContainerChar(r) {
			return fail("container name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}
	first, last := container[0], container[len(container)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return fail("container name must start and end with a letter or number")
	}
	if strings.Contains(container, "..") || strings.Contains(container, "--") ||
		strings.Contains(container, ".-") || strings.Contains(container, "-.") {
		return fail("container name cannot contain adjacent dots or hyphens")
	}
	if isIPv4(container) {
		return fail("container name cannot be formatted as an IP address")
	}
	return nil
}

// ValidateObjectKey validates that an object key is safe to send to the store.
// Keys must be relative, slash-separated and free of traversal segments.
func ValidateObjectKey(key string) error {
	fail := func(msg string) error {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage(msg)
	}

	if key == "" {
		return fail("object key cannot be empty")
	}
	if len(key) > maxObjectKeyLength {
		return fail(fmt.Sprintf("object key cannot exceed %d bytes", maxObjectKeyLength))
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fail("object key must be a relative slash-separated path")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return fail("object key cannot contain path traversal segments")
		}
	}
	if path.Clean(key) != key {
		return fail("object key must not contain empty segments or a trailing slash")
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return fail("object key cannot contain control characters")
		}
	}
	return nil
}

// ValidateMetadata validates user metadata keys and values.
// Keys must be header-safe ASCII; values may not contain control characters.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if key == "" {
			return errors.NewValidationError("metadata key cannot be empty")
		}
		if len(key) > maxMetadataKeyLength {
			return errors.NewValidationError(fmt.Sprintf("metadata key %q exceeds %d characters", key, maxMetadataKeyLength))
		}
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "x-amz-") || strings.HasPrefix(lower, "x-ms-") {
			return errors.NewValidationError(fmt.Sprintf("metadata key %q uses a reserved prefix", key))
		}
		for _, r := range key {
			if r <= ' ' || r > '~' {
				return errors.NewValidationError(fmt.Sprintf("metadata key %q must be printable ASCII without spaces", key))
			}
		}
		if len(value) > maxMetadataValueLength {
			return errors.NewValidationError(fmt.Sprintf("metadata value for %q exceeds %d characters", key, maxMetadataValueLength))
		}
		for _, r := range value {
			if unicode.IsControl(r) {
				return errors.NewValidationError(fmt.Sprintf("metadata value for %q contains control characters", key))
			}
		}
	}
	return nil
}

// ValidateContentType validates a caller-supplied MIME type.
// Empty is allowed and means auto-detect.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	if !mimePattern.MatchString(contentType) {
		return errors.NewValidationError(fmt.Sprintf("content type %q is not a valid MIME type", contentType))
	}
	return nil
}

// ValidateContentEncoding validates an optional content encoding token.
func ValidateContentEncoding(encoding string) error {
	for _, r := range encoding {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == ',' || r == ' ') || r > unicode.MaxASCII {
			return errors.NewValidationError(fmt.Sprintf("content encoding %q contains invalid characters", encoding))
		}
	}
	return nil
}

func isContainerChar(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || r == '.' || r == '-'
}

func isIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		n := 0
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}
