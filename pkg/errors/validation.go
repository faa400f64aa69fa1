package errors

import (
	"strings"
	"unicode"
)

// maxIDLength bounds cluster, subcluster, model and filter ids accepted from
// untrusted callers such as HTTP path parameters.
const maxIDLength = 256

// ValidateID checks an entity id received from outside the process.
//
// Rules:
//   - not empty and at most 256 bytes
//   - no control characters or null bytes
//   - no path separators, so ids are safe inside store keys and file names
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "id cannot be empty")
	}
	if len(id) > maxIDLength {
		return New(ErrCodeInvalidID, "id too long (max %d characters)", maxIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "id contains invalid control characters")
		}
	}
	if strings.ContainsAny(id, "/\\") {
		return New(ErrCodeInvalidID, "id cannot contain path separators")
	}
	return nil
}

// ValidateKeyPrefix checks a store key prefix from configuration.
// Prefixes may contain ':' separators but no whitespace or control characters.
func ValidateKeyPrefix(prefix string) error {
	if len(prefix) > 128 {
		return New(ErrCodeInvalidConfig, "store prefix too long (max 128 characters)")
	}
	for _, r := range prefix {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidConfig, "store prefix contains whitespace or control characters")
		}
	}
	return nil
}

// ValidatePath validates a relative data path (dataset files, store dirs
// given through the API) for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	return nil
}
