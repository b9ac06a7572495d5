// Package validation provides centralized input validation logic for remote
// object paths.
//
// Paths are validated before any network request so malformed targets fail
// fast with a configuration error instead of a provider rejection.
package validation

import (
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
)

// maxPathLength is the longest remote path accepted, in bytes.
const maxPathLength = 1024

// ValidatePath validates a remote object path. A valid path is non-empty, has
// an extractable file name, stays within the length limit, and contains no
// traversal sequences or control characters.
func ValidatePath(path string) error {
	if path == "" {
		return errors.NewError("validatePath", errors.ErrInvalidPath).
			WithMessage("path cannot be empty")
	}

	if len(path) > maxPathLength {
		return errors.NewPathError("validatePath", path, errors.ErrInvalidPath).
			WithMessage("path cannot exceed 1024 characters")
	}

	if hasPathTraversal(path) {
		return errors.NewPathError("validatePath", path, errors.ErrInvalidPath).
			WithMessage("path cannot contain traversal sequences")
	}

	if hasControlCharacters(path) {
		return errors.NewPathError("validatePath", path, errors.ErrInvalidPath).
			WithMessage("path cannot contain control characters")
	}

	if FileName(path) == "" {
		return errors.NewPathError("validatePath", path, errors.ErrInvalidPath).
			WithMessage("path has no extractable file name")
	}

	return nil
}

// FileName returns the last segment of a remote path, or "" when the path
// names a container.
func FileName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// hasPathTraversal reports whether any path segment is "." or "..".
func hasPathTraversal(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if segment == "." || segment == ".." {
			return true
		}
	}
	return false
}

// hasControlCharacters reports whether the path contains control characters.
func hasControlCharacters(path string) bool {
	for _, r := range path {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
