// Package transfer provides functional options for configuring the Writer.
// These options follow the functional options pattern for clean, composable
// configuration.
package transfer

import (
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/rs/zerolog"
)

// Transfer size constants. Both are protocol-facing and overridable per
// backend through options rather than compiled in.
const (
	// DefaultSimpleThreshold is the largest payload uploaded in a single
	// request (4 MiB). Payloads at or below the threshold take the
	// single-shot path; the comparison is inclusive.
	DefaultSimpleThreshold int64 = 4 * 1024 * 1024

	// DefaultChunkFactor is the chunk alignment unit (320 KiB). Session
	// protocols reject byte ranges that are not a multiple of this factor,
	// so every non-final chunk length must be an exact multiple of it.
	DefaultChunkFactor int64 = 327_680

	// DefaultContentType is used when content type detection fails
	DefaultContentType = "application/octet-stream"
)

// Conflict-resolution directives for session creation.
const (
	// ConflictReplace overwrites an existing object (default)
	ConflictReplace = "replace"

	// ConflictRename stores the object under a provider-chosen new name
	ConflictRename = "rename"

	// ConflictFail rejects the write if the object already exists
	ConflictFail = "fail"
)

// Config holds the Writer's configuration, populated through functional
// options.
type Config struct {
	// SimpleThreshold is the inclusive single-shot size boundary in bytes
	SimpleThreshold int64

	// ChunkFactor is the chunk alignment unit in bytes; every non-final
	// chunk is exactly this long
	ChunkFactor int64

	// ContentType is the declared content type; empty means sniff from the
	// payload
	ContentType string

	// ConflictBehavior is the conflict-resolution directive sent at session
	// creation
	ConflictBehavior string

	// Tracker receives progress callbacks, when set
	Tracker ProgressTracker

	// Logger receives debug-level engine events; defaults to a no-op logger
	Logger zerolog.Logger

	// Filesystem is the filesystem abstraction used by WriteFile
	Filesystem fs.Filesystem
}

// Option is a functional option for configuring a Writer.
type Option func(*Config)

// WithSimpleThreshold sets the inclusive size boundary below which a write is
// performed as a single request. Must be positive.
func WithSimpleThreshold(threshold int64) Option {
	return func(c *Config) {
		c.SimpleThreshold = threshold
	}
}

// WithChunkFactor sets the chunk alignment unit for the session protocol.
// Must be positive and match the protocol's alignment requirement; ranges that
// are not a multiple of the factor are rejected by real backends.
func WithChunkFactor(factor int64) Option {
	return func(c *Config) {
		c.ChunkFactor = factor
	}
}

// WithContentType sets the declared content type for the write. If not
// specified, the content type is sniffed from the payload.
func WithContentType(contentType string) Option {
	return func(c *Config) {
		c.ContentType = contentType
	}
}

// WithConflictBehavior sets the conflict-resolution directive sent at session
// creation. Default is ConflictReplace.
func WithConflictBehavior(behavior string) Option {
	return func(c *Config) {
		c.ConflictBehavior = behavior
	}
}

// WithProgress sets a progress tracker for the write.
func WithProgress(tracker ProgressTracker) Option {
	return func(c *Config) {
		c.Tracker = tracker
	}
}

// WithLogger sets the logger the engine emits debug events to.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithFilesystem sets a custom filesystem implementation for WriteFile.
// This allows using in-memory filesystems for testing or virtual filesystems.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem fs.Filesystem) Option {
	return func(c *Config) {
		c.Filesystem = filesystem
	}
}
