package entities

import "errors"

// Error kinds. Every one of them aborts generation.
var (
	ErrManifestParse       = errors.New("malformed dependency manifest")
	ErrUnknownKey          = errors.New("dependency is not registered")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrConflictingVersion  = errors.New("conflicting dependency versions")
	ErrBrokenReference     = errors.New("broken cross-reference")
	ErrEnvironment         = errors.New("invalid build environment")
	ErrSchemaViolation     = errors.New("document violates schema")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrSignature           = errors.New("signature verification failed")
)
