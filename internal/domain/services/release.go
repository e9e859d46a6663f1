package services

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Platform is a release platform identifier such as "linux-x86_64"
type Platform string

// DefaultReleasePlatforms are the targets a full release is expected to cover
var DefaultReleasePlatforms = []Platform{
	"linux-x86_64",
	"linux-cross-aarch64",
	"linux-cross-arm",
	"linux-cross-x86",
	"windows-x86_64",
	"windows-x86",
	"windows-aarch64",
	"macos-x86_64",
	"macos-aarch64",
}

// ArchiveSuffix is the extension of release archives
const ArchiveSuffix = ".tar.gz"

// ReleaseStatus represents the readiness status of a release
type ReleaseStatus string

// Release validation statuses
const (
	StatusReady               ReleaseStatus = "ready"
	StatusNoArtifacts         ReleaseStatus = "no_artifacts"
	StatusPlatformMismatch    ReleaseStatus = "platform_mismatch"
	StatusUnexpectedPlatforms ReleaseStatus = "unexpected_platforms"
	StatusMissingChecksums    ReleaseStatus = "missing_checksums"
)

// ReleaseValidation contains the validation result for a release
type ReleaseValidation struct {
	Status              ReleaseStatus
	ExpectedPlatforms   []Platform
	AvailablePlatforms  []Platform
	MissingPlatforms    []Platform
	UnexpectedPlatforms []Platform
	MissingChecksums    []Platform
	ExpectedCount       int
	AvailableCount      int
}

// IsReady returns true if the release is complete
func (rv *ReleaseValidation) IsReady() bool {
	return rv.Status == StatusReady
}

// ErrorMessage returns a human-readable error message if not ready
func (rv *ReleaseValidation) ErrorMessage() string {
	switch rv.Status {
	case StatusReady:
		return ""
	case StatusNoArtifacts:
		return fmt.Sprintf("No archives found (expected: %d platforms)", rv.ExpectedCount)
	case StatusPlatformMismatch:
		msg := fmt.Sprintf("Platform count mismatch (expected: %d, have: %d)", rv.ExpectedCount, rv.AvailableCount)
		if len(rv.MissingPlatforms) > 0 {
			msg += fmt.Sprintf("\n   Missing: %s", platformsToString(rv.MissingPlatforms))
		}
		if len(rv.UnexpectedPlatforms) > 0 {
			msg += fmt.Sprintf("\n   Unexpected: %s", platformsToString(rv.UnexpectedPlatforms))
		}
		return msg
	case StatusUnexpectedPlatforms:
		return fmt.Sprintf("Unexpected platforms found: %s", platformsToString(rv.UnexpectedPlatforms))
	case StatusMissingChecksums:
		return fmt.Sprintf("Archives without .sha256 sidecar: %s", platformsToString(rv.MissingChecksums))
	default:
		return "Unknown status"
	}
}

// ReleaseService handles release validation logic
type ReleaseService struct {
	projectName string
}

// NewReleaseService creates a new release service for the named project
func NewReleaseService(projectName string) *ReleaseService {
	return &ReleaseService{projectName: projectName}
}

// ArchiveName returns the release archive file name for version and platform
func (s *ReleaseService) ArchiveName(version string, platform Platform) string {
	return fmt.Sprintf("%s-%s-%s%s", s.projectName, strings.TrimPrefix(version, "v"), platform, ArchiveSuffix)
}

// ValidateRelease checks that every expected platform has an archive and a checksum sidecar
func (s *ReleaseService) ValidateRelease(version string, expected []Platform, artifactPaths []string) *ReleaseValidation {
	validation := &ReleaseValidation{}

	validation.ExpectedPlatforms = expected
	validation.ExpectedCount = len(expected)

	var checksummed []Platform
	validation.AvailablePlatforms, checksummed = s.extractAvailablePlatforms(version, artifactPaths)
	validation.AvailableCount = len(validation.AvailablePlatforms)

	validation.MissingPlatforms = difference(validation.ExpectedPlatforms, validation.AvailablePlatforms)
	validation.UnexpectedPlatforms = difference(validation.AvailablePlatforms, validation.ExpectedPlatforms)
	validation.MissingChecksums = difference(validation.AvailablePlatforms, checksummed)

	switch {
	case validation.AvailableCount == 0:
		validation.Status = StatusNoArtifacts
	case validation.AvailableCount != validation.ExpectedCount || len(validation.MissingPlatforms) > 0:
		validation.Status = StatusPlatformMismatch
	case len(validation.UnexpectedPlatforms) > 0:
		validation.Status = StatusUnexpectedPlatforms
	case len(validation.MissingChecksums) > 0:
		validation.Status = StatusMissingChecksums
	default:
		validation.Status = StatusReady
	}

	return validation
}

// extractAvailablePlatforms extracts platforms from archive names.
// Expected format: <project>-<version>-<platform>.tar.gz[.sha256]
func (s *ReleaseService) extractAvailablePlatforms(version string, artifactPaths []string) (archives, checksums []Platform) {
	expectedPrefix := fmt.Sprintf("%s-%s-", s.projectName, strings.TrimPrefix(version, "v"))
	archiveSet := make(map[Platform]bool)
	checksumSet := make(map[Platform]bool)

	for _, path := range artifactPaths {
		basename := filepath.Base(path)
		if !strings.HasPrefix(basename, expectedPrefix) {
			continue
		}
		rest := strings.TrimPrefix(basename, expectedPrefix)

		switch {
		case strings.HasSuffix(rest, ArchiveSuffix+".sha256"):
			p := Platform(strings.TrimSuffix(rest, ArchiveSuffix+".sha256"))
			if s.isValidPlatform(p) {
				checksumSet[p] = true
			}
		case strings.HasSuffix(rest, ArchiveSuffix):
			p := Platform(strings.TrimSuffix(rest, ArchiveSuffix))
			if s.isValidPlatform(p) {
				archiveSet[p] = true
			}
		}
	}

	return sortedPlatforms(archiveSet), sortedPlatforms(checksumSet)
}

// isValidPlatform checks that a platform identifier parses as a target
func (s *ReleaseService) isValidPlatform(platform Platform) bool {
	_, err := ParseTarget(string(platform))
	return err == nil
}

// ParsePlatforms converts a comma-separated list into platforms, validating each
func ParsePlatforms(list string) ([]Platform, error) {
	var platforms []Platform
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, err := ParseTarget(item); err != nil {
			return nil, err
		}
		platforms = append(platforms, Platform(item))
	}
	return platforms, nil
}

// difference returns the platforms of a that are not in b
func difference(a, b []Platform) []Platform {
	var out []Platform
	for _, p := range a {
		if !slices.Contains(b, p) {
			out = append(out, p)
		}
	}
	return out
}

func sortedPlatforms(set map[Platform]bool) []Platform {
	platforms := make([]Platform, 0, len(set))
	for p := range set {
		platforms = append(platforms, p)
	}
	slices.Sort(platforms)
	return platforms
}

// platformsToString converts a slice of platforms to a comma-separated string
func platformsToString(platforms []Platform) string {
	strs := make([]string, len(platforms))
	for i, p := range platforms {
		strs[i] = string(p)
	}
	return strings.Join(strs, ", ")
}
