package gateways

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/services"
)

// releaseScanner locates release archives and checks their sidecars
type releaseScanner struct {
	projectName string
	checksums   *services.ChecksumService
}

// NewReleaseScanner creates a scanner for the named project
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewReleaseScanner(projectName string) *releaseScanner {
	return &releaseScanner{
		projectName: projectName,
		checksums:   services.NewChecksumService(),
	}
}

// FindArtifacts lists the archives and .sha256 sidecars of one version in dir
func (s *releaseScanner) FindArtifacts(dir, version string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("artifacts directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	versionClean := strings.TrimPrefix(version, "v")
	patterns := []string{
		fmt.Sprintf("%s-%s-*%s", s.projectName, versionClean, services.ArchiveSuffix),
		fmt.Sprintf("%s-%s-*%s%s", s.projectName, versionClean, services.ArchiveSuffix, services.ChecksumSuffix),
	}

	var artifacts []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		artifacts = append(artifacts, matches...)
	}
	return artifacts, nil
}

// VerifyChecksums checks every archive in paths that has a sidecar next to it.
// All failures are joined so one run reports every broken archive.
func (s *releaseScanner) VerifyChecksums(paths []string) error {
	present := make(map[string]bool, len(paths))
	for _, p := range paths {
		present[p] = true
	}

	var errs []error
	for _, p := range paths {
		if !strings.HasSuffix(p, services.ArchiveSuffix) || !present[p+services.ChecksumSuffix] {
			continue
		}
		if err := s.checksums.VerifySidecar(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
