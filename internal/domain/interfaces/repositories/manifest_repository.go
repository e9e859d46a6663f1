// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// ManifestRepository defines the interface for reading dependency manifests
type ManifestRepository interface {
	// GetManifest reads and parses the manifest at path
	GetManifest(ctx context.Context, path string) (*entities.Manifest, error)
}

// EnvironmentRepository defines the interface for build environment profiles
type EnvironmentRepository interface {
	// GetProfile loads a profile by file path or profile name
	GetProfile(ctx context.Context, ref string) (*entities.BuildEnvironment, error)

	// ListProfiles returns the available profile names
	ListProfiles(ctx context.Context) ([]string, error)
}
