package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/interfaces/repositories"
)

// ProfileExt is the file extension of environment profiles
const ProfileExt = ".yml"

// EnvironmentRepository resolves build environment profiles by name or path
type EnvironmentRepository struct {
	profilesDir string
	parser      *EnvironmentParser
}

var _ repositories.EnvironmentRepository = (*EnvironmentRepository)(nil)

// NewEnvironmentRepository creates a repository rooted at profilesDir
func NewEnvironmentRepository(profilesDir string) *EnvironmentRepository {
	return &EnvironmentRepository{
		profilesDir: profilesDir,
		parser:      NewEnvironmentParser(),
	}
}

// GetProfile loads a profile. ref is either a file path or the name of a
// profile in the profiles directory ("linux-cross" for linux-cross.yml).
func (r *EnvironmentRepository) GetProfile(_ context.Context, ref string) (*entities.BuildEnvironment, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return r.parser.ParseFile(ref)
	}

	if strings.ContainsAny(ref, `/\`) {
		return nil, fmt.Errorf("%w: environment profile not found: %s", entities.ErrEnvironment, ref)
	}

	filePath := filepath.Join(r.profilesDir, ref+ProfileExt)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: environment profile not found: %s", entities.ErrEnvironment, ref)
	}

	return r.parser.ParseFile(filePath)
}

// ListProfiles returns the profile names available in the profiles directory
func (r *EnvironmentRepository) ListProfiles(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.profilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	names := make([]string, 0)
	for _, entry := range entries {
		// Skip non-YAML files
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ProfileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ProfileExt))
	}

	return names, nil
}
