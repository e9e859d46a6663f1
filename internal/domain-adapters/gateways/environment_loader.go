package gateways

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/interfaces"
	"github.com/meator/android-tools-static/internal/domain/interfaces/repositories"
	"github.com/meator/android-tools-static/internal/domain/services"
	"github.com/meator/android-tools-static/internal/external-adapters/toolversion"
	"github.com/meator/android-tools-static/internal/external-adapters/sourcetree"
	"github.com/meator/android-tools-static/internal/external-adapters/versioninfo"
)

// FakeVersion replaces every queried version when real tools are unavailable.
// Documents carrying it are marked with the design lifecycle.
const FakeVersion = "invalid_version_this_SBOM_is_invalid"

// versionRunner runs a version command
type versionRunner interface {
	Version(ctx context.Context, command, prefix string) (string, error)
}

// environmentLoader merges the profile, version info and source tree facts
// into one build environment
type environmentLoader struct {
	profiles repositories.EnvironmentRepository
	runner   versionRunner
	logger   interfaces.Logger
}

// NewEnvironmentLoader creates a loader backed by the given profile repository
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewEnvironmentLoader(profiles repositories.EnvironmentRepository, logger interfaces.Logger) *environmentLoader {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &environmentLoader{
		profiles: profiles,
		runner:   toolversion.NewCommandRunner(),
		logger:   logger,
	}
}

// Load builds the environment described by req. Every extra in the result
// has a literal version.
func (l *environmentLoader) Load(ctx context.Context, req entities.EnvironmentRequest) (*entities.BuildEnvironment, error) {
	env := &entities.BuildEnvironment{}
	if req.Profile != "" {
		profile, err := l.profiles.GetProfile(ctx, req.Profile)
		if err != nil {
			if names, listErr := l.profiles.ListProfiles(ctx); listErr == nil && len(names) > 0 {
				l.logger.Info("Available environment profiles", interfaces.F("profiles", strings.Join(names, ", ")))
			}
			return nil, err
		}
		env = profile
		l.logger.Debug("Loaded environment profile", interfaces.F("profile", req.Profile))
	}

	if req.VersionInfoPath != "" {
		extras, err := versioninfo.ReadFile(req.VersionInfoPath)
		if err != nil {
			return nil, err
		}
		if err := mergeExtras(env, extras); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded version info", interfaces.F("path", req.VersionInfoPath), interfaces.F("entries", len(extras)))
	}

	if req.SourceDir != "" {
		if err := l.loadSourceTree(ctx, env, req); err != nil {
			return nil, err
		}
	} else if req.NmeumPatches != "" || req.PortPatches != "" {
		return nil, fmt.Errorf("%w: patch series need a source directory", entities.ErrEnvironment)
	}

	if err := l.queryExtras(ctx, env, req.FakeVersions); err != nil {
		return nil, err
	}
	return env, nil
}

func (l *environmentLoader) loadSourceTree(ctx context.Context, env *entities.BuildEnvironment, req entities.EnvironmentRequest) error {
	gitExe := req.GitExe
	if gitExe == "" {
		gitExe = "git"
	}

	if len(env.Submodules) > 0 {
		l.logger.Debug("Submodules pinned by the profile take precedence over the source tree")
	} else {
		submodules, err := sourcetree.ReadSubmodules(ctx, gitExe, req.SourceDir)
		if err != nil {
			return err
		}
		env.Submodules = submodules
	}

	link, err := repoLink(ctx, gitExe, req)
	if err != nil {
		return err
	}

	if req.Manifest != nil {
		for _, entry := range req.Manifest.Entries {
			switch {
			case isWrapCandidate(entry, env.BundledLibusb):
				w, err := l.loadWrap(ctx, gitExe, req.SourceDir, entry.Name, link)
				if err != nil {
					return err
				}
				env.Wraps = append(env.Wraps, w)
			case hasOrigin(entry, entities.OriginPrebuilt):
				if err := requireWrapFile(req.SourceDir, entry.Name); err != nil {
					return err
				}
				archive, err := sourcetree.ReadArchiveWrap(req.SourceDir, entry.Name)
				if err != nil {
					return err
				}
				env.Archives = append(env.Archives, archive)
			}
		}
	}

	if req.NmeumPatches != "" || req.PortPatches != "" {
		if err := l.loadPatchSeries(ctx, env, gitExe, req, link); err != nil {
			return err
		}
	}

	if env.BaseVersions.Nmeum == "" && env.BaseVersions.MSYS2 == "" {
		if _, err := os.Stat(filepath.Join(req.SourceDir, "base_versions.ini")); err == nil {
			base, err := sourcetree.ReadBaseVersions(req.SourceDir)
			if err != nil {
				return err
			}
			env.BaseVersions = base
		}
	}
	return nil
}

// loadWrap reads a wrapdb wrap and verifies its local patches
func (l *environmentLoader) loadWrap(ctx context.Context, gitExe, sourceDir, name string, link *services.RepoLink) (entities.WrapInfo, error) {
	if err := requireWrapFile(sourceDir, name); err != nil {
		return entities.WrapInfo{}, err
	}
	w, err := sourcetree.ReadWrap(sourceDir, name)
	if err != nil {
		return entities.WrapInfo{}, err
	}

	patches, err := sourcetree.WrapPatches(ctx, gitExe, sourceDir, w)
	if err != nil {
		return entities.WrapInfo{}, err
	}
	for i := range patches {
		if issue, ok := services.KnownPatchIssue(w.DiffFiles[i]); ok {
			patches[i].Issue = &issue
		} else {
			l.logger.Warn("Unknown wrap patch, no issue is recorded for it",
				interfaces.F("wrap", name), interfaces.F("patch", patches[i].Path))
		}
		if link != nil {
			patches[i].URL = link.URL(patches[i].Path)
		}
	}
	w.Patches = patches
	l.logger.Debug("Read wrap", interfaces.F("name", name), interfaces.F("patches", len(patches)))
	return w, nil
}

// loadPatchSeries verifies the patch series against the vendored submodules
// and records them as commits
func (l *environmentLoader) loadPatchSeries(
	ctx context.Context,
	env *entities.BuildEnvironment,
	gitExe string,
	req entities.EnvironmentRequest,
	link *services.RepoLink,
) error {
	var nmeum, port []string
	var err error
	if req.NmeumPatches != "" {
		if nmeum, err = sourcetree.ReadPatchSeries(req.NmeumPatches); err != nil {
			return err
		}
	}
	if req.PortPatches != "" {
		if port, err = sourcetree.ReadPatchSeries(req.PortPatches); err != nil {
			return err
		}
	}

	// nmeum patches sit below the port's own patches in every submodule
	var order []string
	bySubmodule := make(map[string][]string)
	for _, p := range append(slices.Clone(nmeum), port...) {
		name := sourcetree.SeriesSubmodule(p)
		if _, seen := bySubmodule[name]; !seen {
			order = append(order, name)
		}
		bySubmodule[name] = append(bySubmodule[name], filepath.Join(req.SourceDir, sourcetree.PatchesDir, filepath.FromSlash(p)))
	}
	for _, name := range order {
		repoDir := filepath.Join(req.SourceDir, "vendor", name)
		if err := sourcetree.VerifySubmodulePatches(ctx, gitExe, repoDir, bySubmodule[name]); err != nil {
			return err
		}
		l.logger.Debug("Verified submodule patches", interfaces.F("submodule", name), interfaces.F("patches", len(bySubmodule[name])))
	}

	if env.NmeumCommits, err = seriesCommits(req.SourceDir, nmeum, link); err != nil {
		return err
	}
	if env.PortCommits, err = seriesCommits(req.SourceDir, port, link); err != nil {
		return err
	}
	return nil
}

func seriesCommits(sourceDir string, series []string, link *services.RepoLink) ([]entities.Commit, error) {
	commits := make([]entities.Commit, 0, len(series))
	for _, p := range series {
		rel := sourcetree.PatchesDir + "/" + p
		commit, err := sourcetree.ReadFormatPatch(filepath.Join(sourceDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		if link != nil {
			commit.URL = link.URL(rel)
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// repoLink builds the link template of req. ${ref} defaults to the HEAD of
// the source tree.
func repoLink(ctx context.Context, gitExe string, req entities.EnvironmentRequest) (*services.RepoLink, error) {
	if req.RepoLink == "" {
		return nil, nil
	}
	ref := req.RepoLinkRef
	if ref == "" && strings.Contains(req.RepoLink, "${ref}") {
		head, err := sourcetree.HeadCommit(ctx, gitExe, req.SourceDir)
		if err != nil {
			return nil, err
		}
		ref = head
	}
	return services.NewRepoLink(req.RepoLink, ref)
}

func requireWrapFile(sourceDir, name string) error {
	wrapPath := filepath.Join(sourceDir, "subprojects", name+".wrap")
	if _, err := os.Stat(wrapPath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: subproject %q has no wrap file %s", entities.ErrEnvironment, name, wrapPath)
	}
	return nil
}

// queryExtras replaces every command-based extra with the version it reports
func (l *environmentLoader) queryExtras(ctx context.Context, env *entities.BuildEnvironment, fake bool) error {
	for i := range env.Extras {
		x := &env.Extras[i]
		if x.Command == "" {
			continue
		}
		if fake {
			x.Version = FakeVersion
		} else {
			version, err := l.runner.Version(ctx, x.Command, x.Prefix)
			if err != nil {
				return fmt.Errorf("failed to query the version of %s: %w", x.Name, err)
			}
			x.Version = version
			l.logger.Debug("Queried version", interfaces.F("name", x.Name), interfaces.F("version", version))
		}
		x.Command = ""
		x.Prefix = ""
	}
	return nil
}

// mergeExtras adds extras to env; a name present in both must agree
func mergeExtras(env *entities.BuildEnvironment, extras []entities.ExtraDependency) error {
	for _, x := range extras {
		existing, ok := env.Extra(x.Name)
		if !ok {
			env.Extras = append(env.Extras, x)
			continue
		}
		if existing.Command == "" && existing.Version != x.Version {
			return fmt.Errorf("%w: %s is %s in the profile and %s in the version info",
				entities.ErrConflictingVersion, x.Name, existing.Version, x.Version)
		}
	}
	return nil
}

// isWrapCandidate reports whether entry may resolve to a Meson wrap. With
// bundled libusb the submodule is preferred, as the resolver does.
func isWrapCandidate(entry entities.ManifestEntry, bundledLibusb bool) bool {
	if entry.Origin != entities.OriginUnspecified && entry.Origin != entities.OriginWrap {
		return false
	}
	if entry.Origin == entities.OriginUnspecified && bundledLibusb && hasOrigin(entry, entities.OriginSubmodule) {
		return false
	}
	return hasOrigin(entry, entities.OriginWrap)
}

// hasOrigin reports whether a catalog entry of origin answers to entry
func hasOrigin(entry entities.ManifestEntry, origin entities.Origin) bool {
	if entry.Origin != entities.OriginUnspecified && entry.Origin != origin {
		return false
	}
	for _, key := range services.FindByManifestName(entry.Name) {
		catalogEntry, err := services.CatalogEntryFor(key)
		if err == nil && catalogEntry.Origin == origin {
			return true
		}
	}
	return false
}
