package services

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// Submodules present in the source tree that no build consumes.
// fmtlib is superseded by the fmt wrap.
var ignoredSubmodules = map[string]bool{"fmtlib": true}

var wrapRevision = regexp.MustCompile(`^-[0-9]+$`)

// Resolver composes manifest entries and build environment facts into the
// ordered list of dependencies of one build.
type Resolver struct{}

// NewResolver creates a new resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve maps every manifest entry, submodule and platform extra to a
// registry key. Components keep manifest order, followed by submodules,
// the runner and the entry point's extras in declaration order.
func (r *Resolver) Resolve(
	manifest *entities.Manifest,
	target entities.Target,
	env *entities.BuildEnvironment,
	root entities.RootComponent,
) (*entities.Resolution, error) {
	ep, err := EntryPointFor(target)
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = &entities.BuildEnvironment{}
	}

	res := &entities.Resolution{Target: target, Root: root}
	index := make(map[entities.Key]int)

	add := func(dep entities.ResolvedDependency) error {
		i, exists := index[dep.Key]
		if !exists {
			index[dep.Key] = len(res.Dependencies)
			res.Dependencies = append(res.Dependencies, dep)
			return nil
		}
		return mergeDependency(&res.Dependencies[i], dep)
	}

	// Step 1: generic manifest entries, in manifest order
	for _, entry := range manifest.Entries {
		if entry.Name == root.Name {
			res.Root.Version = entry.Version
			res.Root.Licenses = entry.Licenses
			continue
		}
		dep, err := r.resolveManifestEntry(entry, target, env)
		if err != nil {
			return nil, err
		}
		if err := add(dep); err != nil {
			return nil, err
		}
	}

	if manifest.Format == entities.ManifestFormatDepmf {
		if err := checkComplete(target, index); err != nil {
			return nil, err
		}
	}

	if res.Root.Version == "" {
		res.Root.Version = env.RootVersion
	}
	res.Root.BaseVersions = env.BaseVersions
	res.Root.NmeumCommits = env.NmeumCommits
	res.Root.PortCommits = env.PortCommits

	// Step 2: pinned git submodules
	submodules, err := r.resolveSubmodules(env, target)
	if err != nil {
		return nil, err
	}
	for _, dep := range submodules {
		if i, exists := index[dep.Key]; exists {
			pinSubmodule(&res.Dependencies[i], dep)
			continue
		}
		if err := add(dep); err != nil {
			return nil, err
		}
	}

	// Step 3: the GitHub runner
	if env.Runner != "" {
		family, version, err := ParseRunner(env.Runner)
		if err != nil {
			return nil, err
		}
		if err := add(entities.ResolvedDependency{
			Key:        entities.KeyGitHubRunner,
			Version:    version,
			Origin:     entities.OriginTooling,
			Name:       family,
			Properties: []entities.Property{{Name: "github_runner_name", Value: env.Runner}},
		}); err != nil {
			return nil, err
		}
	}

	// Step 4: platform extras, in the entry point's order
	extras, err := r.resolveExtras(ep, env)
	if err != nil {
		return nil, err
	}
	for _, dep := range extras {
		if err := add(dep); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (r *Resolver) resolveManifestEntry(
	entry entities.ManifestEntry,
	target entities.Target,
	env *entities.BuildEnvironment,
) (entities.ResolvedDependency, error) {
	candidates := FindByManifestName(entry.Name)
	if len(candidates) == 0 {
		return entities.ResolvedDependency{}, fmt.Errorf("%w: manifest dependency %q has no registry entry", entities.ErrUnknownKey, entry.Name)
	}

	if entry.Origin != entities.OriginUnspecified {
		candidates = slices.DeleteFunc(candidates, func(k entities.Key) bool {
			return catalog[k].Origin != entry.Origin
		})
		if len(candidates) == 0 {
			return entities.ResolvedDependency{}, fmt.Errorf("%w: manifest dependency %q with source %q has no registry entry",
				entities.ErrUnknownKey, entry.Name, entry.Origin)
		}
	}

	key := candidates[0]
	if len(candidates) > 1 {
		preferred := entities.OriginWrap
		if env.BundledLibusb {
			preferred = entities.OriginSubmodule
		}
		for _, k := range candidates {
			if catalog[k].Origin == preferred {
				key = k
				break
			}
		}
	}

	entryDef := catalog[key]
	if !entryDef.AllowedOn(target.OS) {
		return entities.ResolvedDependency{}, fmt.Errorf("%w: dependency %q is not used on %s", entities.ErrUnsupportedPlatform, entry.Name, target.OS)
	}

	dep := entities.ResolvedDependency{
		Key:      key,
		Version:  entry.Version,
		Origin:   entryDef.Origin,
		Licenses: entry.Licenses,
	}

	switch entryDef.Origin {
	case entities.OriginWrap:
		if w, ok := env.Wrap(entry.Name); ok {
			version, err := checkWrapVersion(entry, w)
			if err != nil {
				return entities.ResolvedDependency{}, err
			}
			if err := checkWrapPatches(w); err != nil {
				return entities.ResolvedDependency{}, err
			}
			dep.Version = version
			dep.Patches = w.Patches
			dep.Properties = append(dep.Properties, entities.Property{Name: "meson.subproject_version", Value: entry.Version})
		}
	case entities.OriginPrebuilt:
		if archive, ok := env.Archive(entry.Name); ok {
			bomURL, err := ArchiveBOMURL(archive, target.Arch)
			if err != nil {
				return entities.ResolvedDependency{}, err
			}
			dep.Distribution = &archive
			dep.BOMURL = bomURL
			dep.VCSURL = entryDef.Website + ".git"
		}
	}

	return dep, nil
}

// checkWrapPatches verifies that every known patch of the wrap was applied
func checkWrapPatches(w entities.WrapInfo) error {
	applied := make(map[string]bool, len(w.DiffFiles))
	for _, f := range w.DiffFiles {
		applied[f] = true
	}
	var missing []string
	for _, p := range ExpectedPatches(w.Name) {
		if !applied[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: wrap %q no longer applies the expected patches %s",
			entities.ErrEnvironment, w.Name, strings.Join(missing, ", "))
	}
	return nil
}

// checkComplete verifies that a Meson-generated manifest names every wrap
// the build uses. libusb may come from the bundled submodule instead.
func checkComplete(target entities.Target, index map[entities.Key]int) error {
	var missing []string
	for k := entities.Key(0); k < entities.KeyCount; k++ {
		entry := catalog[k]
		if entry.Origin != entities.OriginWrap || k == entities.KeyWrapLibusb || !entry.AllowedOn(target.OS) {
			continue
		}
		if _, ok := index[k]; !ok {
			missing = append(missing, entry.ManifestName)
		}
	}
	if _, ok := index[entities.KeyAdbWinApi]; !ok && target.OS == entities.OSWindows {
		missing = append(missing, catalog[entities.KeyAdbWinApi].ManifestName)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: dependency manifest for %s is missing %s",
			entities.ErrEnvironment, target.ID(), strings.Join(missing, ", "))
	}
	return nil
}

// checkWrapVersion verifies that the wrapdb version is the manifest version
// followed by a wrap revision, and returns the wrapdb version.
func checkWrapVersion(entry entities.ManifestEntry, w entities.WrapInfo) (string, error) {
	rest, ok := strings.CutPrefix(w.WrapDBVersion, entry.Version)
	if entry.Version == "" || !ok || !wrapRevision.MatchString(rest) {
		return "", fmt.Errorf("%w: wrap %q has wrapdb_version %q which does not match manifest version %q",
			entities.ErrEnvironment, entry.Name, w.WrapDBVersion, entry.Version)
	}
	return w.WrapDBVersion, nil
}

func (r *Resolver) resolveSubmodules(env *entities.BuildEnvironment, target entities.Target) ([]entities.ResolvedDependency, error) {
	deps := make([]entities.ResolvedDependency, 0, len(env.Submodules))
	for _, sm := range env.Submodules {
		key, ok := FindBySubmoduleName(sm.Name)
		if !ok {
			if ignoredSubmodules[sm.Name] {
				continue
			}
			return nil, fmt.Errorf("%w: git submodule %q has no registry entry", entities.ErrUnknownKey, sm.Name)
		}
		if key == entities.KeySubmoduleLibusb && !env.BundledLibusb {
			continue
		}
		if !catalog[key].AllowedOn(target.OS) {
			continue
		}
		if sm.Commit == "" {
			return nil, fmt.Errorf("%w: git submodule %q has no pinned commit", entities.ErrEnvironment, sm.Name)
		}
		deps = append(deps, entities.ResolvedDependency{
			Key:     key,
			Version: sm.Commit,
			Origin:  entities.OriginSubmodule,
			VCSURL:  sm.URL,
		})
	}

	// catalog order keeps output independent of .gitmodules ordering
	slices.SortStableFunc(deps, func(a, b entities.ResolvedDependency) int {
		return int(a.Key) - int(b.Key)
	})
	return deps, nil
}

func (r *Resolver) resolveExtras(ep *EntryPoint, env *entities.BuildEnvironment) ([]entities.ResolvedDependency, error) {
	// Fail fast on names this entry point cannot place
	for _, x := range env.Extras {
		key, ok := FindByExtraName(x.Name)
		if !ok {
			return nil, fmt.Errorf("%w: platform dependency %q has no registry entry", entities.ErrUnknownKey, x.Name)
		}
		if !ep.AcceptsExtra(key) {
			return nil, fmt.Errorf("%w: platform dependency %q is not used by the %s entry point", entities.ErrUnsupportedPlatform, x.Name, ep.Name)
		}
		if x.Version == "" {
			return nil, fmt.Errorf("%w: platform dependency %q has no version", entities.ErrEnvironment, x.Name)
		}
	}

	deps := make([]entities.ResolvedDependency, 0, len(env.Extras))
	for _, key := range ep.Extras {
		entry := catalog[key]
		x, ok := env.Extra(entry.ExtraName)
		if !ok {
			continue
		}
		if entry.Parent != entities.KeyAndroidToolsStatic {
			parentName := catalog[entry.Parent].ExtraName
			if _, ok := env.Extra(parentName); !ok {
				return nil, fmt.Errorf("%w: %q is part of %q, which is missing", entities.ErrEnvironment, x.Name, parentName)
			}
		}

		dep := entities.ResolvedDependency{
			Key:         key,
			Version:     x.Version,
			Origin:      entry.Origin,
			PackageName: x.Package,
		}
		if entry.License != "" {
			dep.Licenses = []string{entry.License}
		}
		if prop, ok := packageProperty(entry, x); ok {
			dep.Properties = append(dep.Properties, prop)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// packageProperty records the distribution package name-version string
func packageProperty(entry CatalogEntry, x entities.ExtraDependency) (entities.Property, bool) {
	name := entry.Name
	if x.Package != "" {
		name = x.Package
	}
	switch entry.PurlType {
	case "apk":
		return entities.Property{Name: "alpine_pkg_name", Value: name + "-" + x.Version}, true
	case "msys2":
		return entities.Property{Name: "msys2_pkg_name", Value: name + "-" + x.Version}, true
	case "brew":
		return entities.Property{Name: "brew_formula", Value: name}, true
	default:
		return entities.Property{}, false
	}
}

// pinSubmodule attaches a pinned commit to a dependency the manifest already
// versioned. The manifest version wins; the commit becomes a property.
func pinSubmodule(existing *entities.ResolvedDependency, pin entities.ResolvedDependency) {
	if existing.VCSURL == "" {
		existing.VCSURL = pin.VCSURL
	}
	if existing.Version == "" {
		existing.Version = pin.Version
		return
	}
	if existing.Version != pin.Version {
		existing.Properties = append(existing.Properties, entities.Property{Name: "vcs.commit", Value: pin.Version})
	}
}

func mergeDependency(existing *entities.ResolvedDependency, dep entities.ResolvedDependency) error {
	switch {
	case existing.Version == "":
		existing.Version = dep.Version
	case dep.Version != "" && dep.Version != existing.Version:
		return fmt.Errorf("%w: %s is both %q and %q", entities.ErrConflictingVersion, dep.Key, existing.Version, dep.Version)
	}
	if existing.VCSURL == "" {
		existing.VCSURL = dep.VCSURL
	}
	if len(existing.Licenses) == 0 {
		existing.Licenses = dep.Licenses
	}
	existing.Properties = append(existing.Properties, dep.Properties...)
	return nil
}
