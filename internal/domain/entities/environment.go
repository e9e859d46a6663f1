package entities

// BuildEnvironment carries the facts about a build that the dependency
// manifest does not record.
type BuildEnvironment struct {
	// Runner is the GitHub runner name including its version (ubuntu-24.04)
	Runner        string
	BundledLibusb bool
	RootVersion   string
	BaseVersions  BaseVersions
	Submodules    []Submodule
	Extras        []ExtraDependency
	Wraps         []WrapInfo

	// Archives are prebuilt subprojects, keyed by subproject name
	Archives []SourceArchive

	// NmeumCommits are inherited from the nmeum port, PortCommits are added
	// on top of it
	NmeumCommits []Commit
	PortCommits  []Commit
}

// BaseVersions are the upstream releases this port derives from
type BaseVersions struct {
	Nmeum string
	MSYS2 string
}

// Submodule is a git submodule pinned in the source tree
type Submodule struct {
	Name   string
	Path   string
	Commit string
	URL    string
}

// ExtraDependency is a platform-specific dependency named by the build environment
type ExtraDependency struct {
	Name    string
	Version string

	// Command, when set, is run to obtain the version
	Command string
	Prefix  string

	// Package overrides the purl name
	Package string
}

// WrapInfo is the subset of a Meson .wrap file used for cross-checking
type WrapInfo struct {
	Name          string
	WrapDBVersion string

	// Directory is the unpacked subproject under subprojects/
	Directory string

	// DiffFiles are relative to subprojects/packagefiles, in application order
	DiffFiles []string

	// Patches are DiffFiles after they were verified against Directory
	Patches []Patch
}

// Extra returns the extra dependency with the given name
func (e *BuildEnvironment) Extra(name string) (ExtraDependency, bool) {
	for _, x := range e.Extras {
		if x.Name == name {
			return x, true
		}
	}
	return ExtraDependency{}, false
}

// Wrap returns the wrap info for the named subproject
func (e *BuildEnvironment) Wrap(name string) (WrapInfo, bool) {
	for _, w := range e.Wraps {
		if w.Name == name {
			return w, true
		}
	}
	return WrapInfo{}, false
}

// Archive returns the prebuilt archive of the named subproject
func (e *BuildEnvironment) Archive(name string) (SourceArchive, bool) {
	for _, a := range e.Archives {
		if a.Name == name {
			return a, true
		}
	}
	return SourceArchive{}, false
}

// EnvironmentRequest names the sources of one build environment
type EnvironmentRequest struct {
	// Profile is a profile path or name; empty means no profile
	Profile string

	// VersionInfoPath points at the cross image's version-info.json
	VersionInfoPath string

	// SourceDir is the android-tools-static checkout
	SourceDir string
	GitExe    string

	FakeVersions bool

	// Manifest selects which wraps are read from SourceDir
	Manifest *Manifest

	// NmeumPatches and PortPatches are NUL separated patch series files.
	// Paths inside them are relative to SourceDir/patches.
	NmeumPatches string
	PortPatches  string

	// RepoLink is a URL template with a mandatory ${path} and an optional
	// ${ref}. RepoLinkRef fills ${ref}; empty means the HEAD of SourceDir.
	RepoLink    string
	RepoLinkRef string
}
