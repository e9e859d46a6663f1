package entities

import "fmt"

// Key identifies one dependency the build can possibly select.
// The set is closed: every value below KeyCount has a catalog entry.
type Key int

// Known dependency keys
const (
	KeyAndroidToolsStatic Key = iota
	KeyNmeumAndroidTools
	KeyMSYS2AndroidTools

	KeyPipMeson
	KeyActionGHRelease
	KeyGitHubRunner

	KeySubmoduleCore
	KeySubmoduleExtras
	KeySubmoduleSelinux
	KeySubmoduleF2FSTools
	KeySubmoduleE2fsprogs
	KeySubmoduleBoringSSL
	KeySubmoduleMkbootimg
	KeySubmoduleAVB
	KeySubmoduleLibbase
	KeySubmoduleLibziparchive
	KeySubmoduleADB
	KeySubmoduleLogging
	KeySubmoduleLibufdt
	KeySubmoduleLibusb

	KeyWrapFmt
	KeyWrapZlib
	KeyWrapGoogleBrotli
	KeyWrapLZ4
	KeyWrapZstd
	KeyWrapLibusb
	KeyWrapGTest
	KeyWrapAbseilCpp
	KeyWrapProtobuf
	KeyWrapPCRE2

	KeyAdbWinApi
	KeyWindows
	KeyMSYS2Meson
	KeyMSYS2GCC
	KeyMSYS2CMake
	KeyMSYS2NASM
	KeySetupMSYS2

	KeyAlpine
	KeyAlpineMeson
	KeyAlpineGCC
	KeyAlpineGPP
	KeyAlpineCMake
	KeyAlpineLinuxHeaders
	KeySetupAlpine
	KeyMuslCrossMake
	KeyCrossBinutils
	KeyCrossGCC
	KeyCrossMusl
	KeyCrossGMP
	KeyCrossMPC
	KeyCrossMPFR
	KeyCrossLinux
	KeyCrossISL
	KeyDockerSetupBuildx
	KeyDockerLogin
	KeyDockerMetadata
	KeyDockerBake

	KeyMacOS
	KeyBrewMeson
	KeyBrewCMake
	KeyAppleClang
	KeyAppleClangPP

	// KeyCount is the number of known keys. It is not a key itself.
	KeyCount
)

var keyNames = [KeyCount]string{
	KeyAndroidToolsStatic:     "android_tools_static",
	KeyNmeumAndroidTools:      "nmeum_android_tools",
	KeyMSYS2AndroidTools:      "msys2_android_tools",
	KeyPipMeson:               "pip_meson",
	KeyActionGHRelease:        "action_gh_release",
	KeyGitHubRunner:           "github_runner",
	KeySubmoduleCore:          "ags_core",
	KeySubmoduleExtras:        "ags_extras",
	KeySubmoduleSelinux:       "ags_selinux",
	KeySubmoduleF2FSTools:     "ags_f2fs_tools",
	KeySubmoduleE2fsprogs:     "ags_e2fsprogs",
	KeySubmoduleBoringSSL:     "boringssl",
	KeySubmoduleMkbootimg:     "ags_mkbootimg",
	KeySubmoduleAVB:           "ags_avb",
	KeySubmoduleLibbase:       "ags_libbase",
	KeySubmoduleLibziparchive: "ags_libziparchive",
	KeySubmoduleADB:           "ags_adb",
	KeySubmoduleLogging:       "ags_logging",
	KeySubmoduleLibufdt:       "ags_libufdt",
	KeySubmoduleLibusb:        "libusb",
	KeyWrapFmt:                "wrap_fmt",
	KeyWrapZlib:               "wrap_zlib",
	KeyWrapGoogleBrotli:       "wrap_google_brotli",
	KeyWrapLZ4:                "wrap_lz4",
	KeyWrapZstd:               "wrap_zstd",
	KeyWrapLibusb:             "wrap_libusb",
	KeyWrapGTest:              "wrap_gtest",
	KeyWrapAbseilCpp:          "wrap_abseil_cpp",
	KeyWrapProtobuf:           "wrap_protobuf",
	KeyWrapPCRE2:              "wrap_pcre2",
	KeyAdbWinApi:              "adbwinapi",
	KeyWindows:                "windows",
	KeyMSYS2Meson:             "msys2_meson",
	KeyMSYS2GCC:               "msys2_gcc",
	KeyMSYS2CMake:             "msys2_cmake",
	KeyMSYS2NASM:              "msys2_nasm",
	KeySetupMSYS2:             "setup_msys2",
	KeyAlpine:                 "alpine",
	KeyAlpineMeson:            "alpine_meson",
	KeyAlpineGCC:              "alpine_gcc",
	KeyAlpineGPP:              "alpine_gpp",
	KeyAlpineCMake:            "alpine_cmake",
	KeyAlpineLinuxHeaders:     "alpine_linux_headers",
	KeySetupAlpine:            "setup_alpine",
	KeyMuslCrossMake:          "musl_cross_make",
	KeyCrossBinutils:          "gcc_binutils",
	KeyCrossGCC:               "gcc_gcc",
	KeyCrossMusl:              "gcc_musl",
	KeyCrossGMP:               "gcc_gmp",
	KeyCrossMPC:               "gcc_mpc",
	KeyCrossMPFR:              "gcc_mpfr",
	KeyCrossLinux:             "gcc_linux",
	KeyCrossISL:               "gcc_isl",
	KeyDockerSetupBuildx:      "docker_setup_buildx",
	KeyDockerLogin:            "docker_login",
	KeyDockerMetadata:         "docker_metadata",
	KeyDockerBake:             "docker_bake",
	KeyMacOS:                  "macos",
	KeyBrewMeson:              "brew_meson",
	KeyBrewCMake:              "brew_cmake",
	KeyAppleClang:             "apple_clang",
	KeyAppleClangPP:           "apple_clangpp",
}

// Valid reports whether k is one of the known keys
func (k Key) Valid() bool {
	return k >= 0 && k < KeyCount
}

func (k Key) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyNames[k]
}

// Identifier is the pair of externally visible identifiers of a component.
// Purl and BOMRef are textually identical in emitted documents.
type Identifier struct {
	Purl   string
	BOMRef string
}

// Property is a name/value pair attached to a component
type Property struct {
	Name  string
	Value string
}

// ResolvedDependency is a dependency selected for one build, bound to a version
type ResolvedDependency struct {
	Key     Key
	Version string
	Origin  Origin

	// Name overrides the catalog display name (e.g. the runner family)
	Name string

	// PackageName overrides the purl name (e.g. the MSYS2 package name)
	PackageName string

	Licenses   []string
	VCSURL     string
	Properties []Property

	// Patches are local modifications of the dependency
	Patches []Patch

	// Distribution is the archive the dependency was downloaded as, and
	// BOMURL the SBOM published next to it
	Distribution *SourceArchive
	BOMURL       string
}

// Resolution is the ordered outcome of composing manifest entries with
// platform-specific extras for a single target.
type Resolution struct {
	Target       Target
	Root         RootComponent
	Dependencies []ResolvedDependency
}

// RootComponent describes the build target itself
type RootComponent struct {
	Name    string
	Version string

	// Purl is the versionless base purl of the root component
	Purl     string
	Licenses []string

	// RepoURL is the project website; vcs and issue-tracker links derive from it
	RepoURL      string
	BaseVersions BaseVersions

	// NmeumCommits belong to the nmeum ancestor, PortCommits to the root
	NmeumCommits []Commit
	PortCommits  []Commit
}

// Find returns the resolved dependency bound to key
func (r *Resolution) Find(key Key) (ResolvedDependency, bool) {
	for _, dep := range r.Dependencies {
		if dep.Key == key {
			return dep, true
		}
	}
	return ResolvedDependency{}, false
}
