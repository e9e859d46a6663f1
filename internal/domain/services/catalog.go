package services

import (
	"fmt"

	"github.com/package-url/packageurl-go"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// Component types as understood by CycloneDX
const (
	TypeApplication = "application"
	TypeLibrary     = "library"
	TypePlatform    = "platform"
	TypeOS          = "operating-system"
)

// Supplier is the organization distributing a component
type Supplier struct {
	Name string
	URL  string
}

// AdbWinApiRepo hosts the prebuilt AdbWinApi archives and their SBOMs
const AdbWinApiRepo = "https://github.com/meator/AdbWinApi"

// Suppliers shared by several catalog entries
var (
	SupplierGitHub = &Supplier{Name: "GitHub, Inc.", URL: "https://github.com/"}
	supplierGoogle = &Supplier{Name: "Google", URL: "https://android.googlesource.com/"}
	supplierMeson  = &Supplier{Name: "mesonbuild", URL: "https://mesonbuild.com/"}
	supplierAlpine = &Supplier{Name: "Alpine Linux official repository", URL: "https://www.alpinelinux.org/"}
	supplierDocker = &Supplier{Name: "Docker Hub", URL: "https://hub.docker.com/"}
	supplierMSYS2  = &Supplier{Name: "MSYS2", URL: "https://www.msys2.org/"}
	supplierBrew   = &Supplier{Name: "Homebrew", URL: "https://brew.sh/"}
	supplierApple  = &Supplier{Name: "Apple Inc.", URL: "https://www.apple.com/"}
	supplierMS     = &Supplier{Name: "Microsoft Corporation", URL: "https://www.microsoft.com/"}
)

// CatalogEntry is the static description of a known dependency
type CatalogEntry struct {
	// Base purl, without version
	PurlType  string
	Namespace string
	Name      string

	DisplayName   string
	ComponentType string
	Description   string
	Supplier      *Supplier
	Website       string
	IssueTracker  string
	License       string

	// Where the dependency can be named from. Empty means "not from there".
	ManifestName  string
	SubmoduleName string
	ExtraName     string
	Origin        entities.Origin

	// Platforms restricts the operating systems the dependency is used on.
	// Empty means every platform.
	Platforms []entities.OSFamily

	// Parent is the component this one is nested under. The root key means
	// top-level.
	Parent entities.Key
}

// AllowedOn reports whether the dependency may appear in a build for os
func (e *CatalogEntry) AllowedOn(os entities.OSFamily) bool {
	if len(e.Platforms) == 0 {
		return true
	}
	for _, p := range e.Platforms {
		if p == os {
			return true
		}
	}
	return false
}

// BasePurl returns the versionless purl of the entry
func (e *CatalogEntry) BasePurl() string {
	return packageurl.NewPackageURL(e.PurlType, e.Namespace, e.Name, "", nil, "").ToString()
}

const submoduleDescription = "One of android-tools-static git submodule components"

func submodule(namespace, name string) CatalogEntry {
	return CatalogEntry{
		PurlType:      "generic",
		Namespace:     namespace,
		Name:          name,
		DisplayName:   name,
		ComponentType: TypeLibrary,
		Description:   submoduleDescription,
		Supplier:      supplierGoogle,
		SubmoduleName: name,
		Origin:        entities.OriginSubmodule,
	}
}

func wrap(name, description string) CatalogEntry {
	return CatalogEntry{
		PurlType:      "wrapdb",
		Name:          name,
		DisplayName:   name,
		ComponentType: TypeLibrary,
		Description:   description,
		Supplier:      supplierMeson,
		Website:       "https://wrapdb.mesonbuild.com/v2/" + name,
		ManifestName:  name,
		Origin:        entities.OriginWrap,
	}
}

func crossPart(name, description string) CatalogEntry {
	return CatalogEntry{
		PurlType:      "generic",
		Name:          name,
		DisplayName:   name,
		ComponentType: TypeLibrary,
		Description:   description + " components of musl-cross-make gcc toolchain",
		ExtraName:     name,
		Origin:        entities.OriginSystem,
		Platforms:     []entities.OSFamily{entities.OSLinux},
		Parent:        entities.KeyMuslCrossMake,
	}
}

func action(namespace, name, description, license string) CatalogEntry {
	return CatalogEntry{
		PurlType:      "github",
		Namespace:     namespace,
		Name:          name,
		DisplayName:   namespace + "/" + name,
		ComponentType: TypeLibrary,
		Description:   description,
		Supplier:      SupplierGitHub,
		Website:       "https://github.com/" + namespace + "/" + name,
		License:       license,
		ExtraName:     namespace + "/" + name,
		Origin:        entities.OriginTooling,
	}
}

func alpinePackage(name, displayName, componentType, description string) CatalogEntry {
	return CatalogEntry{
		PurlType:      "apk",
		Namespace:     "alpine",
		Name:          name,
		DisplayName:   displayName,
		ComponentType: componentType,
		Description:   description,
		Supplier:      supplierAlpine,
		ExtraName:     "alpine-" + name,
		Origin:        entities.OriginSystem,
		Platforms:     []entities.OSFamily{entities.OSLinux},
	}
}

func systemPackage(purlType, name, extraName, displayName, description string, supplier *Supplier, os entities.OSFamily) CatalogEntry {
	return CatalogEntry{
		PurlType:      purlType,
		Name:          name,
		DisplayName:   displayName,
		ComponentType: TypeApplication,
		Description:   description,
		Supplier:      supplier,
		ExtraName:     extraName,
		Origin:        entities.OriginSystem,
		Platforms:     []entities.OSFamily{os},
	}
}

var catalog = [entities.KeyCount]CatalogEntry{
	entities.KeyAndroidToolsStatic: {
		PurlType:      "github",
		Namespace:     "meator",
		Name:          "android-tools-static",
		DisplayName:   "android-tools-static",
		ComponentType: TypeApplication,
		Description:   "Meson port of android-tools with fullstatic support",
		Supplier:      SupplierGitHub,
		Website:       "https://github.com/meator/android-tools-static",
		License:       "Apache-2.0",
		Origin:        entities.OriginRoot,
	},
	entities.KeyNmeumAndroidTools: {
		PurlType:      "github",
		Namespace:     "nmeum",
		Name:          "android-tools",
		DisplayName:   "nmeum/android-tools",
		ComponentType: TypeApplication,
		Description:   "Unofficial CMake-based build system for android command line utilities",
		Website:       "https://github.com/nmeum/android-tools",
		License:       "Apache-2.0",
		Origin:        entities.OriginRoot,
	},
	entities.KeyMSYS2AndroidTools: {
		PurlType:      "msys2",
		Name:          "mingw-w64-android-tools",
		DisplayName:   "mingw-w64-android-tools",
		ComponentType: TypeApplication,
		Description:   "MSYS2 packaging of android-tools",
		Supplier:      supplierMSYS2,
		Website:       "https://github.com/msys2/MINGW-packages/tree/master/mingw-w64-android-tools",
		Origin:        entities.OriginRoot,
	},

	entities.KeyPipMeson: {
		PurlType:      "pypi",
		Name:          "meson",
		DisplayName:   "Meson",
		ComponentType: TypeApplication,
		Description:   "Meson build system installed from PyPI",
		Website:       "https://mesonbuild.com/",
		License:       "Apache-2.0",
		ExtraName:     "pip-meson",
		Origin:        entities.OriginTooling,
	},
	entities.KeyActionGHRelease: {
		PurlType:      "github",
		Namespace:     "softprops",
		Name:          "action-gh-release",
		DisplayName:   "softprops/action-gh-release",
		ComponentType: TypeLibrary,
		Description:   "GitHub Action used to upload release artifacts",
		Supplier:      SupplierGitHub,
		Website:       "https://github.com/softprops/action-gh-release",
		License:       "MIT",
		ExtraName:     "action-gh-release",
		Origin:        entities.OriginTooling,
	},
	entities.KeyGitHubRunner: {
		PurlType:      "generic",
		Name:          "github-actions-runner",
		DisplayName:   "github-actions-runner",
		ComponentType: TypePlatform,
		Description:   "Official GitHub runner used to build the library. Tools provided by it by default may be used during the build.",
		Supplier:      SupplierGitHub,
		Website:       "https://github.com/actions/runner-images",
		Origin:        entities.OriginTooling,
	},

	entities.KeySubmoduleCore:          submodule("platform/system", "core"),
	entities.KeySubmoduleExtras:        submodule("platform/system", "extras"),
	entities.KeySubmoduleSelinux:       withPlatforms(submodule("platform/external", "selinux"), entities.OSLinux, entities.OSMacOS),
	entities.KeySubmoduleF2FSTools:     submodule("platform/external", "f2fs-tools"),
	entities.KeySubmoduleE2fsprogs:     submodule("platform/external", "e2fsprogs"),
	entities.KeySubmoduleBoringSSL:     withManifestName(submodule("", "boringssl"), "BoringSSL"),
	entities.KeySubmoduleMkbootimg:     submodule("platform/system/tools", "mkbootimg"),
	entities.KeySubmoduleAVB:           submodule("platform/external", "avb"),
	entities.KeySubmoduleLibbase:       submodule("platform/system", "libbase"),
	entities.KeySubmoduleLibziparchive: submodule("platform/system", "libziparchive"),
	entities.KeySubmoduleADB:           submodule("platform/packages/modules", "adb"),
	entities.KeySubmoduleLogging:       submodule("platform/system", "logging"),
	entities.KeySubmoduleLibufdt:       submodule("platform/system", "libufdt"),
	entities.KeySubmoduleLibusb: {
		PurlType:      "github",
		Namespace:     "libusb",
		Name:          "libusb",
		DisplayName:   "libusb",
		ComponentType: TypeLibrary,
		Description:   "Bundled libusb git submodule",
		Supplier:      SupplierGitHub,
		Website:       "https://libusb.info/",
		SubmoduleName: "libusb",
		ManifestName:  "libusb",
		Origin:        entities.OriginSubmodule,
	},

	entities.KeyWrapFmt:          wrap("fmt", "A modern formatting library"),
	entities.KeyWrapZlib:         wrap("zlib", "A massively spiffy yet delicately unobtrusive compression library"),
	entities.KeyWrapGoogleBrotli: wrap("google-brotli", "Brotli compression format"),
	entities.KeyWrapLZ4:          wrap("lz4", "Extremely Fast Compression algorithm"),
	entities.KeyWrapZstd:         wrap("zstd", "Zstandard - Fast real-time compression algorithm"),
	entities.KeyWrapLibusb:       wrap("libusb", "A cross-platform library to access USB devices"),
	entities.KeyWrapGTest:        wrap("gtest", "Google Testing and Mocking Framework"),
	entities.KeyWrapAbseilCpp:    wrap("abseil-cpp", "Abseil Common Libraries (C++)"),
	entities.KeyWrapProtobuf:     wrap("protobuf", "Protocol Buffers - Google's data interchange format"),
	entities.KeyWrapPCRE2:        wrap("pcre2", "Perl-compatible regular expressions library"),

	entities.KeyAdbWinApi: {
		PurlType:      "generic",
		Name:          "AdbWinApi",
		DisplayName:   "AdbWinApi",
		ComponentType: TypeLibrary,
		Description:   "Prebuilt Windows USB driver interface used by adb",
		Supplier:      SupplierGitHub,
		Website:       AdbWinApiRepo,
		IssueTracker:  AdbWinApiRepo + "/issues",
		License:       "Apache-2.0",
		ManifestName:  "AdbWinApi",
		Origin:        entities.OriginPrebuilt,
		Platforms:     []entities.OSFamily{entities.OSWindows},
	},
	entities.KeyWindows: {
		PurlType:      "microsoft",
		Name:          "windows",
		DisplayName:   "Microsoft Windows",
		ComponentType: TypeOS,
		Description:   "Windows operating system of the GitHub runner",
		Supplier:      supplierMS,
		ExtraName:     "windows",
		Origin:        entities.OriginSystem,
		Platforms:     []entities.OSFamily{entities.OSWindows},
	},
	entities.KeyMSYS2Meson: systemPackage("msys2", "meson", "msys2-meson", "Meson", "Meson build system", supplierMSYS2, entities.OSWindows),
	entities.KeyMSYS2GCC:   systemPackage("msys2", "gcc", "msys2-gcc", "GCC", "GNU Compiler Collection", supplierMSYS2, entities.OSWindows),
	entities.KeyMSYS2CMake: systemPackage("msys2", "cmake", "msys2-cmake", "CMake", "CMake build system", supplierMSYS2, entities.OSWindows),
	entities.KeyMSYS2NASM:  systemPackage("msys2", "nasm", "msys2-nasm", "NASM", "Netwide Assembler", supplierMSYS2, entities.OSWindows),
	entities.KeySetupMSYS2: withPlatforms(
		action("msys2", "setup-msys2", "GitHub Action used to setup MSYS2 and to install MSYS2 dependencies", "MIT"),
		entities.OSWindows),

	entities.KeyAlpine: {
		PurlType:      "generic",
		Name:          "alpine",
		DisplayName:   "Alpine Linux",
		ComponentType: TypeOS,
		Description:   "Stable version of Alpine Linux used to build android-tools-static",
		Supplier:      supplierDocker,
		ExtraName:     "alpine",
		Origin:        entities.OriginSystem,
		Platforms:     []entities.OSFamily{entities.OSLinux},
	},
	entities.KeyAlpineMeson:        alpinePackage("meson", "Meson", TypeApplication, "Meson build system"),
	entities.KeyAlpineGCC:          alpinePackage("gcc", "GCC", TypeApplication, "GNU Compiler Collection"),
	entities.KeyAlpineGPP:          alpinePackage("g++", "G++", TypeApplication, "GNU Compiler Collection - C++ compiler"),
	entities.KeyAlpineCMake:        alpinePackage("cmake", "CMake", TypeApplication, "CMake build system"),
	entities.KeyAlpineLinuxHeaders: alpinePackage("linux-headers", "linux-headers", TypeLibrary, "Linux kernel headers"),
	entities.KeySetupAlpine: withPlatforms(
		action("jirutka", "setup-alpine", "GitHub Action used to setup Alpine Linux and to install Alpine dependencies", "MIT"),
		entities.OSLinux),
	entities.KeyMuslCrossMake: {
		PurlType:      "github",
		Namespace:     "richfelker",
		Name:          "musl-cross-make",
		DisplayName:   "musl-cross-make GCC toolchain",
		ComponentType: TypeApplication,
		Description:   "Primary toolchain used to build android-tools-static for target architecture",
		Supplier:      SupplierGitHub,
		Website:       "https://github.com/richfelker/musl-cross-make",
		License:       "MIT",
		ExtraName:     "musl-cross-make",
		Origin:        entities.OriginSystem,
		Platforms:     []entities.OSFamily{entities.OSLinux},
	},
	entities.KeyCrossBinutils: crossPart("binutils", "binutils"),
	entities.KeyCrossGCC:      crossPart("gcc", "gcc"),
	entities.KeyCrossMusl:     crossPart("musl", "musl"),
	entities.KeyCrossGMP:      crossPart("gmp", "gmp"),
	entities.KeyCrossMPC:      crossPart("mpc", "mpc"),
	entities.KeyCrossMPFR:     crossPart("mpfr", "mpfr"),
	entities.KeyCrossLinux:    crossPart("linux", "Linux headers"),
	entities.KeyCrossISL:      crossPart("isl", "isl"),
	entities.KeyDockerSetupBuildx: withPlatforms(
		action("docker", "setup-buildx-action", "GitHub Action used to setup Docker buildx environment.", "Apache-2.0"),
		entities.OSLinux),
	entities.KeyDockerLogin: withPlatforms(
		action("docker", "login-action", "GitHub Action used to login to GitHub Container Registry.", "Apache-2.0"),
		entities.OSLinux),
	entities.KeyDockerMetadata: withPlatforms(
		action("docker", "metadata-action", "GitHub Action used to handle Docker image metadata.", "Apache-2.0"),
		entities.OSLinux),
	entities.KeyDockerBake: withPlatforms(
		action("docker", "bake-action", "GitHub Action used to build the cross toolchain image.", "Apache-2.0"),
		entities.OSLinux),

	entities.KeyMacOS: {
		PurlType:      "generic",
		Name:          "macos",
		DisplayName:   "macOS",
		ComponentType: TypeOS,
		Description:   "macOS operating system",
		Supplier:      supplierApple,
		ExtraName:     "macos",
		Origin:        entities.OriginSystem,
		Platforms:     []entities.OSFamily{entities.OSMacOS},
	},
	entities.KeyBrewMeson:    systemPackage("brew", "meson", "brew-meson", "Meson", "Meson build system", supplierBrew, entities.OSMacOS),
	entities.KeyBrewCMake:    systemPackage("brew", "cmake", "brew-cmake", "CMake", "CMake build system", supplierBrew, entities.OSMacOS),
	entities.KeyAppleClang:   systemPackage("generic", "apple_clang", "apple-clang", "Apple clang", "Apple version of LLVM clang", supplierApple, entities.OSMacOS),
	entities.KeyAppleClangPP: systemPackage("generic", "apple_clang++", "apple-clang++", "Apple clang++", "Apple version of LLVM clang++", supplierApple, entities.OSMacOS),
}

func withPlatforms(e CatalogEntry, platforms ...entities.OSFamily) CatalogEntry {
	e.Platforms = platforms
	return e
}

func withManifestName(e CatalogEntry, name string) CatalogEntry {
	e.ManifestName = name
	return e
}

// CatalogEntryFor returns the static description of key
func CatalogEntryFor(key entities.Key) (CatalogEntry, error) {
	if !key.Valid() {
		return CatalogEntry{}, fmt.Errorf("%w: %s", entities.ErrUnknownKey, key)
	}
	return catalog[key], nil
}

// Root describes the android-tools-static component itself. The version is
// left empty for the resolver to fill in.
func Root() entities.RootComponent {
	e := catalog[entities.KeyAndroidToolsStatic]
	return entities.RootComponent{
		Name:    e.Name,
		Purl:    e.BasePurl(),
		RepoURL: e.Website,
	}
}

// FindByManifestName returns every key a manifest record name can refer to
func FindByManifestName(name string) []entities.Key {
	return findKeys(func(e *CatalogEntry) bool { return e.ManifestName == name })
}

// FindByExtraName returns the key named by a build environment extra
func FindByExtraName(name string) (entities.Key, bool) {
	if name == "" {
		return 0, false
	}
	keys := findKeys(func(e *CatalogEntry) bool { return e.ExtraName == name })
	if len(keys) == 0 {
		return 0, false
	}
	return keys[0], true
}

// FindBySubmoduleName returns the key of a git submodule
func FindBySubmoduleName(name string) (entities.Key, bool) {
	if name == "" {
		return 0, false
	}
	keys := findKeys(func(e *CatalogEntry) bool { return e.SubmoduleName == name })
	if len(keys) == 0 {
		return 0, false
	}
	return keys[0], true
}

func findKeys(match func(*CatalogEntry) bool) []entities.Key {
	var keys []entities.Key
	for k := entities.Key(0); k < entities.KeyCount; k++ {
		if match(&catalog[k]) {
			keys = append(keys, k)
		}
	}
	return keys
}
