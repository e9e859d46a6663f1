package services

import (
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// PackageFilesDir holds the local overlays and patches of Meson wraps
const PackageFilesDir = "subprojects/packagefiles"

var wrapdbIssue1856 = entities.Issue{SourceName: "WrapDB GitHub Issues", SourceURL: "https://github.com/mesonbuild/wrapdb/issues/1856"}

var noinstall = entities.Issue{
	Type:        entities.IssueEnhancement,
	Name:        "installation process",
	Description: "Prevent the Wrap from installing its libraries and pkg-config files, since they are not needed.",
}

// knownPatches describes every patch the port applies to wrapdb wraps,
// keyed by path relative to PackageFilesDir
var knownPatches = map[string]entities.Issue{
	"abseil-cpp/0001-build-both-host-and-build-libs-in-cross.patch": withSource(entities.Issue{
		Type:        entities.IssueDefect,
		Name:        "cross build",
		Description: "Make abseil-cpp usable when both its cross and its native versions are needed.",
	}, wrapdbIssue1856),
	"abseil-cpp/0002-do-not-bother-building-unused-native-libs.patch": {
		Type: entities.IssueEnhancement,
		Name: "optimization",
		Description: "(Patch modifying abseil-cpp/0001-build-both-host-and-build-libs-in-cross.patch) " +
			"Build only needed libraries twice during cross compilation.",
	},
	"fmt/noinstall.patch":    noinstall,
	"libusb/noinstall.patch": noinstall,
	"lz4/noinstall.patch":    noinstall,
	"pcre2/noinstall.patch":  noinstall,
	"protobuf/0001-fix-host-abseil-compilation.patch": withSource(entities.Issue{
		Type: entities.IssueEnhancement,
		Name: "cross build",
		Description: "Adapt protobuf's build system to changes in " +
			"abseil-cpp/0001-build-both-host-and-build-libs-in-cross.patch which improves cross compilation",
	}, wrapdbIssue1856),
	"protobuf/0002-do-not-build-nonnative-protoc-during-cross-build.patch": {
		Type:        entities.IssueEnhancement,
		Name:        "optimization",
		Description: "Do not build non-native (host machine) protoc",
	},
	"protobuf/0003-fix-windows-symlinks.patch": {
		Type:        entities.IssueDefect,
		Name:        "build",
		Description: "Do not use symlinks on Windows, since they require admin permissions or a special setting enabled",
		SourceName:  "WrapDB GitHub Pull request",
		SourceURL:   "https://github.com/mesonbuild/wrapdb/pull/2212",
	},
	"protobuf/0004-fix-gcc-15-release-compilation.patch": {
		Type:        entities.IssueDefect,
		Name:        "build",
		Description: "Fixe protobuf compilation on MSYS2 in release mode.",
		SourceName:  "protobuf GitHub Issues",
		SourceURL:   "https://github.com/protocolbuffers/protobuf/issues/21333",
	},
	"zlib/noinstall.patch": noinstall,
	"zstd/noinstall.patch": noinstall,
}

func withSource(issue, source entities.Issue) entities.Issue {
	issue.SourceName = source.SourceName
	issue.SourceURL = source.SourceURL
	return issue
}

// KnownPatchIssue returns the issue resolved by a wrap patch. diffFile is
// relative to PackageFilesDir.
func KnownPatchIssue(diffFile string) (entities.Issue, bool) {
	issue, ok := knownPatches[diffFile]
	return issue, ok
}

// ExpectedPatches lists the known patches of the wrap stored in directory
// <wrap>/ under PackageFilesDir, sorted
func ExpectedPatches(wrap string) []string {
	var out []string
	for p := range knownPatches {
		if strings.HasPrefix(p, wrap+"/") {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// RepoLink expands ${path} and ${ref} in a repository URL template
type RepoLink struct {
	template string
	ref      string
}

// NewRepoLink validates template. ${path} is mandatory.
func NewRepoLink(template, ref string) (*RepoLink, error) {
	if !strings.Contains(template, "${path}") {
		return nil, fmt.Errorf("%w: repository link %q has no ${path}", entities.ErrEnvironment, template)
	}
	rest := strings.NewReplacer("${path}", "", "${ref}", "").Replace(template)
	if strings.Contains(rest, "${") {
		return nil, fmt.Errorf("%w: repository link %q has an unknown substitution", entities.ErrEnvironment, template)
	}
	return &RepoLink{template: template, ref: ref}, nil
}

// URL links p, a slash separated path relative to the source directory
func (l *RepoLink) URL(p string) string {
	return strings.NewReplacer("${path}", p, "${ref}", l.ref).Replace(l.template)
}

// ArchiveBOMURL derives the address of the SBOM published next to a
// prebuilt archive: <dir>/<stem>-<arch>-sbom.cyclonedx.json
func ArchiveBOMURL(archive entities.SourceArchive, arch string) (string, error) {
	u, err := url.Parse(archive.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %s source_url: %v", entities.ErrEnvironment, archive.Name, err)
	}
	zipName := path.Base(u.Path)
	stem, ok := strings.CutSuffix(zipName, ".zip")
	if !ok || !strings.HasPrefix(stem, archive.Name+"-") {
		return "", fmt.Errorf("%w: %s source_url %q does not name a %s-<version>.zip archive",
			entities.ErrEnvironment, archive.Name, archive.URL, archive.Name)
	}
	if arch == "" {
		return "", fmt.Errorf("%w: %s needs a target architecture", entities.ErrEnvironment, archive.Name)
	}
	u.Path = path.Join(path.Dir(u.Path), stem+"-"+arch+"-sbom.cyclonedx.json")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
