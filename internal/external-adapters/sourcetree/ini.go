// Package sourcetree reads build facts from an android-tools-static checkout.
package sourcetree

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// URLs may contain '#'
var loadOptions = ini.LoadOptions{SpaceBeforeInlineComment: true}

func load(path string) (*ini.File, error) {
	cfg, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// ReadWrap reads the [wrap-file] section of subprojects/<name>.wrap of a
// wrapdb wrap
func ReadWrap(sourceDir, name string) (entities.WrapInfo, error) {
	path, section, err := wrapFile(sourceDir, name)
	if err != nil {
		return entities.WrapInfo{}, err
	}
	version := strings.TrimSpace(section.Key("wrapdb_version").String())
	if version == "" {
		return entities.WrapInfo{}, fmt.Errorf("%w: %s has no wrapdb_version", entities.ErrEnvironment, path)
	}

	w := entities.WrapInfo{
		Name:          name,
		WrapDBVersion: version,
		Directory:     strings.TrimSpace(section.Key("directory").String()),
	}
	for _, f := range strings.Split(section.Key("diff_files").String(), ",") {
		if f = strings.TrimSpace(f); f != "" {
			w.DiffFiles = append(w.DiffFiles, f)
		}
	}
	if len(w.DiffFiles) > 0 && w.Directory == "" {
		return entities.WrapInfo{}, fmt.Errorf("%w: %s has diff_files but no directory", entities.ErrEnvironment, path)
	}
	return w, nil
}

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ReadArchiveWrap reads the download location of a prebuilt subproject
func ReadArchiveWrap(sourceDir, name string) (entities.SourceArchive, error) {
	path, section, err := wrapFile(sourceDir, name)
	if err != nil {
		return entities.SourceArchive{}, err
	}
	archive := entities.SourceArchive{
		Name:   name,
		URL:    strings.TrimSpace(section.Key("source_url").String()),
		SHA256: strings.ToLower(strings.TrimSpace(section.Key("source_hash").String())),
	}
	if archive.URL == "" {
		return entities.SourceArchive{}, fmt.Errorf("%w: %s has no source_url", entities.ErrEnvironment, path)
	}
	if !sha256Hex.MatchString(archive.SHA256) {
		return entities.SourceArchive{}, fmt.Errorf("%w: %s source_hash is not a SHA-256 digest", entities.ErrEnvironment, path)
	}
	return archive, nil
}

func wrapFile(sourceDir, name string) (string, *ini.Section, error) {
	path := filepath.Join(sourceDir, "subprojects", name+".wrap")
	cfg, err := load(path)
	if err != nil {
		return path, nil, fmt.Errorf("%w: %v", entities.ErrEnvironment, err)
	}
	section, err := cfg.GetSection("wrap-file")
	if err != nil {
		return path, nil, fmt.Errorf("%w: %s has no [wrap-file] section", entities.ErrEnvironment, path)
	}
	return path, section, nil
}

// GitModule is one [submodule "..."] section of .gitmodules
type GitModule struct {
	Name string
	Path string
	URL  string
}

// ReadGitModules parses .gitmodules in sourceDir. The submodule name is the
// last element of its path.
func ReadGitModules(sourceDir string) ([]GitModule, error) {
	path := filepath.Join(sourceDir, ".gitmodules")
	cfg, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrEnvironment, err)
	}

	var modules []GitModule
	for _, section := range cfg.Sections() {
		if !strings.HasPrefix(section.Name(), "submodule ") {
			continue
		}
		modPath := strings.TrimSpace(section.Key("path").String())
		url := strings.TrimSpace(section.Key("url").String())
		if modPath == "" || url == "" {
			return nil, fmt.Errorf("%w: .gitmodules section %s needs a path and a url", entities.ErrEnvironment, section.Name())
		}
		modules = append(modules, GitModule{
			Name: filepath.Base(filepath.FromSlash(modPath)),
			Path: modPath,
			URL:  url,
		})
	}

	return modules, nil
}

// ReadBaseVersions reads base_versions.ini in sourceDir
func ReadBaseVersions(sourceDir string) (entities.BaseVersions, error) {
	path := filepath.Join(sourceDir, "base_versions.ini")
	cfg, err := load(path)
	if err != nil {
		return entities.BaseVersions{}, fmt.Errorf("%w: %v", entities.ErrEnvironment, err)
	}

	section, err := cfg.GetSection("base_versions")
	if err != nil {
		return entities.BaseVersions{}, fmt.Errorf("%w: %s has no [base_versions] section", entities.ErrEnvironment, path)
	}

	versions := entities.BaseVersions{
		Nmeum: strings.TrimSpace(section.Key("nmeum_version").String()),
		MSYS2: strings.TrimSpace(section.Key("msys2_version").String()),
	}
	if versions.Nmeum == "" || versions.MSYS2 == "" {
		return entities.BaseVersions{}, fmt.Errorf("%w: %s needs nmeum_version and msys2_version", entities.ErrEnvironment, path)
	}
	return versions, nil
}
