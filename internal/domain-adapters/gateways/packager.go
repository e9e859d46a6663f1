package gateways

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/services"
)

// SBOMArchivePath is where the SBOM lives inside a release archive
const SBOMArchivePath = "share/android-tools-static/sbom.cdx.json"

// PackageRequest describes one release archive
type PackageRequest struct {
	// PrefixDir is the install prefix to archive
	PrefixDir string
	OutputDir string
	Version   string
	Platform  string

	// SBOMPath, when set, is stored at SBOMArchivePath
	SBOMPath string

	// ModTime is recorded for every entry
	ModTime time.Time
}

// archiveEntry is a file or directory queued for the archive
type archiveEntry struct {
	name   string
	source string
	dir    bool
	link   string
	exec   bool
}

// packager builds reproducible release archives
type packager struct {
	release *services.ReleaseService
	writer  *documentWriter
}

// NewPackager creates a new packager for the named project
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewPackager(projectName string) *packager {
	return &packager{
		release: services.NewReleaseService(projectName),
		writer:  NewDocumentWriter(),
	}
}

// PackageArtifact archives the install prefix into
// <project>-<version>-<platform>.tar.gz with a .sha256 sidecar.
// Entries are sorted and owned by root, so equal trees give equal archives.
func (p *packager) PackageArtifact(ctx context.Context, req PackageRequest) (*entities.Artifact, error) {
	info, err := os.Stat(req.PrefixDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat install prefix: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("install prefix %s is not a directory", req.PrefixDir)
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = "dist"
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	entries, err := p.collect(req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.writeArchive(ctx, &buf, entries, req.ModTime); err != nil {
		return nil, fmt.Errorf("failed to create tarball: %w", err)
	}

	tarballPath := filepath.Join(outputDir, p.release.ArchiveName(req.Version, services.Platform(req.Platform)))
	if _, err := p.writer.Write(tarballPath, buf.Bytes(), true); err != nil {
		return nil, err
	}

	return &entities.Artifact{
		Name:     filepath.Base(tarballPath),
		Version:  req.Version,
		Platform: req.Platform,
		Path:     tarballPath,
		Type:     "archive",
	}, nil
}

// collect lists the prefix tree plus the relocated SBOM, sorted by name
func (p *packager) collect(req PackageRequest) ([]archiveEntry, error) {
	byName := make(map[string]archiveEntry)

	err := filepath.WalkDir(req.PrefixDir, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(req.PrefixDir, filePath)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		// Skip the root directory itself
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		entry := archiveEntry{name: name, source: filePath}
		switch {
		case d.IsDir():
			entry.dir = true
		case info.Mode()&os.ModeSymlink != 0:
			entry.link, err = os.Readlink(filePath)
			if err != nil {
				return fmt.Errorf("failed to read symlink %s: %w", filePath, err)
			}
		case info.Mode().IsRegular():
			entry.exec = info.Mode()&0o111 != 0
		default:
			return fmt.Errorf("unsupported file type: %s", filePath)
		}
		byName[name] = entry
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk install prefix: %w", err)
	}

	if req.SBOMPath != "" {
		if _, err := os.Stat(req.SBOMPath); err != nil {
			return nil, fmt.Errorf("failed to stat SBOM: %w", err)
		}
		for dir := path.Dir(SBOMArchivePath); dir != "."; dir = path.Dir(dir) {
			if _, ok := byName[dir]; !ok {
				byName[dir] = archiveEntry{name: dir, dir: true}
			}
		}
		byName[SBOMArchivePath] = archiveEntry{name: SBOMArchivePath, source: req.SBOMPath}
	}

	entries := make([]archiveEntry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries, nil
}

func (p *packager) writeArchive(ctx context.Context, w io.Writer, entries []archiveEntry, modTime time.Time) error {
	gzipWriter, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	tarWriter := tar.NewWriter(gzipWriter)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.writeEntry(tarWriter, e, modTime); err != nil {
			return err
		}
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	return gzipWriter.Close()
}

func (p *packager) writeEntry(tw *tar.Writer, e archiveEntry, modTime time.Time) error {
	header := &tar.Header{
		Name:    e.name,
		ModTime: modTime.UTC().Truncate(time.Second),
		Format:  tar.FormatPAX,
	}

	switch {
	case e.dir:
		header.Typeflag = tar.TypeDir
		header.Name += "/"
		header.Mode = 0o755
		return tw.WriteHeader(header)
	case e.link != "":
		header.Typeflag = tar.TypeSymlink
		header.Linkname = e.link
		header.Mode = 0o777
		return tw.WriteHeader(header)
	}

	//nolint:gosec // G304: source comes from walking the install prefix
	data, err := os.ReadFile(e.source)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	header.Typeflag = tar.TypeReg
	header.Size = int64(len(data))
	header.Mode = 0o644
	if e.exec {
		header.Mode = 0o755
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write file to tar: %w", err)
	}
	return nil
}

// ListArchive returns the entry names of a .tar.gz archive in stored order
func ListArchive(archivePath string) ([]string, error) {
	//nolint:gosec // G304: archivePath is a user-provided release archive
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	gzipReader, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip stream: %w", err)
	}
	//nolint:errcheck // Defer close
	defer gzipReader.Close()

	var names []string
	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar entry: %w", err)
		}
		names = append(names, strings.TrimSuffix(header.Name, "/"))
	}
	return names, nil
}
