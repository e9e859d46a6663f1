package gateways

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/meator/android-tools-static/internal/domain/interfaces/gateways"
	"github.com/meator/android-tools-static/internal/domain/services"
)

// DocumentMode is the permission of written documents
const DocumentMode os.FileMode = 0o644

// documentWriter writes generated files so that readers never observe a
// partially written one
type documentWriter struct {
	checksums *services.ChecksumService
}

var _ gateways.DocumentWriter = (*documentWriter)(nil)

// NewDocumentWriter creates a new document writer
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewDocumentWriter() *documentWriter {
	return &documentWriter{checksums: services.NewChecksumService()}
}

// Write stores data at path. With sidecar set, a sha256sum line is also
// written to path + ".sha256" and its path returned. Both files are staged
// before either is renamed into place; if the sidecar cannot be committed
// the previous document is put back.
func (w *documentWriter) Write(path string, data []byte, sidecar bool) (string, error) {
	if !sidecar {
		return "", WriteFileAtomic(path, data, DocumentMode)
	}

	sidecarPath := path + services.ChecksumSuffix
	line := w.checksums.FormatSidecar(w.checksums.SHA256Bytes(data), path)

	//nolint:gosec // G304: path is the caller-provided destination
	prior, priorErr := os.ReadFile(path)
	hadPrior := priorErr == nil

	docTemp, err := stageTemp(path, data, DocumentMode)
	if err != nil {
		return "", err
	}
	sidecarTemp, err := stageTemp(sidecarPath, line, DocumentMode)
	if err != nil {
		_ = os.Remove(docTemp)
		return "", err
	}

	if err := commitTemp(docTemp, path); err != nil {
		_ = os.Remove(docTemp)
		_ = os.Remove(sidecarTemp)
		return "", err
	}
	if err := commitTemp(sidecarTemp, sidecarPath); err != nil {
		_ = os.Remove(sidecarTemp)
		// A document without its sidecar would fail release validation
		if hadPrior {
			_ = WriteFileAtomic(path, prior, DocumentMode)
		} else {
			_ = os.Remove(path)
		}
		return "", err
	}
	syncDir(filepath.Dir(path))
	return sidecarPath, nil
}

// WriteFileAtomic writes content to a temp file next to path and renames it
// into place. On failure the destination is left untouched.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	tempPath, err := stageTemp(path, content, mode)
	if err != nil {
		return err
	}
	if err := commitTemp(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	syncDir(filepath.Dir(path))
	return nil
}

// stageTemp writes content to a synced temp file in the directory of path
func stageTemp(path string, content []byte, mode os.FileMode) (string, error) {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	fail := func(format string, err error) (string, error) {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return "", fmt.Errorf(format, err)
	}

	if _, err := tempFile.Write(content); err != nil {
		return fail("failed to write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fail("failed to sync temp file: %w", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		return fail("failed to chmod temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tempPath, nil
}

// commitTemp renames a staged temp file over path
func commitTemp(tempPath, path string) error {
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS != "windows" {
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("failed to remove destination before rename: %w", removeErr)
		}
		if renameErr := os.Rename(tempPath, path); renameErr != nil {
			return fmt.Errorf("failed to rename temp file after remove: %w", renameErr)
		}
	}
	return nil
}

func syncDir(dir string) {
	//nolint:gosec // G304: dir derives from the caller-provided destination
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}
