package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// ChecksumSuffix is appended to a file name to form its sidecar
const ChecksumSuffix = ".sha256"

// ChecksumService computes and checks sha256sum-style sidecar files
type ChecksumService struct{}

// NewChecksumService creates a new checksum service
func NewChecksumService() *ChecksumService {
	return &ChecksumService{}
}

// SHA256Bytes returns the hex sha256 of data
func (s *ChecksumService) SHA256Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256File returns the hex sha256 of the file at filePath
func (s *ChecksumService) SHA256File(filePath string) (string, error) {
	//nolint:gosec // G304: filePath is function parameter for checksum generation
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", filePath, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FormatSidecar renders one sha256sum line for the named file
func (s *ChecksumService) FormatSidecar(hash, fileName string) []byte {
	return []byte(fmt.Sprintf("%s  %s\n", hash, filepath.Base(fileName)))
}

// ParseSidecar extracts the hash and file name of a sha256sum line.
// Binary-mode markers ("*name") are accepted.
func (s *ChecksumService) ParseSidecar(content []byte) (hash, fileName string, err error) {
	line, _, _ := bytes.Cut(content, []byte("\n"))
	fields := strings.Fields(string(line))
	if len(fields) != 2 {
		return "", "", fmt.Errorf("%w: sidecar is not of the form \"<hash>  <file>\"", entities.ErrChecksumMismatch)
	}
	hash = strings.ToLower(fields[0])
	if len(hash) != sha256.Size*2 {
		return "", "", fmt.Errorf("%w: %q is not a sha256 digest", entities.ErrChecksumMismatch, fields[0])
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", "", fmt.Errorf("%w: %q is not a sha256 digest", entities.ErrChecksumMismatch, fields[0])
	}
	return hash, strings.TrimPrefix(fields[1], "*"), nil
}

// VerifySidecar checks filePath against filePath + ".sha256"
func (s *ChecksumService) VerifySidecar(filePath string) error {
	//nolint:gosec // G304: sidecar path derives from the checked file
	content, err := os.ReadFile(filePath + ChecksumSuffix)
	if err != nil {
		return fmt.Errorf("failed to read checksum sidecar: %w", err)
	}

	want, name, err := s.ParseSidecar(content)
	if err != nil {
		return err
	}
	if name != filepath.Base(filePath) {
		return fmt.Errorf("%w: sidecar names %q, not %q", entities.ErrChecksumMismatch, name, filepath.Base(filePath))
	}

	got, err := s.SHA256File(filePath)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %s has sha256 %s, sidecar says %s", entities.ErrChecksumMismatch, filepath.Base(filePath), got, want)
	}
	return nil
}
