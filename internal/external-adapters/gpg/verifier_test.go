package gpg

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// writeTestKeys generates a throwaway key pair and writes the armored
// private and public keyrings into dir.
func writeTestKeys(t *testing.T, dir string) (privPath, pubPath string, entity *openpgp.Entity) {
	t.Helper()

	entity, err := openpgp.NewEntity("SBOM Test", "test only", "sbom@example.invalid",
		&packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	if err != nil {
		t.Fatalf("NewEntity() error = %v", err)
	}

	var priv bytes.Buffer
	w, err := armor.Encode(&priv, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatalf("armor.Encode() error = %v", err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatalf("SerializePrivate() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var pub bytes.Buffer
	if err := entity.Serialize(&pub); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	privPath = filepath.Join(dir, "private.asc")
	pubPath = filepath.Join(dir, "public.gpg")
	if err := os.WriteFile(privPath, priv.Bytes(), 0600); err != nil {
		t.Fatalf("Failed to write private key: %v", err)
	}
	// Binary public keyring exercises the non-armored path
	if err := os.WriteFile(pubPath, pub.Bytes(), 0600); err != nil {
		t.Fatalf("Failed to write public key: %v", err)
	}
	return privPath, pubPath, entity
}

func TestSignVerify_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	privPath, pubPath, entity := writeTestKeys(t, tmpDir)

	docPath := filepath.Join(tmpDir, "sbom.cdx.json")
	if err := os.WriteFile(docPath, []byte(`{"bomFormat":"CycloneDX"}`+"\n"), 0600); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}

	signer, err := NewSignerFromFile(privPath, nil)
	if err != nil {
		t.Fatalf("NewSignerFromFile() error = %v", err)
	}
	if signer.Fingerprint() != strings.ToUpper(bytesHex(entity.PrimaryKey.Fingerprint)) {
		t.Errorf("Fingerprint() = %v", signer.Fingerprint())
	}

	//nolint:gosec // G304: test file
	doc, err := os.Open(docPath)
	if err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	sig, err := signer.SignDetached(doc)
	_ = doc.Close()
	if err != nil {
		t.Fatalf("SignDetached() error = %v", err)
	}
	if !bytes.HasPrefix(sig, []byte(armoredSignaturePrefix)) {
		t.Errorf("SignDetached() output is not armored: %q", sig[:min(len(sig), 40)])
	}

	sigPath := docPath + ".asc"
	if err := os.WriteFile(sigPath, sig, 0600); err != nil {
		t.Fatalf("Failed to write signature: %v", err)
	}

	v := NewVerifier()
	if err := v.ImportKeyFromFile(pubPath); err != nil {
		t.Fatalf("ImportKeyFromFile() error = %v", err)
	}
	if v.GetKeyringSize() != 1 {
		t.Errorf("GetKeyringSize() = %d, want 1", v.GetKeyringSize())
	}

	fingerprint, err := v.VerifySignatureFromFile(docPath, sigPath)
	if err != nil {
		t.Fatalf("VerifySignatureFromFile() error = %v", err)
	}
	if fingerprint != signer.Fingerprint() {
		t.Errorf("fingerprint = %v, want %v", fingerprint, signer.Fingerprint())
	}

	// Tampered document
	if err := os.WriteFile(docPath, []byte(`{"bomFormat":"SPDX"}`+"\n"), 0600); err != nil {
		t.Fatalf("Failed to rewrite document: %v", err)
	}
	if _, err := v.VerifySignatureFromFile(docPath, sigPath); !errors.Is(err, entities.ErrSignature) {
		t.Errorf("VerifySignatureFromFile() error = %v, want ErrSignature", err)
	}
}

func TestNewSignerFromFile_PublicOnly(t *testing.T) {
	tmpDir := t.TempDir()
	_, pubPath, _ := writeTestKeys(t, tmpDir)

	if _, err := NewSignerFromFile(pubPath, nil); err == nil {
		t.Error("NewSignerFromFile() should fail without a private key")
	}
}

// Test importing key from nonexistent file
func TestVerifier_ImportKeyFromFile_NonexistentFile(t *testing.T) {
	v := NewVerifier()

	err := v.ImportKeyFromFile("/nonexistent/key.asc")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to open key file") {
		t.Errorf("Expected 'failed to open key file' error, got: %v", err)
	}
}

// Test importing key from file with no keys
func TestVerifier_ImportKeyFromFile_InvalidFile(t *testing.T) {
	v := NewVerifier()
	keyPath := filepath.Join(t.TempDir(), "empty.asc")
	if err := os.WriteFile(keyPath, []byte("not a gpg key"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := v.ImportKeyFromFile(keyPath); err == nil {
		t.Fatal("Expected error for invalid key file, got nil")
	}
}

func TestVerifier_VerifySignatureFromFile_NoKeysImported(t *testing.T) {
	v := NewVerifier()

	_, err := v.VerifySignatureFromFile("/some/file", "/some/file.asc")
	if err == nil || !strings.Contains(err.Error(), "no GPG keys imported") {
		t.Errorf("Expected 'no GPG keys imported' error, got: %v", err)
	}
}

func bytesHex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return string(out)
}
