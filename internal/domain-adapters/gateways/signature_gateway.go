package gateways

import (
	"fmt"
	"os"

	"github.com/meator/android-tools-static/internal/domain/interfaces/gateways"
	"github.com/meator/android-tools-static/internal/external-adapters/gpg"
)

// SignatureSuffix is appended to a document name to form its detached signature
const SignatureSuffix = ".asc"

// signatureGateway wraps the OpenPGP adapter for detached document signatures
type signatureGateway struct{}

var _ gateways.SignatureGateway = (*signatureGateway)(nil)

// NewSignatureGateway creates a new signature gateway
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewSignatureGateway() *signatureGateway {
	return &signatureGateway{}
}

// Sign writes an armored detached signature of docPath to docPath + ".asc".
// It returns the signature path and the signing key fingerprint.
func (g *signatureGateway) Sign(docPath, keyPath string, passphrase []byte) (sigPath, fingerprint string, err error) {
	signer, err := gpg.NewSignerFromFile(keyPath, passphrase)
	if err != nil {
		return "", "", fmt.Errorf("failed to load signing key: %w", err)
	}

	//nolint:gosec // G304: docPath is user-provided for signing
	doc, err := os.Open(docPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to open document: %w", err)
	}
	//nolint:errcheck // Defer close
	defer doc.Close()

	sig, err := signer.SignDetached(doc)
	if err != nil {
		return "", "", err
	}

	sigPath = docPath + SignatureSuffix
	if err := WriteFileAtomic(sigPath, sig, DocumentMode); err != nil {
		return "", "", err
	}
	return sigPath, signer.Fingerprint(), nil
}

// Verify checks the detached signature at sigPath against the keys in
// keyPaths and returns the fingerprint of the key that made it.
// An empty sigPath means docPath + ".asc".
func (g *signatureGateway) Verify(docPath, sigPath string, keyPaths []string) (string, error) {
	if sigPath == "" {
		sigPath = docPath + SignatureSuffix
	}

	verifier := gpg.NewVerifier()
	for _, keyPath := range keyPaths {
		if err := verifier.ImportKeyFromFile(keyPath); err != nil {
			return "", fmt.Errorf("failed to import GPG key from file: %w", err)
		}
	}

	if verifier.GetKeyringSize() == 0 {
		return "", fmt.Errorf("no public key to verify against")
	}

	fingerprint, err := verifier.VerifySignatureFromFile(docPath, sigPath)
	if err != nil {
		return "", fmt.Errorf("GPG signature verification failed: %w", err)
	}
	return fingerprint, nil
}
