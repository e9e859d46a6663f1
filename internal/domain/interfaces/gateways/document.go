// Package gateways defines interfaces for external service adapters.
package gateways

// SchemaValidator checks an encoded document against the CycloneDX schema
type SchemaValidator interface {
	Validate(data []byte) error
}

// DocumentWriter stores generated documents
type DocumentWriter interface {
	// Write stores data at path, optionally with a .sha256 sidecar, and
	// returns the sidecar path
	Write(path string, data []byte, sidecar bool) (string, error)
}

// SignatureGateway creates and checks detached OpenPGP signatures
type SignatureGateway interface {
	Sign(docPath, keyPath string, passphrase []byte) (sigPath, fingerprint string, err error)
	Verify(docPath, sigPath string, keyPaths []string) (string, error)
}
