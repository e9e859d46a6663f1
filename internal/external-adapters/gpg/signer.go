package gpg

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Signer creates armored detached signatures
type Signer struct {
	entity *openpgp.Entity
}

// NewSignerFromFile loads the first private key of keyPath and unlocks it
// with passphrase when it is encrypted.
func NewSignerFromFile(keyPath string, passphrase []byte) (*Signer, error) {
	keys, err := readKeyRing(keyPath)
	if err != nil {
		return nil, err
	}

	for _, entity := range keys {
		if entity.PrivateKey == nil {
			continue
		}
		if err := unlock(entity, passphrase); err != nil {
			return nil, err
		}
		return &Signer{entity: entity}, nil
	}

	return nil, fmt.Errorf("no private key found in %s", keyPath)
}

// Fingerprint returns the primary key fingerprint
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.entity.PrimaryKey.Fingerprint)
}

// SignDetached returns an armored detached signature over message
func (s *Signer) SignDetached(message io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, s.entity, message, nil); err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return buf.Bytes(), nil
}

func unlock(entity *openpgp.Entity, passphrase []byte) error {
	if entity.PrivateKey.Encrypted {
		if len(passphrase) == 0 {
			return fmt.Errorf("private key is encrypted and no passphrase was given")
		}
		if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}
	for _, sub := range entity.Subkeys {
		if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
			if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("failed to decrypt private subkey: %w", err)
			}
		}
	}
	return nil
}
