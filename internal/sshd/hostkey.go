package sshd

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

const hostKeyComment = "minesd"

func generateHostKey() (ssh.Signer, []byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, nil, err
	}
	block, err := ssh.MarshalPrivateKey(priv, hostKeyComment)
	if err != nil {
		return nil, nil, err
	}
	return signer, pem.EncodeToMemory(block), nil
}

// LoadHostKey reads a PEM private key from path. A missing file is created
// with a fresh ed25519 key, and an empty path yields a key that lives as long
// as the process.
func LoadHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		signer, _, err := generateHostKey()
		return signer, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		signer, data, err := generateHostKey()
		if err != nil {
			return nil, fmt.Errorf("unable to generate host key: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, fmt.Errorf("unable to save host key: %w", err)
		}
		return signer, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read host key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse host key %s: %w", path, err)
	}
	return signer, nil
}
