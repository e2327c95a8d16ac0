// Package identity loads the RSA private key the client signs requests with.
package identity

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LegacyKeyFile is the key file name looked up beside the binary and in the working directory.
const LegacyKeyFile = "private.pem"

var (
	ErrKeyNotFound = errors.New("identity: private key not found")
	ErrNoPEMBlock  = errors.New("identity: no PEM block")
	ErrNotRSA      = errors.New("identity: private key is not RSA")
)

// KeySource yields the client's signing key.
type KeySource interface {
	PrivateKey(ctx context.Context) (*rsa.PrivateKey, error)
}

// FileSource reads a PEM encoded key from disk.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) PrivateKey(_ context.Context) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, f.Path)
	} else if err != nil {
		return nil, fmt.Errorf("identity: read key: %w", err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey accepts PKCS#1 ("RSA PRIVATE KEY") and PKCS#8 ("PRIVATE KEY") blocks.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("identity: parse key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return key, nil
}

// LegacyKeyPath returns the first private.pem found in dirs.
func LegacyKeyPath(dirs ...string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, LegacyKeyFile)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrKeyNotFound
}
