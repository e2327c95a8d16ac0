package skbsdk

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// NonceSize is the number of random bytes behind every nonce.
const NonceSize = 128

// Envelope is a request body together with the signature the server checks.
type Envelope struct {
	Body      []byte
	Nonce     string // empty for raw file bodies
	Signature string
}

// Signer proves the client identity by signing request bodies with its RSA key.
// It holds no session state; every envelope stands alone.
type Signer struct {
	key  *rsa.PrivateKey
	rand io.Reader
}

func NewSigner(key *rsa.PrivateKey) (*Signer, error) {
	if key == nil {
		return nil, ErrNoKey
	}
	return &Signer{key: key, rand: rand.Reader}, nil
}

func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

// BuildEnvelope puts a fresh nonce into body, serializes it and signs the result.
func (s *Signer) BuildEnvelope(body Nonced) (*Envelope, error) {
	nonce, err := s.newNonce()
	if err != nil {
		return nil, err
	}
	body.SetNonce(nonce)

	data, err := jsonMarshal(body)
	if err != nil {
		return nil, fmt.Errorf("sdk: encode body: %w", err)
	}

	env, err := s.SignRaw(data)
	if err != nil {
		return nil, err
	}
	env.Nonce = nonce
	return env, nil
}

// SignRaw signs body as is. File uploads use this since their body is the file content.
func (s *Signer) SignRaw(body []byte) (*Envelope, error) {
	digest := sha256.Sum256(body)
	sig, err := rsa.SignPKCS1v15(s.rand, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sdk: sign body: %w", err)
	}

	return &Envelope{
		Body:      body,
		Signature: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

func (s *Signer) newNonce() (string, error) {
	buf := make([]byte, NonceSize)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return "", fmt.Errorf("sdk: generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Verify checks a base64 signature over body. It is the server side of SignRaw.
func Verify(pub *rsa.PublicKey, body []byte, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	digest := sha256.Sum256(body)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}
