package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/merigaumata/authplatform/pkg/cryptox"
)

// Supported signing algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// SupportedAlgorithms lists the algorithms accepted by NewVerifier by default.
var SupportedAlgorithms = []string{AlgorithmRS256, AlgorithmES256, AlgorithmEdDSA}

// Signer signs claims with one private key and publishes the matching public
// JWK.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
}

type keySigner struct {
	kid    string
	method jwt.SigningMethod
	key    crypto.Signer
	jwk    JWK
}

// NewSigner loads a PEM private key for alg. The key type must match the
// algorithm.
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	if kid == "" {
		return nil, errors.New("jwtx: signer requires a kid")
	}

	raw, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}

	s := &keySigner{kid: kid}
	switch alg {
	case AlgorithmRS256:
		k, ok := raw.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: RS256 requires an RSA private key")
		}
		s.method, s.key = jwt.SigningMethodRS256, k
		s.jwk = NewRSAJWK(kid, alg, &k.PublicKey)

	case AlgorithmES256:
		k, ok := raw.(*ecdsa.PrivateKey)
		if !ok || k.Curve != elliptic.P256() {
			return nil, errors.New("jwtx: ES256 requires a P-256 private key")
		}
		s.method, s.key = jwt.SigningMethodES256, k
		s.jwk = NewES256JWK(kid, alg, &k.PublicKey)

	case AlgorithmEdDSA:
		k, ok := raw.(ed25519.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: EdDSA requires an Ed25519 private key")
		}
		s.method, s.key = jwt.SigningMethodEdDSA, k
		s.jwk = NewEd25519JWK(kid, alg, k.Public().(ed25519.PublicKey))

	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}

	return s, nil
}

func (s *keySigner) Alg() string    { return s.method.Alg() }
func (s *keySigner) KID() string    { return s.kid }
func (s *keySigner) PublicJWK() JWK { return s.jwk }

// Sign serialises claims into a compact JWS with kid in the header.
func (s *keySigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// GenerateSigner creates a fresh key pair for alg and returns its signer
// along with the PEM private key, for callers that persist it.
func GenerateSigner(alg, kid string, rsaBits int) (Signer, []byte, error) {
	var (
		pemKey []byte
		err    error
	)
	switch alg {
	case AlgorithmRS256:
		if rsaBits == 0 {
			rsaBits = cryptox.MinRSABits
		}
		pemKey, err = cryptox.GenerateRSAKey(rsaBits)
	case AlgorithmES256:
		pemKey, err = cryptox.GenerateES256Key()
	case AlgorithmEdDSA:
		pemKey, err = cryptox.GenerateEd25519Key()
	default:
		return nil, nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
	if err != nil {
		return nil, nil, err
	}

	s, err := NewSigner(alg, kid, pemKey)
	if err != nil {
		return nil, nil, err
	}
	return s, pemKey, nil
}
