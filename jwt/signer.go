package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignerConfig configures a [Signer].
type SignerConfig struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	TTL           time.Duration
	Issuer        string
}

// Signer issues access tokens. It backs the in-process test server used by the
// load-test command and package tests; production tokens come from the backend.
type Signer struct {
	config SignerConfig
	now    func() time.Time
}

// NewSigner validates cfg and returns a [Signer].
func NewSigner(cfg SignerConfig) (*Signer, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Signer{config: cfg, now: time.Now}, nil
}

// Issue mints a token for subject. A unique id keeps consecutive tokens distinct
// even within the same second.
func (s *Signer) Issue(subject, email, role, id string) (string, error) {
	now := s.now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        id,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
		},
	}

	if s.config.SigningMethod == MethodHS256 {
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.PrivateKey)
	}
	key, err := parseEdPrivateKey(s.config.PrivateKey)
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
}
