package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported JWT algorithm.
type SigningMethod string

const (
	// MethodEd25519 selects EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 selects HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
)

// ErrNoExpiry is returned when a token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// Claims is the subset of access-token claims the client cares about.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// InspectorConfig configures an [Inspector].
//
// With an empty VerifyKey tokens are decoded without signature checks.
type InspectorConfig struct {
	SigningMethod SigningMethod
	VerifyKey     []byte
	Leeway        time.Duration
}

// Inspector extracts claims from access tokens.
type Inspector struct {
	config InspectorConfig
	now    func() time.Time
}

// NewInspector validates cfg and returns an [Inspector].
func NewInspector(cfg InspectorConfig) (*Inspector, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.VerifyKey) > 0 {
		switch cfg.SigningMethod {
		case MethodHS256:
		case MethodEd25519, "":
			cfg.SigningMethod = MethodEd25519
			if _, err := parseEdPublicKey(cfg.VerifyKey); err != nil {
				return nil, err
			}
		default:
			return nil, errors.New("unsupported signing method")
		}
	}
	return &Inspector{config: cfg, now: time.Now}, nil
}

// Verifies reports whether signatures are checked.
func (i *Inspector) Verifies() bool {
	return i != nil && len(i.config.VerifyKey) > 0
}

// Parse decodes tokenStr. Unverified inspectors accept expired tokens so callers
// can read exp; verifying inspectors apply full validation including expiry.
func (i *Inspector) Parse(tokenStr string) (*Claims, error) {
	if i == nil {
		return nil, errors.New("nil inspector")
	}
	claims := &Claims{}

	if !i.Verifies() {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method().Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != i.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return i.verifyKey()
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of tokenStr.
func (i *Inspector) ExpiresAt(tokenStr string) (time.Time, error) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether tokenStr expires within window from now (leeway
// included). Unparseable tokens and tokens without exp report false so the server
// stays the authority on validity.
func (i *Inspector) ExpiresWithin(tokenStr string, window time.Duration) bool {
	if i == nil || tokenStr == "" {
		return false
	}
	exp, err := i.ExpiresAt(tokenStr)
	if err != nil {
		return false
	}
	return !i.now().Add(window).Before(exp.Add(i.config.Leeway))
}

func (i *Inspector) method() jwt.SigningMethod {
	if i.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (i *Inspector) verifyKey() (interface{}, error) {
	if i.config.SigningMethod == MethodHS256 {
		return i.config.VerifyKey, nil
	}
	return parseEdPublicKey(i.config.VerifyKey)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
