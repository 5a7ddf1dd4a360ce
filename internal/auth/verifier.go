package auth

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMalformedToken       = errors.New("malformed token")
	ErrUnknownKey           = errors.New("unknown signing key")
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	ErrTokenRejected        = errors.New("invalid token")
)

// Claims is the verified identity of a caller. Built per request and
// discarded with it; never persisted, never cached.
type Claims struct {
	Email     string
	ExpiresAt time.Time
}

// Verifier validates bearer tokens against the cached key set. The
// verification algorithm is always taken from the trusted key material,
// never from the token's own header, so an attacker cannot downgrade an
// RSA key to an HMAC secret.
type Verifier struct {
	keys     *KeySetCache
	audience string
	issuer   string
}

func NewVerifier(keys *KeySetCache, audience, issuer string) *Verifier {
	return &Verifier{keys: keys, audience: audience, issuer: issuer}
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verify checks signature, expiry, audience and issuer and returns the
// caller's claims. Signature/expiry/audience/issuer failures all collapse
// into ErrTokenRejected so the response cannot be used as an oracle for
// which check failed.
func (v *Verifier) Verify(token string) (Claims, error) {
	// The header is parsed without trusting it; only the kid is taken.
	unverified, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, ErrMalformedToken
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return Claims{}, ErrMalformedToken
	}

	key, ok := v.keys.Find(kid)
	if !ok {
		return Claims{}, ErrUnknownKey
	}
	if err := checkAlgorithm(key); err != nil {
		return Claims{}, err
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{key.Alg}))
	var claims tokenClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return key.Key, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrTokenRejected
	}
	if !claims.VerifyAudience(v.audience, true) {
		return Claims{}, ErrTokenRejected
	}
	if !claims.VerifyIssuer(v.issuer, true) {
		return Claims{}, ErrTokenRejected
	}
	if claims.Email == "" || claims.ExpiresAt == nil {
		return Claims{}, ErrTokenRejected
	}

	return Claims{Email: claims.Email, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// checkAlgorithm enforces the asymmetric allow-list and that the key
// material actually matches the declared algorithm family.
func checkAlgorithm(key SigningKey) error {
	switch key.Alg {
	case "RS256", "RS384", "RS512":
		if _, ok := key.Key.(*rsa.PublicKey); !ok {
			return ErrUnsupportedAlgorithm
		}
	case "ES256", "ES384", "ES512":
		if _, ok := key.Key.(*ecdsa.PublicKey); !ok {
			return ErrUnsupportedAlgorithm
		}
	default:
		// Covers HMAC and anything else: symmetric algorithms make no
		// sense for public key material.
		return ErrUnsupportedAlgorithm
	}
	return nil
}
