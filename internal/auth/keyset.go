package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// SigningKey is one public key from the provider's JWKS. Immutable once
// fetched; the whole set is replaced on refresh, never patched.
type SigningKey struct {
	Kid string
	Alg string
	Key crypto.PublicKey
}

// KeySetCache fetches and holds the identity provider's current signing
// keys. Reads are lock-cheap and concurrent; Refresh swaps the full set
// atomically so no caller ever observes a half-updated set.
type KeySetCache struct {
	url    string
	client *http.Client

	mu   sync.RWMutex
	keys map[string]SigningKey
}

func NewKeySetCache(jwksURL string) *KeySetCache {
	return &KeySetCache{
		url:    jwksURL,
		client: &http.Client{Timeout: 10 * time.Second},
		keys:   map[string]SigningKey{},
	}
}

// jwk is the subset of RFC 7517 we consume. RSA keys carry n/e, EC keys
// crv/x/y; anything else is skipped.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// Refresh fetches the key set and replaces the cached one. On any error
// the previous set is left untouched.
func (c *KeySetCache) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("jwks request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("jwks decode: %w", err)
	}

	keys, err := parseKeys(set.Keys)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("jwks: key set is empty")
	}

	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()
	return nil
}

// Find returns the key with the given kid, if present.
func (c *KeySetCache) Find(kid string) (SigningKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.keys[kid]
	return k, ok
}

// Len reports the number of cached keys.
func (c *KeySetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

func parseKeys(raw []jwk) (map[string]SigningKey, error) {
	keys := make(map[string]SigningKey, len(raw))
	for _, k := range raw {
		if k.Kid == "" {
			continue
		}
		switch k.Kty {
		case "RSA":
			pub, err := parseRSA(k)
			if err != nil {
				return nil, fmt.Errorf("jwks key %s: %w", k.Kid, err)
			}
			keys[k.Kid] = SigningKey{Kid: k.Kid, Alg: k.Alg, Key: pub}
		case "EC":
			pub, err := parseEC(k)
			if err != nil {
				return nil, fmt.Errorf("jwks key %s: %w", k.Kid, err)
			}
			keys[k.Kid] = SigningKey{Kid: k.Kid, Alg: k.Alg, Key: pub}
		default:
			// oct (symmetric) and unknown key types are not usable for
			// asymmetric token verification; skip them.
			continue
		}
	}
	return keys, nil
}

func parseRSA(k jwk) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}

func parseEC(k jwk) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch k.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve %q", k.Crv)
	}
	x, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}
