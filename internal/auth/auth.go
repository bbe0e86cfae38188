package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	// ErrNoCredentials means a strategy found nothing it could check.
	ErrNoCredentials = errors.New("no credentials")

	// ErrInvalidToken means credentials were present but rejected.
	ErrInvalidToken = errors.New("invalid or expired session")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Method string
}

// Strategy extracts an identity from a request.
type Strategy interface {
	Name() string
	Authenticate(r *http.Request) (Identity, error)
}

// Chain tries strategies in order; the first success wins.
type Chain []Strategy

// Authenticate returns the first identity a strategy accepts. When every
// strategy fails the most specific error is returned: ErrInvalidToken if
// any credentials were rejected, ErrNoCredentials otherwise.
func (c Chain) Authenticate(r *http.Request) (Identity, error) {
	var rejected error
	for _, s := range c {
		id, err := s.Authenticate(r)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrNoCredentials) && rejected == nil {
			rejected = fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	if rejected != nil {
		return Identity{}, rejected
	}
	return Identity{}, ErrNoCredentials
}

// TokenVerifier checks HMAC-signed session tokens. The user id is read
// from the "id" claim, falling back to "sub".
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates raw, returning the user id it names.
func (v *TokenVerifier) Verify(raw string) (string, error) {
	if len(v.secret) == 0 {
		return "", fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	for _, key := range []string{"id", "sub"} {
		if id, ok := claims[key].(string); ok && id != "" {
			if !validUserID(id) {
				return "", fmt.Errorf("%w: bad user id", ErrInvalidToken)
			}
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: token names no user", ErrInvalidToken)
}

// Issue signs a token for userID valid for ttl.
func (v *TokenVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Bearer reads "Authorization: Bearer <token>".
type Bearer struct{ Verifier *TokenVerifier }

func (Bearer) Name() string { return "bearer" }

func (b Bearer) Authenticate(r *http.Request) (Identity, error) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return Identity{}, ErrNoCredentials
	}
	id, err := b.Verifier.Verify(strings.TrimSpace(h[len(prefix):]))
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: id, Method: b.Name()}, nil
}

// Cookie reads the session token from a named cookie.
type Cookie struct {
	Verifier   *TokenVerifier
	CookieName string
}

func (Cookie) Name() string { return "cookie" }

func (c Cookie) Authenticate(r *http.Request) (Identity, error) {
	name := c.CookieName
	if name == "" {
		name = "token"
	}
	ck, err := r.Cookie(name)
	if err != nil || ck.Value == "" {
		return Identity{}, ErrNoCredentials
	}
	id, err := c.Verifier.Verify(ck.Value)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: id, Method: c.Name()}, nil
}

// DevHeader trusts the X-User-Id header. Only for local development.
type DevHeader struct{}

const DevHeaderName = "X-User-Id"

func (DevHeader) Name() string { return "dev-header" }

func (d DevHeader) Authenticate(r *http.Request) (Identity, error) {
	id := strings.TrimSpace(r.Header.Get(DevHeaderName))
	if id == "" {
		return Identity{}, ErrNoCredentials
	}
	if !validUserID(id) {
		return Identity{}, fmt.Errorf("%w: bad user id", ErrInvalidToken)
	}
	return Identity{UserID: id, Method: d.Name()}, nil
}

// NewChain builds the standard order: bearer, cookie, then the dev header
// when allowed.
func NewChain(secret string, allowDevHeader bool) Chain {
	v := NewTokenVerifier(secret)
	chain := Chain{Bearer{Verifier: v}, Cookie{Verifier: v}}
	if allowDevHeader {
		chain = append(chain, DevHeader{})
	}
	return chain
}

// validUserID rejects ids that would break the "<user>/<subject>" tenant key.
func validUserID(id string) bool {
	return id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}
