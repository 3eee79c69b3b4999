package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/unicodecheck"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the result of a successful token verification
type Identity struct {
	UserID      string
	DisplayName string
}

// Verifier turns a bearer token into an Identity. Implementations return an
// error wrapping ErrMissingToken, ErrInvalidToken, ErrMissingSubject or ErrTokenRevoked.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// VerifierFunc adapts a function to the Verifier interface
type VerifierFunc func(ctx context.Context, token string) (Identity, error)

// Verify calls f
func (f VerifierFunc) Verify(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

// Subject claim names, in order of precedence
var subjectClaims = []string{"userId", "id", "sub"}

// JWTVerifier validates tokens signed by a single key
type JWTVerifier struct {
	keys *JWTKeyManager
}

// NewJWTVerifier creates a verifier backed by keys
func NewJWTVerifier(keys *JWTKeyManager) *JWTVerifier {
	return &JWTVerifier{keys: keys}
}

// Verify validates the signature and expiry and extracts the subject
func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	if _, err := v.keys.VerifyToken(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return identityFromClaims(claims)
}

func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	var userID string
	for _, name := range subjectClaims {
		if s, ok := claims[name].(string); ok && s != "" {
			userID = s
			break
		}
	}
	if userID == "" {
		return Identity{}, ErrMissingSubject
	}

	display := userID
	if name, ok := claims["username"].(string); ok {
		if name = unicodecheck.CleanName(name); name != "" {
			display = name
		}
	}
	return Identity{UserID: userID, DisplayName: display}, nil
}

// ChainVerifier tries each verifier in turn and returns the first success.
// It stops early on ErrMissingSubject and ErrTokenRevoked since another key
// cannot change those outcomes.
type ChainVerifier struct {
	verifiers []Verifier
}

// NewChainVerifier builds a chain; the first entry is the primary issuer
func NewChainVerifier(verifiers ...Verifier) *ChainVerifier {
	return &ChainVerifier{verifiers: verifiers}
}

// Verify implements Verifier
func (c *ChainVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}
	lastErr := ErrInvalidToken
	for _, v := range c.verifiers {
		id, err := v.Verify(ctx, token)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, ErrMissingSubject) || errors.Is(err, ErrTokenRevoked) {
			return Identity{}, err
		}
		lastErr = err
	}
	return Identity{}, lastErr
}

// RevocationChecker reports whether a token has been revoked
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// WithRevocation wraps next so revoked tokens are rejected after signature checks
func WithRevocation(next Verifier, checker RevocationChecker) Verifier {
	return VerifierFunc(func(ctx context.Context, token string) (Identity, error) {
		id, err := next.Verify(ctx, token)
		if err != nil {
			return Identity{}, err
		}
		revoked, err := checker.IsRevoked(ctx, token)
		if err != nil {
			// A revocation store outage must not admit revoked tokens
			slogging.Get().Error("Revocation check failed for user %s: %v", id.UserID, err)
			return Identity{}, fmt.Errorf("%w: revocation check unavailable", ErrInvalidToken)
		}
		if revoked {
			return Identity{}, ErrTokenRevoked
		}
		return id, nil
	})
}

// NewVerifierFromSecrets builds the server's verifier: a primary key manager,
// one HS256 verifier per previous secret for rotation, and an optional revocation check.
func NewVerifierFromSecrets(primary *JWTKeyManager, previousSecrets []string, revocation RevocationChecker) (Verifier, error) {
	chain := []Verifier{NewJWTVerifier(primary)}
	for i, secret := range previousSecrets {
		km, err := NewJWTKeyManager(JWTConfig{SigningMethod: "HS256", Secret: secret})
		if err != nil {
			return nil, fmt.Errorf("previous secret %d: %w", i, err)
		}
		chain = append(chain, NewJWTVerifier(km))
	}

	var v Verifier = NewChainVerifier(chain...)
	if revocation != nil {
		v = WithRevocation(v, revocation)
	}
	return v, nil
}

// IssueToken signs a token for identity valid for ttl. Used by seeding tools and tests.
func IssueToken(keys *JWTKeyManager, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId":   id.UserID,
		"username": id.DisplayName,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	return keys.CreateToken(claims)
}
