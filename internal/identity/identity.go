// ABOUTME: Resolves connection handshakes to durable user identities
// ABOUTME: JWT session verification with explicit fallback to the client-supplied temp id

package identity

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized indicates no identity could be resolved at all: the session
// token was unusable and no temporary client id was supplied.
var ErrUnauthorized = errors.New("unauthorized: no resolvable identity")

// Source describes how an identity was obtained.
type Source int

const (
	// Resolved means the session token verified and named the user.
	Resolved Source = iota
	// Fallback means verification failed and the temporary client id was
	// used as the user id instead. Deliberate degradation, not an error.
	Fallback
)

// Identity is the outcome of resolving a connection handshake.
type Identity struct {
	UserID string
	Source Source
}

// Resolver turns handshake credentials into an Identity.
type Resolver interface {
	Resolve(token, tempID string) (Identity, error)
}

// JWTResolver verifies HS256-signed session tokens and reads the user id
// from the "sub" claim.
type JWTResolver struct {
	secret []byte
	logger *slog.Logger
}

// NewJWTResolver creates a resolver with the given signing secret.
// Pass nil logger for default.
func NewJWTResolver(secret []byte, logger *slog.Logger) *JWTResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &JWTResolver{
		secret: secret,
		logger: logger.With("component", "identity"),
	}
}

// Resolve verifies the session token and returns a Resolved identity. Any
// token failure falls back to the temporary client id; resolution only hard
// fails with ErrUnauthorized when the temp id is also absent.
func (r *JWTResolver) Resolve(token, tempID string) (Identity, error) {
	if token != "" {
		userID, err := r.verify(token)
		if err == nil {
			return Identity{UserID: userID, Source: Resolved}, nil
		}
		r.logger.Debug("session token rejected, falling back to temp id", "error", err)
	}

	if tempID == "" {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: tempID, Source: Fallback}, nil
}

func (r *JWTResolver) verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub claim")
	}
	return sub, nil
}
