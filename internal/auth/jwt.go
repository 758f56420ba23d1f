package auth

import (
	"context"
	"errors"
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"

	"openstream/internal/models"
)

var (
	// ErrTokenExpired means the token was well-formed but its lifetime has
	// passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed means the credential is not a parseable JWT.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid covers bad signatures and missing claims.
	ErrTokenInvalid = errors.New("token invalid")
)

// JWTVerifier validates HMAC-signed access tokens and resolves them to a
// Principal. Tokens carry the user id in the "user_id" claim and the
// display name in "name", matching the tokens minted by the auth service.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token. The context is accepted for
// interface symmetry with verifiers that call out over the network.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*models.Principal, error) {
	parsed, err := gojwt.Parse(token, func(t *gojwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gojwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		case errors.Is(err, gojwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	claims, ok := parsed.Claims.(gojwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	userID := claimString(claims, "user_id")
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user_id claim", ErrTokenInvalid)
	}

	name := claimString(claims, "name")
	if name == "" {
		name = userID
	}

	return models.NewPrincipal(userID, name), nil
}

// claimString reads a claim that may be encoded as a string or a JSON
// number (numeric ids round-trip as float64 through encoding/json).
func claimString(claims gojwt.MapClaims, key string) string {
	switch value := claims[key].(type) {
	case string:
		return value
	case float64:
		return fmt.Sprintf("%.0f", value)
	default:
		return ""
	}
}
