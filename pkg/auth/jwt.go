package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrExpiredToken is returned when a token's exp claim has passed.
var ErrExpiredToken = errors.New("token has expired")

// Claims are the JWT claims the API expects in access tokens.
type Claims struct {
	Email  string   `json:"email"`
	Role   string   `json:"role"`
	Groups []string `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates HS256 access tokens.
type JWTValidator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTValidator creates a validator for tokens signed with the given
// secret. Issuer and audience checks are skipped when the corresponding
// value is empty.
func NewJWTValidator(secret, issuer, audience string) *JWTValidator {
	return &JWTValidator{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// ValidateToken parses and verifies a token string, returning the caller
// identity on success.
func (v *JWTValidator) ValidateToken(tokenString string) (*UserContext, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}

	role := Role(claims.Role)
	if !ValidRole(role) {
		role = RoleReadOnly
	}

	return &UserContext{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
		Groups: claims.Groups,
	}, nil
}
