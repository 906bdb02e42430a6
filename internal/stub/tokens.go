package stub

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

type claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *claims) userID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// issue creates a signed HS256 JWT of the given type for userID.
func (s *Server) issue(userID int64, typ string) (string, error) {
	ttl := s.accessTTL
	if typ == tokenRefresh {
		ttl = s.refreshTTL
	}
	jti, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	now := s.now()
	c := claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
}

func (s *Server) issuePair(userID int64) (access, refresh string, err error) {
	if access, err = s.issue(userID, tokenAccess); err != nil {
		return "", "", err
	}
	if refresh, err = s.issue(userID, tokenRefresh); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// parseToken verifies signature, expiry and token type.
func (s *Server) parseToken(tok, typ string) (*claims, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(tok, &c, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithLeeway(5*time.Second))
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if c.TokenType != typ {
		return nil, errors.New("wrong token type")
	}
	return &c, nil
}
