package notify

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints short-lived join tokens embedded in start-of-trial
// emails so the conference frontend can admit the holder directly.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// JoinToken signs a token scoped to one recipient on one case.
func (i *TokenIssuer) JoinToken(caseID string, r Recipient) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"case_id":        caseID,
		"recipient_id":   r.ID,
		"recipient_type": string(r.Type),
		"iat":            now.Unix(),
		"exp":            now.Add(i.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("notify: sign join token: %w", err)
	}
	return signed, nil
}

// VerifyJoinToken parses a join token and returns the case and
// recipient it was issued for.
func (i *TokenIssuer) VerifyJoinToken(tokenString string) (caseID, recipientID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("notify: parse join token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("notify: invalid join token")
	}
	caseID, ok = claims["case_id"].(string)
	if !ok {
		return "", "", fmt.Errorf("notify: missing case_id claim")
	}
	recipientID, ok = claims["recipient_id"].(string)
	if !ok {
		return "", "", fmt.Errorf("notify: missing recipient_id claim")
	}
	return caseID, recipientID, nil
}
