package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenSigner issues a signed bearer token for the given subject.
type TokenSigner func(subject string, ttl time.Duration) (string, error)

// AuthService exchanges the configured service key for a short-lived JWT.
// The key is held only as a bcrypt hash; callers present the plaintext key
// once and use the token afterwards.
type AuthService struct {
	keyHash   []byte
	signToken TokenSigner
	tokenTTL  time.Duration
}

type TokenResult struct {
	Token     string
	ExpiresIn time.Duration
}

func NewAuthService(keyHash string, signer TokenSigner, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{
		keyHash:   []byte(strings.TrimSpace(keyHash)),
		signToken: signer,
		tokenTTL:  ttl,
	}
}

func (s *AuthService) IssueToken(serviceKey string) (*TokenResult, error) {
	if strings.TrimSpace(serviceKey) == "" {
		return nil, NewUnauthorizedError("invalid service key")
	}
	if len(s.keyHash) == 0 {
		return nil, NewInvalidError("service key not configured")
	}
	if err := bcrypt.CompareHashAndPassword(s.keyHash, []byte(serviceKey)); err != nil {
		return nil, NewUnauthorizedError("invalid service key")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken("scoring-trigger", s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenResult{Token: token, ExpiresIn: s.tokenTTL}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
