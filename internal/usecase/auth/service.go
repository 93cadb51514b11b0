// Package auth issues and verifies bearer tokens for the HTTP API.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/kailas-cloud/jurisdoc/internal/domain"
)

// MinSecretLength is the HS256 key floor enforced by the signer.
const MinSecretLength = 32

// Defaults for Config.
const (
	DefaultTokenTTL = 60 * time.Minute
	DefaultIssuer   = "jurisdoc"
	clockLeeway     = 30 * time.Second
)

// Config holds the single API account and signing parameters.
// Exactly one of PasswordHash (bcrypt) or Password must be set.
type Config struct {
	Username     string
	PasswordHash string
	Password     string
	Secret       string
	TokenTTL     time.Duration
	Issuer       string
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Service authenticates the configured account and validates its tokens.
type Service struct {
	username string
	hash     []byte
	key      []byte
	ttl      time.Duration
	issuer   string
	signer   jose.Signer
	now      func() time.Time
}

// New builds a Service. A plaintext password is hashed once here.
func New(cfg Config) (*Service, error) {
	if cfg.Username == "" {
		return nil, errors.New("auth: username is required")
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: secret must be at least %d bytes", MinSecretLength)
	}

	hash := []byte(cfg.PasswordHash)
	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("auth: invalid password hash: %w", err)
		}
	case cfg.Password != "":
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("auth: hash password: %w", err)
		}
	default:
		return nil, errors.New("auth: password or password_hash is required")
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(cfg.Secret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: signer: %w", err)
	}

	s := &Service{
		username: cfg.Username,
		hash:     hash,
		key:      []byte(cfg.Secret),
		ttl:      cfg.TokenTTL,
		issuer:   cfg.Issuer,
		signer:   signer,
		now:      time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.issuer == "" {
		s.issuer = DefaultIssuer
	}
	return s, nil
}

// Login checks the credentials and issues a signed token.
func (s *Service) Login(_ context.Context, username, password string) (Token, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// bcrypt runs even for an unknown user so both paths cost the same.
	passErr := bcrypt.CompareHashAndPassword(s.hash, []byte(password))
	if !userOK || passErr != nil {
		return Token{}, domain.ErrInvalidCredentials
	}

	now := s.now()
	raw, err := jwt.Signed(s.signer).Claims(jwt.Claims{
		Subject:  username,
		Issuer:   s.issuer,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(s.ttl)),
	}).Serialize()
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{AccessToken: raw, TokenType: "Bearer", ExpiresIn: int64(s.ttl.Seconds())}, nil
}

// Validate verifies signature, issuer and expiry and returns the subject.
func (s *Service) Validate(raw string) (string, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	var claims jwt.Claims
	if err := tok.Claims(s.key, &claims); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{Issuer: s.issuer, Time: s.now()}, clockLeeway); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", domain.ErrUnauthorized)
	}
	return claims.Subject, nil
}
