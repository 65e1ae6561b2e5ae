package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

const (
	defaultTokenTTL = time.Hour

	// ScopeClaim is the private claim listing the scopes of a token.
	ScopeClaim = "scope"
	// ScopeAdmin grants access to back-office endpoints and marks calculations as administrative.
	ScopeAdmin = "admin"
)

// Service issues and verifies back-office tokens.
type Service struct {
	secret    []byte
	tokenTTL  time.Duration
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	issuer    string
	audience  string
	clockSkew time.Duration
	admins    map[string]string
}

// Config configures the auth service.
type Config struct {
	Secret    string
	TokenTTL  time.Duration
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	// Admins maps back-office user names to argon2id password hashes.
	Admins map[string]string
}

// Claims is the verified content of a token.
type Claims struct {
	Subject string   `json:"sub"`
	Scopes  []string `json:"scopes"`
}

// HasScope reports whether the claims grant scope.
func (c Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// LoginResult is returned after a successful back-office login.
type LoginResult struct {
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_expires_at"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "toko-tierprice"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "toko-admin"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	admins := make(map[string]string, len(cfg.Admins))
	for name, hash := range cfg.Admins {
		if name = strings.TrimSpace(name); name != "" && hash != "" {
			admins[name] = hash
		}
	}

	return &Service{
		secret:   []byte(secret),
		tokenTTL: ttl,
		now:      time.Now,
		signer:   jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		admins:    admins,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// HashPassword returns an argon2id hash suitable for Config.Admins.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

// ParseAdmins decodes "name:hash" pairs separated by ';'.
func ParseAdmins(raw string) map[string]string {
	out := map[string]string{}
	for _, entry := range strings.Split(raw, ";") {
		name, hash, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(hash) == "" {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(hash)
	}
	return out
}

// Login verifies back-office credentials and issues an admin token.
func (s *Service) Login(_ context.Context, username, password string) (LoginResult, error) {
	invalid := common.Unauthorized("INVALID_CREDENTIALS", "invalid username or password", nil)
	username = strings.TrimSpace(username)
	hash, ok := s.admins[username]
	if username == "" || password == "" || !ok {
		return LoginResult{}, invalid
	}
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil || !match {
		return LoginResult{}, invalid
	}
	token, expiry, err := s.SignToken(username, ScopeAdmin)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{AccessToken: token, AccessExpiry: expiry}, nil
}

// SignToken issues a token for subject carrying scopes.
func (s *Service) SignToken(subject string, scopes ...string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := jwt.NewBuilder().
		Subject(subject).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(ScopeClaim, strings.Join(scopes, " ")).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// ParseToken validates a token and returns its claims.
func (s *Service) ParseToken(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, common.Unauthorized("UNAUTHORIZED", "missing token", nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, common.Unauthorized("UNAUTHORIZED", "invalid token", err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return Claims{}, common.Unauthorized("UNAUTHORIZED", "invalid token", fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, common.Unauthorized("UNAUTHORIZED", "invalid token", err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Claims{}, common.Unauthorized("UNAUTHORIZED", "invalid token", err)
	}
	claims := Claims{Subject: parsed.Subject()}
	if raw, ok := parsed.Get(ScopeClaim); ok {
		if scope, ok := raw.(string); ok {
			claims.Scopes = strings.Fields(scope)
		}
	}
	return claims, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
