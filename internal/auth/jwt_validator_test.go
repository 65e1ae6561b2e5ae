package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func buildToken(t *testing.T, now time.Time, mutate func(*jwt.Builder) *jwt.Builder) jwt.Token {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer("issuer").
		Audience([]string{"aud"}).
		Subject("sub").
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(time.Minute))
	if mutate != nil {
		b = mutate(b)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	return tok
}

func TestTokenValidatorValidateSuccess(t *testing.T) {
	now := time.Now()
	tok := buildToken(t, now, func(b *jwt.Builder) *jwt.Builder { return b.Claim(ScopeClaim, "admin") })
	v := TokenValidator{Issuer: "issuer", Audience: "aud", ClockSkew: time.Second, Algorithm: jwa.HS256}
	require.NoError(t, v.Validate(tok, jwa.HS256, now))
}

func TestTokenValidatorRejects(t *testing.T) {
	now := time.Now()
	v := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}

	cases := map[string]func(*jwt.Builder) *jwt.Builder{
		"issuer mismatch": func(b *jwt.Builder) *jwt.Builder { return b.Issuer("other") },
		"expired": func(b *jwt.Builder) *jwt.Builder {
			return b.IssuedAt(now.Add(-2 * time.Hour)).NotBefore(now.Add(-2 * time.Hour)).Expiration(now.Add(-time.Minute))
		},
		"not yet valid": func(b *jwt.Builder) *jwt.Builder {
			return b.NotBefore(now.Add(5 * time.Minute)).Expiration(now.Add(10 * time.Minute))
		},
		"scope not a string": func(b *jwt.Builder) *jwt.Builder {
			return b.Claim(ScopeClaim, []string{"admin"})
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, v.Validate(buildToken(t, now, mutate), jwa.HS256, now))
		})
	}
}

func TestTokenValidatorAlgorithmMismatch(t *testing.T) {
	now := time.Now()
	v := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	require.Error(t, v.Validate(buildToken(t, now, nil), jwa.RS256, now))
	require.Error(t, v.Validate(buildToken(t, now, nil), "", now))
	require.Error(t, v.Validate(nil, jwa.HS256, now))
}

func TestTokenValidatorRequiresSubject(t *testing.T) {
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer("issuer").
		Audience([]string{"aud"}).
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	v := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	require.Error(t, v.Validate(tok, jwa.HS256, now))
}
