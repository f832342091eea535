package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func forge(t *testing.T, c Claims, secret string) string {
	t.Helper()
	body, err := json.Marshal(c)
	require.NoError(t, err)
	enc := base64.RawURLEncoding.EncodeToString(body)
	return enc + "." + sign(enc, []byte(secret))
}

func TestIssueThenVerify(t *testing.T) {
	iss := NewIssuer(testSecret, 10*time.Minute)
	token, exp, err := iss.Issue("  Hero ")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := NewVerifier(testSecret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "Hero", claims.Username)
	assert.Equal(t, TokenIssuer, claims.Iss)
	assert.Equal(t, TokenVersion, claims.Ver)
	assert.NotEmpty(t, claims.JTI)
}

func TestIssueRejectsEmptyUsername(t *testing.T) {
	_, _, err := NewIssuer(testSecret, time.Minute).Issue("   ")
	assert.Error(t, err)
}

func TestVerifyIsSingleUse(t *testing.T) {
	token, _, err := NewIssuer(testSecret, time.Minute).Issue("Hero")
	require.NoError(t, err)

	v := NewVerifier(testSecret)
	_, err = v.Verify(token)
	require.NoError(t, err)
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrReplayed)
}

func TestVerifyRevoked(t *testing.T) {
	token, exp, err := NewIssuer(testSecret, time.Minute).Issue("Hero")
	require.NoError(t, err)

	v := NewVerifier(testSecret)
	c, err := v.parse(token)
	require.NoError(t, err)
	v.Revoke(c.JTI, exp)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestVerifyFailures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	valid := Claims{Username: "Hero", Iss: TokenIssuer, Ver: TokenVersion, Iat: now.Unix(), Exp: now.Add(time.Minute).Unix(), JTI: "abc"}

	with := func(mut func(*Claims)) Claims {
		c := valid
		mut(&c)
		return c
	}

	tests := map[string]struct {
		token string
		want  error
	}{
		"no separator":     {token: "abcdef", want: ErrMalformed},
		"three parts":      {token: "a.b.c", want: ErrMalformed},
		"wrong secret":     {token: forge(t, valid, "other"), want: ErrSignature},
		"wrong issuer":     {token: forge(t, with(func(c *Claims) { c.Iss = "elsewhere" }), testSecret), want: ErrIssuer},
		"wrong version":    {token: forge(t, with(func(c *Claims) { c.Ver = 2 }), testSecret), want: ErrVersion},
		"issued in future": {token: forge(t, with(func(c *Claims) { c.Iat = now.Add(2 * time.Minute).Unix() }), testSecret), want: ErrIssuedInFuture},
		"expired":          {token: forge(t, with(func(c *Claims) { c.Exp = now.Add(-time.Second).Unix() }), testSecret), want: ErrExpired},
		"missing username": {token: forge(t, with(func(c *Claims) { c.Username = " " }), testSecret), want: ErrMalformed},
		"missing jti":      {token: forge(t, with(func(c *Claims) { c.JTI = "" }), testSecret), want: ErrMalformed},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v := NewVerifier(testSecret)
			v.now = fixedClock(now)
			_, err := v.Verify(tc.token)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVerifyToleratesSmallClockSkew(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	c := Claims{Username: "Hero", Iss: TokenIssuer, Ver: TokenVersion, Iat: now.Add(30 * time.Second).Unix(), Exp: now.Add(time.Minute).Unix(), JTI: "skew"}
	v := NewVerifier(testSecret)
	v.now = fixedClock(now)
	_, err := v.Verify(forge(t, c, testSecret))
	assert.NoError(t, err)
}

func TestTamperedPayloadFailsSignature(t *testing.T) {
	token, _, err := NewIssuer(testSecret, time.Minute).Issue("Hero")
	require.NoError(t, err)
	enc, sig, _ := strings.Cut(token, ".")
	body, err := base64.RawURLEncoding.DecodeString(enc)
	require.NoError(t, err)
	tampered := strings.Replace(string(body), "Hero", "Admin", 1)
	_, err = NewVerifier(testSecret).Verify(base64.RawURLEncoding.EncodeToString([]byte(tampered)) + "." + sig)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestSpentTokensArePruned(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	v := NewVerifier(testSecret)
	v.now = fixedClock(now)
	_, err := v.Verify(forge(t, Claims{Username: "Hero", Iss: TokenIssuer, Ver: TokenVersion, Iat: now.Unix(), Exp: now.Add(time.Second).Unix(), JTI: "old"}, testSecret))
	require.NoError(t, err)
	require.Len(t, v.spent, 1)

	v.now = fixedClock(now.Add(time.Minute))
	_, _ = v.Verify("junk.junk")
	_, err = v.Verify(forge(t, Claims{Username: "Hero", Iss: TokenIssuer, Ver: TokenVersion, Iat: now.Unix(), Exp: now.Add(2 * time.Minute).Unix(), JTI: "new"}, testSecret))
	require.NoError(t, err)
	assert.NotContains(t, v.spent, "old")
}
