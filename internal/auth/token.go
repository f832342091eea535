// Package auth issues and verifies the signed session tokens handed out by
// the login service and presented to the zone server with AUTH_TOKEN.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TokenIssuer  = "projecta3-login"
	TokenVersion = 1
	maxSkew      = 60 * time.Second
)

var (
	ErrMalformed      = errors.New("malformed token")
	ErrSignature      = errors.New("invalid token signature")
	ErrIssuer         = errors.New("invalid token issuer")
	ErrVersion        = errors.New("unsupported token version")
	ErrIssuedInFuture = errors.New("token issued in the future")
	ErrExpired        = errors.New("token expired")
	ErrReplayed       = errors.New("token already used")
	ErrRevoked        = errors.New("token revoked")
)

// Claims is the signed token body.
type Claims struct {
	Username string `json:"username"`
	Iss      string `json:"iss"`
	Ver      int    `json:"ver"`
	Iat      int64  `json:"iat"`
	Exp      int64  `json:"exp"`
	JTI      string `json:"jti"`
}

// Issuer mints tokens for authenticated accounts.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a token for username and its expiry time.
func (i *Issuer) Issue(username string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", time.Time{}, errors.New("empty username")
	}
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	body, err := json.Marshal(Claims{
		Username: username,
		Iss:      TokenIssuer,
		Ver:      TokenVersion,
		Iat:      now.Unix(),
		Exp:      exp.Unix(),
		JTI:      uuid.NewString(),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode claims: %w", err)
	}
	enc := base64.RawURLEncoding.EncodeToString(body)
	return enc + "." + sign(enc, i.secret), exp, nil
}

// Verifier checks tokens and enforces single use. Safe for concurrent use.
type Verifier struct {
	secret []byte
	now    func() time.Time

	mu      sync.Mutex
	spent   map[string]int64 // jti -> exp (unix)
	revoked map[string]int64
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret:  []byte(secret),
		now:     time.Now,
		spent:   make(map[string]int64),
		revoked: make(map[string]int64),
	}
}

// Verify validates the token and consumes it. A second presentation of the
// same token fails with ErrReplayed.
func (v *Verifier) Verify(token string) (Claims, error) {
	claims, err := v.parse(token)
	if err != nil {
		return Claims{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.pruneLocked()
	if _, ok := v.revoked[claims.JTI]; ok {
		return Claims{}, ErrRevoked
	}
	if _, ok := v.spent[claims.JTI]; ok {
		return Claims{}, ErrReplayed
	}
	v.spent[claims.JTI] = claims.Exp
	return claims, nil
}

// Revoke denies a token id until exp.
func (v *Verifier) Revoke(jti string, exp time.Time) {
	v.mu.Lock()
	v.revoked[jti] = exp.Unix()
	v.mu.Unlock()
}

func (v *Verifier) parse(token string) (Claims, error) {
	enc, sig, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || enc == "" || sig == "" || strings.Contains(sig, ".") {
		return Claims{}, ErrMalformed
	}
	if !hmac.Equal([]byte(sig), []byte(sign(enc, v.secret))) {
		return Claims{}, ErrSignature
	}
	body, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var c Claims
	if err := json.Unmarshal(body, &c); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(c.Username) == "" || c.JTI == "" {
		return Claims{}, ErrMalformed
	}
	if c.Iss != TokenIssuer {
		return Claims{}, ErrIssuer
	}
	if c.Ver != TokenVersion {
		return Claims{}, ErrVersion
	}
	now := v.now().UTC()
	if c.Iat > now.Add(maxSkew).Unix() {
		return Claims{}, ErrIssuedInFuture
	}
	if now.Unix() > c.Exp {
		return Claims{}, ErrExpired
	}
	return c, nil
}

func (v *Verifier) pruneLocked() {
	now := v.now().Unix()
	for id, exp := range v.spent {
		if exp < now {
			delete(v.spent, id)
		}
	}
	for id, exp := range v.revoked {
		if exp < now {
			delete(v.revoked, id)
		}
	}
}

func sign(payload string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
