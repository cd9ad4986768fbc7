package verifier

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultJWTTTL is the lifetime of a JWTVerifier segment when TTL is unset.
const DefaultJWTTTL = 5 * time.Minute

const jwtSep = '$'

// JWTVerifier carries a compact HS256 JWS in front of the data segment, joined
// by '$'. The subject is the public key; the signing key is
// HMAC-SHA256(secret, privateKey), so the segment is bound to both.
type JWTVerifier struct {
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
	Now    func() time.Time
}

type segmentClaims struct {
	jwt.RegisteredClaims
}

func (v *JWTVerifier) now() time.Time {
	if v != nil && v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *JWTVerifier) ttl() time.Duration {
	if v == nil || v.TTL <= 0 {
		return DefaultJWTTTL
	}
	return v.TTL
}

func jwtSigningKey(secretKey, privateKey string) []byte {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(privateKey))
	return mac.Sum(nil)
}

// DivideVerifierData splits at the first '$'. Compact JWS never contains one.
func (v *JWTVerifier) DivideVerifierData(blob []byte, _ string) ([]byte, []byte, error) {
	segment, rest, ok := bytes.Cut(blob, []byte{jwtSep})
	if !ok || len(segment) == 0 {
		return nil, nil, ErrMalformedSegment
	}
	return segment, rest, nil
}

// MergeVerifierData joins segment and rest with '$'.
func (v *JWTVerifier) MergeVerifierData(segment, rest []byte, _ string) ([]byte, error) {
	if len(segment) == 0 || bytes.IndexByte(segment, jwtSep) >= 0 {
		return nil, ErrMalformedSegment
	}
	out := make([]byte, 0, len(segment)+1+len(rest))
	out = append(out, segment...)
	out = append(out, jwtSep)
	out = append(out, rest...)
	return out, nil
}

// PublicKeyFromVerifier reads the subject without checking the signature.
func (v *JWTVerifier) PublicKeyFromVerifier(segment []byte, _ string) (string, bool) {
	claims := &segmentClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(string(segment), claims); err != nil {
		return "", false
	}
	if claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// EncodeVerifier signs a token for publicKey.
func (v *JWTVerifier) EncodeVerifier(privateKey, publicKey, secretKey string) ([]byte, error) {
	if publicKey == "" {
		return nil, ErrInvalidPublicKey
	}
	now := v.now()
	claims := segmentClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   publicKey,
			Issuer:    v.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSigningKey(secretKey, privateKey))
	if err != nil {
		return nil, fmt.Errorf("verifier: sign segment: %w", err)
	}
	return []byte(signed), nil
}

// Verify checks the signature, expiry and, when Issuer is set, the issuer.
func (v *JWTVerifier) Verify(segment []byte, privateKey, secretKey string) bool {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	}
	if v.Leeway > 0 {
		options = append(options, jwt.WithLeeway(v.Leeway))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}

	key := jwtSigningKey(secretKey, privateKey)
	token, err := jwt.NewParser(options...).ParseWithClaims(string(segment), &segmentClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing algorithm")
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(*segmentClaims)
	return ok && claims.Subject != ""
}

// DerivedContext implements instantauth.DerivedContexter.
func (v *JWTVerifier) DerivedContext() map[string]any {
	return map[string]any{"verifier": "jwt"}
}
