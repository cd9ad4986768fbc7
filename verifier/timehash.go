package verifier

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeHashWindow bounds how far a segment timestamp may drift from the
// verifier's clock in either direction.
const DefaultTimeHashWindow = 5 * time.Minute

const timeHashSep = '$'

// TimeHashVerifier carries publicKey$unixSeconds$hexHMAC in front of the data
// segment, joined by '$'. The MAC is HMAC-SHA256 keyed by the shared secret
// and the private key (joined by a NUL byte) over publicKey$unixSeconds.
//
// The zero value uses DefaultTimeHashWindow and the wall clock.
type TimeHashVerifier struct {
	Window time.Duration
	Now    func() time.Time
}

func (v *TimeHashVerifier) now() time.Time {
	if v != nil && v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *TimeHashVerifier) window() time.Duration {
	if v == nil || v.Window <= 0 {
		return DefaultTimeHashWindow
	}
	return v.Window
}

func timeHashMAC(secretKey, privateKey string, signed []byte) []byte {
	key := make([]byte, 0, len(secretKey)+1+len(privateKey))
	key = append(key, secretKey...)
	key = append(key, 0)
	key = append(key, privateKey...)

	mac := hmac.New(sha256.New, key)
	mac.Write(signed)
	return mac.Sum(nil)
}

// DivideVerifierData splits at the third '$'. The public key and timestamp
// never contain '$', so the data segment may.
func (v *TimeHashVerifier) DivideVerifierData(blob []byte, _ string) ([]byte, []byte, error) {
	end := 0
	for i := 0; i < 3; i++ {
		idx := bytes.IndexByte(blob[end:], timeHashSep)
		if idx < 0 {
			return nil, nil, ErrMalformedSegment
		}
		end += idx + 1
	}
	segment := blob[:end-1]
	rest := blob[end:]
	return segment, rest, nil
}

// MergeVerifierData joins segment and rest with '$'.
func (v *TimeHashVerifier) MergeVerifierData(segment, rest []byte, _ string) ([]byte, error) {
	if bytes.Count(segment, []byte{timeHashSep}) != 2 {
		return nil, ErrMalformedSegment
	}
	out := make([]byte, 0, len(segment)+1+len(rest))
	out = append(out, segment...)
	out = append(out, timeHashSep)
	out = append(out, rest...)
	return out, nil
}

// PublicKeyFromVerifier returns the first field of the segment unverified.
func (v *TimeHashVerifier) PublicKeyFromVerifier(segment []byte, _ string) (string, bool) {
	publicKey, _, _, ok := splitTimeHash(segment)
	if !ok || publicKey == "" {
		return "", false
	}
	return publicKey, true
}

// EncodeVerifier stamps the current time and MACs it with the public key.
func (v *TimeHashVerifier) EncodeVerifier(privateKey, publicKey, secretKey string) ([]byte, error) {
	if publicKey == "" || strings.IndexByte(publicKey, timeHashSep) >= 0 {
		return nil, ErrInvalidPublicKey
	}

	signed := make([]byte, 0, len(publicKey)+21)
	signed = append(signed, publicKey...)
	signed = append(signed, timeHashSep)
	signed = strconv.AppendInt(signed, v.now().Unix(), 10)

	mac := timeHashMAC(secretKey, privateKey, signed)

	out := make([]byte, 0, len(signed)+1+hex.EncodedLen(len(mac)))
	out = append(out, signed...)
	out = append(out, timeHashSep)
	out = hex.AppendEncode(out, mac)
	return out, nil
}

// Verify checks the MAC in constant time, then the timestamp window.
func (v *TimeHashVerifier) Verify(segment []byte, privateKey, secretKey string) bool {
	publicKey, stamp, macHex, ok := splitTimeHash(segment)
	if !ok || publicKey == "" {
		return false
	}

	got, err := hex.DecodeString(macHex)
	if err != nil {
		return false
	}
	signed := segment[:len(publicKey)+1+len(stamp)]
	if !hmac.Equal(got, timeHashMAC(secretKey, privateKey, signed)) {
		return false
	}

	ts, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return false
	}
	return withinWindow(ts, v.now().Unix(), v.window())
}

// withinWindow compares in whole seconds so far-off stamps cannot overflow a
// time.Duration.
func withinWindow(ts, now int64, window time.Duration) bool {
	slack := int64(window / time.Second)
	return ts >= now-slack && ts <= now+slack
}

// DerivedContext implements instantauth.DerivedContexter.
func (v *TimeHashVerifier) DerivedContext() map[string]any {
	return map[string]any{"verifier": "timehash"}
}

func splitTimeHash(segment []byte) (publicKey, stamp, mac string, ok bool) {
	parts := strings.Split(string(segment), string(timeHashSep))
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
