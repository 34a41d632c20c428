// Package sounds serves sound board files over HTTP behind expiring
// HMAC-signed URLs, the self-hosted equivalent of the signed object-store
// links the bot used to hand out.
package sounds

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Signer mints and verifies expiring URLs for sound files.
type Signer struct {
	secret    []byte
	publicURL string
	ttl       time.Duration
}

func NewSigner(secret, publicURL string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), publicURL: publicURL, ttl: ttl}
}

// SignedURL returns a URL for the file that the sound server will accept
// until the TTL elapses.
func (s *Signer) SignedURL(fileName string) string {
	exp := time.Now().Add(s.ttl).Unix()
	sig := s.signature(fileName, exp)
	return fmt.Sprintf("%s/sounds/%s?exp=%d&sig=%s",
		s.publicURL, url.PathEscape(fileName), exp, sig)
}

// Verify checks the signature and expiry for a requested file.
func (s *Signer) Verify(fileName, expStr, sig string) bool {
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return false
	}
	if time.Now().Unix() > exp {
		return false
	}
	expected := s.signature(fileName, exp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) signature(fileName string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", fileName, exp)
	return hex.EncodeToString(mac.Sum(nil))
}
