package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Signer mints and verifies HMAC-signed attachment URLs of the form
// /files/{key}?exp={unix}&sig={hex}.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// ErrSignatureInvalid covers tampered or mismatched signatures.
var ErrSignatureInvalid = eris.New("signature invalid")

// ErrURLExpired indicates the signed URL's validity window has passed.
var ErrURLExpired = eris.New("signed url expired")

// NewSigner builds a signer from the shared secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, eris.New("signing secret is required")
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Sign produces a relative signed URL valid for ttlSeconds from now.
func (s *Signer) Sign(key string, ttlSeconds int64) (string, error) {
	if key == "" {
		return "", eris.New("blob key is required")
	}
	if ttlSeconds <= 0 {
		return "", eris.New("ttl must be positive")
	}

	expires := s.now().Add(time.Duration(ttlSeconds) * time.Second).Unix()
	sig := s.signature(key, expires)

	return fmt.Sprintf("/files/%s?exp=%d&sig=%s", url.PathEscape(key), expires, sig), nil
}

// Verify checks the signature and expiry for the given key.
func (s *Signer) Verify(key string, expires int64, signature string) error {
	expected := s.signature(key, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return eris.Wrapf(ErrSignatureInvalid, "verifying url for key %s", key)
	}

	if s.now().Unix() > expires {
		return eris.Wrapf(ErrURLExpired, "verifying url for key %s", key)
	}

	return nil
}

func (s *Signer) signature(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
