package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid auth token")
	ErrExpiredToken = fmt.Errorf("%w: expired", ErrInvalidToken)
)

const (
	defaultTokenTTL = 24 * time.Hour
	tokenVersion    = "m1"
)

var tokenEncoding = base64.RawURLEncoding

// HMACStrategy signs "version.member.expiry" payloads with HMAC-SHA256.
type HMACStrategy struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewHMACStrategy builds HMACStrategy with provided secret and options.
func NewHMACStrategy(secret string, opts Options) *HMACStrategy {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &HMACStrategy{secret: []byte(secret), ttl: ttl, now: now}
}

// IssueToken generates a signed token for the member.
func (s *HMACStrategy) IssueToken(userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("issue token: invalid member id %d", userID)
	}
	expires := s.now().Add(s.ttl).Unix()
	payload := strings.Join([]string{tokenVersion, strconv.FormatInt(userID, 10), strconv.FormatInt(expires, 10)}, ".")
	return tokenEncoding.EncodeToString([]byte(payload)) + "." + s.signature(payload), nil
}

// ParseToken validates token and returns the member id it was issued for.
func (s *HMACStrategy) ParseToken(token string) (int64, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return 0, ErrInvalidToken
	}
	raw, err := tokenEncoding.DecodeString(encoded)
	if err != nil {
		return 0, ErrInvalidToken
	}
	payload := string(raw)
	if !hmac.Equal([]byte(s.signature(payload)), []byte(sig)) {
		return 0, ErrInvalidToken
	}

	parts := strings.Split(payload, ".")
	if len(parts) != 3 || parts[0] != tokenVersion {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}

	expires, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}

	if !s.now().Before(time.Unix(expires, 0)) {
		return 0, ErrExpiredToken
	}

	return userID, nil
}

func (s *HMACStrategy) Name() string {
	return "hmac-sha256"
}

func (s *HMACStrategy) signature(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return tokenEncoding.EncodeToString(mac.Sum(nil))
}
