package social

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// StateManager issues and verifies the opaque state value that must
// round-trip through the provider redirect. The value is a random nonce
// plus expiry, HMAC-signed so it cannot be minted or tampered with by
// the client.
type StateManager struct {
	key []byte
	ttl time.Duration
}

func NewStateManager(key []byte, ttl time.Duration) *StateManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateManager{key: key, ttl: ttl}
}

// Issue returns a fresh signed state token.
func (m *StateManager) Issue() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	expires := time.Now().Add(m.ttl).Unix()
	payload := base64.RawURLEncoding.EncodeToString(nonce) + "." + strconv.FormatInt(expires, 10)

	return payload + "." + m.sign(payload), nil
}

// Verify checks the signature and expiry of a state token.
func (m *StateManager) Verify(state string) error {
	parts := strings.Split(state, ".")
	if len(parts) != 3 {
		return ErrInvalidState
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(m.sign(payload)), []byte(parts[2])) {
		return ErrInvalidState
	}

	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Now().Unix() > expires {
		return ErrInvalidState
	}

	return nil
}

func (m *StateManager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
