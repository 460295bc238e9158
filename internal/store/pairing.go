package store

import (
	"crypto/rand"
	"errors"

	"cliprelay/internal/model"
)

const (
	pairingCodeLength   = 8
	pairingCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// IssueToken creates a single-use pairing token for the account and
// returns it with its remaining lifetime in seconds.
func (s *Store) IssueToken(userID string) (string, int, error) {
	if userID == "" {
		return "", 0, errors.New("missing userID")
	}

	code, err := newPairingCode()
	if err != nil {
		return "", 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[code] = model.PairingToken{
		Token:     code,
		UserID:    userID,
		ExpiresAt: s.nowMillis() + s.pairingTTL.Milliseconds(),
	}
	return code, int(s.pairingTTL.Seconds()), nil
}

// ConsumeToken redeems a pairing token, deleting it atomically. A missing
// or expired token fails; expiry is re-checked here regardless of the
// background sweep.
func (s *Store) ConsumeToken(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pt, ok := s.tokens[token]
	if !ok {
		return "", false
	}
	delete(s.tokens, token)
	if s.nowMillis() >= pt.ExpiresAt {
		return "", false
	}
	return pt.UserID, true
}

func newPairingCode() (string, error) {
	buf := make([]byte, pairingCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = pairingCodeAlphabet[int(b)%len(pairingCodeAlphabet)]
	}
	return string(buf), nil
}
