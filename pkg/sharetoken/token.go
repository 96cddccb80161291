// Package sharetoken signs read-only links to a conversation.
//
// A token is the unpadded URL-safe base64 of
// "<conversation_id>:<owner_id>:<hex hmac-sha256>" where the MAC covers
// "<conversation_id>:<owner_id>".
package sharetoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid share token")

var encoding = base64.RawURLEncoding.Strict()

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Build(conversationID, ownerID uuid.UUID) string {
	payload := conversationID.String() + ":" + ownerID.String()
	raw := payload + ":" + s.sign(payload)
	return encoding.EncodeToString([]byte(raw))
}

// Parse verifies token and returns the conversation and owner ids. Padding is
// tolerated.
func (s *Signer) Parse(token string) (conversationID, ownerID uuid.UUID, err error) {
	decoded, err := encoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}
	parts := strings.Split(string(decoded), ":")
	if len(parts) != 3 {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}

	expected := s.sign(parts[0] + ":" + parts[1])
	if !hmac.Equal([]byte(parts[2]), []byte(expected)) {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}

	conversationID, err = uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}
	ownerID, err = uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}
	return conversationID, ownerID, nil
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
