package sharetoken

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("secret")
	conv, owner := uuid.New(), uuid.New()

	token := s.Build(conv, owner)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	gotConv, gotOwner, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, conv, gotConv)
	assert.Equal(t, owner, gotOwner)
}

func TestSigner_AcceptsPaddedToken(t *testing.T) {
	s := NewSigner("secret")
	conv, owner := uuid.New(), uuid.New()
	token := s.Build(conv, owner)
	if pad := len(token) % 4; pad != 0 {
		token += strings.Repeat("=", 4-pad)
	}

	gotConv, _, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, conv, gotConv)
}

func TestSigner_RejectsEverySingleCharacterTamper(t *testing.T) {
	s := NewSigner("secret")
	token := s.Build(uuid.New(), uuid.New())

	for i := range token {
		replacement := alphabet[(strings.IndexByte(alphabet, token[i])+1)%len(alphabet)]
		tampered := token[:i] + string(replacement) + token[i+1:]
		_, _, err := s.Parse(tampered)
		assert.ErrorIs(t, err, ErrInvalidToken, "position %d", i)
	}
}

func TestSigner_Rejects(t *testing.T) {
	conv, owner := uuid.New(), uuid.New()
	valid := NewSigner("secret").Build(conv, owner)

	tests := []struct {
		name  string
		token string
	}{
		{"other secret", NewSigner("other").Build(conv, owner)},
		{"not base64", "!!!"},
		{"empty", ""},
		{"truncated", valid[:len(valid)-4]},
		{"two fields", encoding.EncodeToString([]byte(conv.String() + ":" + owner.String()))},
	}
	s := NewSigner("secret")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
