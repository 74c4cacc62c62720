package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	keyLength = 32 // AES-256
	nonceSize = 12 // recommended GCM nonce size (96 bits)
)

var (
	// ErrInvalidToken means the token failed to decrypt or decode.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrForbidden means the token was minted for a different user.
	ErrForbidden = errors.New("token not valid for this user")
)

// Service mints and redeems download tokens: the pair "userID:fileID"
// sealed with AES-256-GCM and encoded URL-safe. Tokens carry no server-side
// state and no expiry; they stay redeemable by their owner for as long as
// the key lives.
//
// The Service is constructed once at startup and injected wherever tokens
// are handled; the key is never reachable through a package global.
type Service struct {
	aead cipher.AEAD
}

// NewService builds a Service around a 32-byte key.
func NewService(key []byte) (*Service, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("download token key must be %d bytes, got %d", keyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Service{aead: aead}, nil
}

// ParseKey decodes a textual key in standard or URL-safe base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil && len(b) == keyLength {
			return b, nil
		}
	}
	return nil, fmt.Errorf("key must decode to %d bytes of base64", keyLength)
}

// Mint seals (userID, fileID) into an opaque URL-safe token.
func (s *Service) Mint(userID, fileID uint) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}

	payload := fmt.Sprintf("%d:%d", userID, fileID)
	sealed := s.aead.Seal(nonce, nonce, []byte(payload), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Redeem opens a token and returns the file ID it grants. Any decode,
// decrypt or parse failure yields ErrInvalidToken; a well-formed token
// minted for another user yields ErrForbidden.
func (s *Service) Redeem(tok string, requestingUserID uint) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) < nonceSize {
		return 0, ErrInvalidToken
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	payload, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return 0, ErrInvalidToken
	}

	userPart, filePart, ok := strings.Cut(string(payload), ":")
	if !ok {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(userPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	fileID, err := strconv.ParseUint(filePart, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}

	if uint(userID) != requestingUserID {
		return 0, ErrForbidden
	}
	return uint(fileID), nil
}
