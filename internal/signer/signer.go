// Package signer issues and verifies admission tokens. A token is
// self-contained: a door scanner can verify it without a database lookup.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	payloadVersion = 1
	keyInfo        = "ticket-token-v1"
	separator      = "."
)

var enc = base64.RawURLEncoding

// macLen is the encoded length of an HMAC-SHA256 segment
var macLen = enc.EncodedLen(sha256.Size)

// Reason explains why a token failed verification
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonParseError       Reason = "parse_error"
	ReasonInvalidSignature Reason = "invalid_signature"
)

// ErrWeakSecret is returned when the signing secret is too short
var ErrWeakSecret = errors.New("signing secret must be at least 32 bytes")

// Verification is the result of Verify; it never carries an error
type Verification struct {
	Valid    bool
	TicketID uuid.UUID
	EventID  uuid.UUID
	IssuedAt time.Time
	Reason   Reason
}

type payload struct {
	V   int    `json:"v"`
	TID string `json:"tid"`
	EID string `json:"eid"`
	IAT int64  `json:"iat"`
}

// Signer holds the derived MAC key
type Signer struct {
	key []byte
}

// New derives the MAC key from secret with HKDF-SHA256
func New(secret string) (*Signer, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Issue returns the signed token for a ticket
func (s *Signer) Issue(ticketID, eventID uuid.UUID, issuedAt time.Time) (string, error) {
	raw, err := json.Marshal(payload{
		V:   payloadVersion,
		TID: ticketID.String(),
		EID: eventID.String(),
		IAT: issuedAt.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("encode token payload: %w", err)
	}

	signed := enc.EncodeToString(raw) + separator
	return signed + s.mac(signed), nil
}

// Verify checks the token's shape, then the MAC, then decodes the payload.
// Any altered byte changes either the signed prefix or the MAC segment.
func (s *Signer) Verify(token string) Verification {
	if len(token) < macLen+len(separator)+1 || !tokenShaped(token) {
		return Verification{Reason: ReasonParseError}
	}

	signed, gotMAC := token[:len(token)-macLen], token[len(token)-macLen:]
	if !hmac.Equal([]byte(gotMAC), []byte(s.mac(signed))) {
		return Verification{Reason: ReasonInvalidSignature}
	}

	if !strings.HasSuffix(signed, separator) {
		return Verification{Reason: ReasonParseError}
	}
	raw, err := enc.DecodeString(strings.TrimSuffix(signed, separator))
	if err != nil {
		return Verification{Reason: ReasonParseError}
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil || p.V != payloadVersion {
		return Verification{Reason: ReasonParseError}
	}
	ticketID, err := uuid.Parse(p.TID)
	if err != nil {
		return Verification{Reason: ReasonParseError}
	}
	eventID, err := uuid.Parse(p.EID)
	if err != nil {
		return Verification{Reason: ReasonParseError}
	}

	return Verification{
		Valid:    true,
		TicketID: ticketID,
		EventID:  eventID,
		IssuedAt: time.Unix(p.IAT, 0).UTC(),
	}
}

// tokenShaped reports whether token looks like <base64url>.<mac>. A single
// out-of-place byte is tolerated so one altered byte still reads as tampering.
func tokenShaped(token string) bool {
	sep := len(token) - macLen - len(separator)
	if sep%4 == 1 {
		return false
	}
	deviations := 0
	for i := 0; i < len(token); i++ {
		if i == sep {
			if token[i] != separator[0] {
				deviations++
			}
			continue
		}
		if !isURLSafe(token[i]) {
			deviations++
		}
	}
	return deviations <= 1
}

func isURLSafe(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

func (s *Signer) mac(signed string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(signed))
	return enc.EncodeToString(h.Sum(nil))
}
