package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// ChallengeID identifies a pending step-up login continuation.
type ChallengeID [16]byte

const (
	SecretSize   = 32
	tokenRawSize = 16 + SecretSize
)

var ErrMalformedToken = errors.New("malformed token")

func NewChallengeID() (ChallengeID, error) {
	var cid ChallengeID
	_, err := rand.Read(cid[:])
	return cid, err
}

func (c ChallengeID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(c[:])
}

func ParseChallengeID(challengeID string) (ChallengeID, error) {
	var cid ChallengeID

	raw, err := base64.RawURLEncoding.DecodeString(challengeID)
	if err != nil {
		return cid, ErrMalformedToken
	}
	if len(raw) != len(cid) {
		return cid, ErrMalformedToken
	}

	copy(cid[:], raw)
	return cid, nil
}

func NewSecret() ([SecretSize]byte, error) {
	var secret [SecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func HashSecret(secret [SecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

func HashSecretString(secret string) [32]byte {
	return sha256.Sum256([]byte(secret))
}

// EncodeUserToken packs the raw user UUID bytes and a one-time secret into a
// single base64url token. The embedded user id routes the store lookup; only
// the SHA-256 of the secret is ever persisted.
func EncodeUserToken(userID string, secret [SecretSize]byte) (string, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", err
	}

	var raw [tokenRawSize]byte
	copy(raw[:16], uid[:])
	copy(raw[16:], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

func DecodeUserToken(token string) (string, [SecretSize]byte, error) {
	var secret [SecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, ErrMalformedToken
	}
	if len(raw) != tokenRawSize {
		return "", secret, ErrMalformedToken
	}

	var uid uuid.UUID
	copy(uid[:], raw[:16])
	copy(secret[:], raw[16:])

	return uid.String(), secret, nil
}

func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}
