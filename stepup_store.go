package authcore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stepUpKeyPrefix      = "asc"
	stepUpRecordVersion1 = 1
)

var (
	errStepUpChallengeNotFound = errors.New("step-up challenge not found")
	errStepUpChallengeExpired  = errors.New("step-up challenge expired")
	errStepUpChallengeBackend  = errors.New("step-up challenge backend unavailable")
)

// stepUpChallenge is the pending-login continuation. The verification code
// itself lives in the durable verification record; this only binds the
// opaque challenge id to the login it continues.
type stepUpChallenge struct {
	UserID     string
	IP         string
	RememberMe bool
	ExpiresAt  int64
}

type stepUpStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func newStepUpStore(redisClient *redis.Client, ttl time.Duration) *stepUpStore {
	return &stepUpStore{redis: redisClient, ttl: ttl}
}

func (s *stepUpStore) key(challengeID string) string {
	return stepUpKeyPrefix + ":" + challengeID
}

func (s *stepUpStore) Save(ctx context.Context, challengeID string, record *stepUpChallenge) error {
	encoded, err := encodeStepUpChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(challengeID), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errStepUpChallengeBackend, err)
	}
	return nil
}

func (s *stepUpStore) Get(ctx context.Context, challengeID string) (*stepUpChallenge, error) {
	data, err := s.redis.Get(ctx, s.key(challengeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errStepUpChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errStepUpChallengeBackend, err)
	}

	record, err := decodeStepUpChallenge(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(challengeID)).Result()
		return nil, errStepUpChallengeExpired
	}
	return record, nil
}

func (s *stepUpStore) Delete(ctx context.Context, challengeID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(challengeID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errStepUpChallengeBackend, err)
	}
	return n > 0, nil
}

func encodeStepUpChallenge(record *stepUpChallenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(stepUpRecordVersion1)

	var flags byte
	if record.RememberMe {
		flags |= 1
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.UserID) > 65535 || len(record.IP) > 65535 {
		return nil, errors.New("step-up challenge field length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.IP))); err != nil {
		return nil, err
	}
	buf.WriteString(record.IP)

	return buf.Bytes(), nil
}

func decodeStepUpChallenge(data []byte) (*stepUpChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != stepUpRecordVersion1 {
		return nil, errors.New("invalid step-up challenge version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &stepUpChallenge{
		RememberMe: flags&1 != 0,
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var userLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userLen); err != nil {
		return nil, err
	}
	user := make([]byte, userLen)
	if _, err := io.ReadFull(reader, user); err != nil {
		return nil, err
	}
	record.UserID = string(user)

	var ipLen uint16
	if err := binary.Read(reader, binary.BigEndian, &ipLen); err != nil {
		return nil, err
	}
	ip := make([]byte, ipLen)
	if _, err := io.ReadFull(reader, ip); err != nil {
		return nil, err
	}
	record.IP = string(ip)

	return record, nil
}
