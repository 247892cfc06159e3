// Package phoneauth implements OTP-based phone sign-in.
package phoneauth

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeTTL is how long an issued OTP stays valid. Re-requesting overwrites
// the previous code and resets the window.
const CodeTTL = 5 * time.Minute

// CodeStore keeps pending OTP codes in Redis.
type CodeStore struct {
	client *redis.Client
}

func NewCodeStore(client *redis.Client) *CodeStore {
	return &CodeStore{client: client}
}

func key(phone string) string {
	return "phoneauth:otp:" + phone
}

// Put stores the code for the phone, replacing any pending one.
func (s *CodeStore) Put(ctx context.Context, phone, code string) error {
	return s.client.Set(ctx, key(phone), code, CodeTTL).Err()
}

// Consume fetches and deletes the pending code. Returns "" when none is
// pending or it expired.
func (s *CodeStore) Consume(ctx context.Context, phone string) (string, error) {
	code, err := s.client.GetDel(ctx, key(phone)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

// GenerateCode returns a 6-digit OTP.
func GenerateCode() (string, error) {
	out := make([]byte, 6)
	// rejection sampling: 250 is the largest multiple of 10 below 256, so
	// accepted bytes map uniformly onto the digits
	buf := make([]byte, 1)
	for i := 0; i < len(out); {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("otp: %w", err)
		}
		if buf[0] >= 250 {
			continue
		}
		out[i] = '0' + buf[0]%10
		i++
	}
	return string(out), nil
}
