package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sender delivers one-time verification codes to a phone number.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// LoggingSender logs messages instead of sending them. Used in development
// when no SMS gateway is configured.
type LoggingSender struct{}

// Send logs the message details.
func (s *LoggingSender) Send(_ context.Context, to, message string) error {
	log.Printf("--- Sending SMS (Logged) ---")
	log.Printf("To: %s", to)
	log.Printf("Message: %s", message)
	log.Printf("--- End SMS ---")
	return nil
}

// RedisSender stores the message in Redis so end-to-end tests can fetch the
// verification code instead of receiving a real SMS.
type RedisSender struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSender creates a RedisSender; messages expire after ttl.
func NewRedisSender(rdb *redis.Client, ttl time.Duration) *RedisSender {
	return &RedisSender{rdb: rdb, ttl: ttl}
}

type storedMessage struct {
	To      string    `json:"to"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Send stores the message under mocksms:<phone>.
func (s *RedisSender) Send(ctx context.Context, to, message string) error {
	data, err := json.Marshal(storedMessage{To: to, Message: message, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal mock SMS: %w", err)
	}
	key := fmt.Sprintf("mocksms:%s", to)
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store mock SMS: %w", err)
	}
	return nil
}
