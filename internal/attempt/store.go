package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrSlotBusy is returned while another request holds the learner's slot.
var ErrSlotBusy = errors.New("attempt slot busy")

const (
	defaultSlotTTL = 7 * 24 * time.Hour
	slotLockTTL    = 10 * time.Second
)

// Store persists the single in-progress attempt of each learner.
type Store interface {
	// Lock serialises writers on a learner's slot.
	Lock(ctx context.Context, learnerID uuid.UUID) (func() error, error)
	// Load returns ErrNoSavedAttempt when the slot is empty and ErrCorruptSlot
	// when its content cannot be decoded.
	Load(ctx context.Context, learnerID uuid.UUID) (*Session, error)
	Save(ctx context.Context, learnerID uuid.UUID, s *Session) error
	Clear(ctx context.Context, learnerID uuid.UUID) error
}

// RedisStore keeps slots in Redis with atomic locks.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a slot store backed by Redis.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSlotTTL
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "attempt_store").Logger(),
	}
}

func slotKey(learnerID uuid.UUID) string {
	return fmt.Sprintf("attempt:slot:%s", learnerID.String())
}

// Lock acquires a short-lived lock on the learner's slot.
func (s *RedisStore) Lock(ctx context.Context, learnerID uuid.UUID) (func() error, error) {
	key := fmt.Sprintf("attempt:lock:%s", learnerID.String())
	lockValue := uuid.New().String()

	acquired, err := s.redis.SetNX(ctx, key, lockValue, slotLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrSlotBusy
	}

	unlock := func() error {
		// only delete our own lock
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		return s.redis.Eval(context.WithoutCancel(ctx), script, []string{key}, lockValue).Err()
	}
	return unlock, nil
}

// Load restores the learner's saved session.
func (s *RedisStore) Load(ctx context.Context, learnerID uuid.UUID) (*Session, error) {
	data, err := s.redis.Get(ctx, slotKey(learnerID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSavedAttempt
	}
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return decodeSession(data)
}

// Save overwrites the learner's slot and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, learnerID uuid.UUID, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.redis.Set(ctx, slotKey(learnerID), data, s.ttl).Err()
}

// Clear empties the learner's slot.
func (s *RedisStore) Clear(ctx context.Context, learnerID uuid.UUID) error {
	return s.redis.Del(ctx, slotKey(learnerID)).Err()
}

func decodeSession(data []byte) (*Session, error) {
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSlot, err)
	}
	if err := session.normalize(); err != nil {
		return nil, err
	}
	return &session, nil
}
