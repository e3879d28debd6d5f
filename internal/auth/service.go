package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/dmv-trainer/internal/auth/jwt"
)

const maxDisplayNameLen = 40

var (
	ErrUnknownLearner     = errors.New("unknown learner")
	ErrDisplayNameTooLong = fmt.Errorf("display name longer than %d characters", maxDisplayNameLen)
)

// LearnerStore remembers issued learner ids so refresh tokens of removed
// learners stop working.
type LearnerStore interface {
	Create(ctx context.Context, l Learner) error
	Get(ctx context.Context, id uuid.UUID) (Learner, error)
}

// Service issues and validates learner tokens.
type Service struct {
	learners LearnerStore
	tokenMgr *jwt.Manager
	now      func() time.Time
	logger   zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig jwt.TokenConfig
}

// NewService creates an authentication service.
func NewService(learners LearnerStore, opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{
		learners: learners,
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		now:      time.Now,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// CreateLearner registers a new anonymous learner and issues its tokens.
func (s *Service) CreateLearner(ctx context.Context, req CreateLearnerRequest) (*Learner, *TokenPair, error) {
	name := strings.TrimSpace(req.DisplayName)
	if len(name) > maxDisplayNameLen {
		return nil, nil, ErrDisplayNameTooLong
	}

	learner := Learner{
		ID:          uuid.New(),
		DisplayName: name,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.learners.Create(ctx, learner); err != nil {
		return nil, nil, fmt.Errorf("create learner: %w", err)
	}

	tokens, err := s.generateTokenPair(learner)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("learner_id", learner.ID.String()).Msg("learner created")
	return &learner, tokens, nil
}

// RefreshToken exchanges a valid refresh token for a new pair.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	learner, err := s.learners.Get(ctx, claims.LearnerID)
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(learner)
}

// ValidateToken checks an access token.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(tokenString)
}

func (s *Service) generateTokenPair(l Learner) (*TokenPair, error) {
	subject := jwt.Learner{ID: l.ID, DisplayName: l.DisplayName}

	accessToken, err := s.tokenMgr.GenerateAccessToken(subject)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenMgr.GenerateRefreshToken(subject)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenMgr.AccessTTL().Seconds()),
	}, nil
}

// RedisLearnerStore keeps learners as Redis hashes.
type RedisLearnerStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisLearnerStore creates a learner store. A zero ttl keeps learners
// forever; otherwise every lookup slides the expiry.
func NewRedisLearnerStore(client *redis.Client, ttl time.Duration) *RedisLearnerStore {
	return &RedisLearnerStore{redis: client, ttl: ttl}
}

func learnerKey(id uuid.UUID) string {
	return fmt.Sprintf("learner:%s", id.String())
}

// Create stores l.
func (s *RedisLearnerStore) Create(ctx context.Context, l Learner) error {
	key := learnerKey(l.ID)
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"display_name": l.DisplayName,
		"created_at":   l.CreatedAt.Format(time.RFC3339),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Get loads a learner or returns ErrUnknownLearner.
func (s *RedisLearnerStore) Get(ctx context.Context, id uuid.UUID) (Learner, error) {
	key := learnerKey(id)
	data, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return Learner{}, fmt.Errorf("load learner: %w", err)
	}
	if len(data) == 0 {
		return Learner{}, ErrUnknownLearner
	}
	if s.ttl > 0 {
		s.redis.Expire(ctx, key, s.ttl)
	}

	learner := Learner{ID: id, DisplayName: data["display_name"]}
	if created, err := time.Parse(time.RFC3339, data["created_at"]); err == nil {
		learner.CreatedAt = created
	}
	return learner, nil
}
