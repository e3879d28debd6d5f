package auth

import (
	"time"

	"github.com/google/uuid"
)

// Learner is an anonymous test-taker. There are no accounts; the id is the
// only identity and lives in the learner's tokens.
type Learner struct {
	ID          uuid.UUID `json:"learner_id"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// CreateLearnerRequest is the optional body of POST /v1/learners.
type CreateLearnerRequest struct {
	DisplayName string `json:"display_name"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
