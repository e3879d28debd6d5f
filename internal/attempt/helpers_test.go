package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// bankOf returns n questions of one category and difficulty with ids
// prefixed by the pair.
func bankOf(c question.Category, d question.Difficulty, n int) []question.Question {
	qs := make([]question.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, question.Question{
			ID:          fmt.Sprintf("%s-%s-%03d", c, d, i),
			Prompt:      fmt.Sprintf("Question %d about %s?", i, c.Label()),
			Choices:     []string{"A", "B", "C", "D"},
			AnswerIndex: i % question.ChoiceCount,
			Category:    c,
			Difficulty:  d,
			Rationale:   "Because the handbook says so in plain words.",
			HandbookRef: "Section 1",
		})
	}
	return qs
}

// uniformBank has perCell questions for every category and difficulty.
func uniformBank(perCell int) []question.Question {
	var qs []question.Question
	for _, c := range question.Categories {
		for _, d := range question.Difficulties {
			qs = append(qs, bankOf(c, d, perCell)...)
		}
	}
	return qs
}

func countBy[K comparable](qs []question.Question, key func(question.Question) K) map[K]int {
	out := make(map[K]int)
	for _, q := range qs {
		out[key(q)]++
	}
	return out
}

func assertDistinct(qs []question.Question) error {
	seen := make(map[string]struct{}, len(qs))
	for _, q := range qs {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("duplicate question %s", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// memStore keeps slots as JSON so restores go through decodeSession.
type memStore struct {
	mu     sync.Mutex
	slots  map[uuid.UUID][]byte
	locked map[uuid.UUID]bool
	saves  int
	// clearFailures makes the next n Clear calls fail.
	clearFailures int
}

func newMemStore() *memStore {
	return &memStore{slots: map[uuid.UUID][]byte{}, locked: map[uuid.UUID]bool{}}
}

func (m *memStore) Lock(_ context.Context, id uuid.UUID) (func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked[id] {
		return nil, ErrSlotBusy
	}
	m.locked[id] = true
	return func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.locked, id)
		return nil
	}, nil
}

func (m *memStore) Load(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	data, ok := m.slots[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNoSavedAttempt
	}
	return decodeSession(data)
}

func (m *memStore) Save(_ context.Context, id uuid.UUID, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[id] = data
	m.saves++
	return nil
}

func (m *memStore) Clear(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearFailures > 0 {
		m.clearFailures--
		return errors.New("redis: connection reset")
	}
	delete(m.slots, id)
	return nil
}

func (m *memStore) put(id uuid.UUID, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[id] = []byte(raw)
}

func (m *memStore) has(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.slots[id]
	return ok
}
