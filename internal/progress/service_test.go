package progress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/dmv-trainer/internal/attempt"
	"github.com/gokatarajesh/dmv-trainer/internal/attempt/scoring"
	"github.com/gokatarajesh/dmv-trainer/internal/auth"
	"github.com/gokatarajesh/dmv-trainer/internal/auth/jwt"
	sqlcgen "github.com/gokatarajesh/dmv-trainer/internal/db/sqlc"
	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// memAggregates follows the Redis cache rules: counters only change when
// cached, and each attempt id is counted once.
type memAggregates struct {
	mu      sync.Mutex
	counts  map[uuid.UUID]map[question.Category]CategoryCount
	recent  map[uuid.UUID][]RecentResult
	counted map[uuid.UUID]bool
	active  map[uuid.UUID]bool
	err     error
}

func newMemAggregates() *memAggregates {
	return &memAggregates{
		counts:  map[uuid.UUID]map[question.Category]CategoryCount{},
		recent:  map[uuid.UUID][]RecentResult{},
		counted: map[uuid.UUID]bool{},
		active:  map[uuid.UUID]bool{},
	}
}

func (m *memAggregates) Add(_ context.Context, id uuid.UUID, counts []CategoryCount, recent RecentResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.counted[recent.AttemptID] {
		return false, nil
	}
	m.counted[recent.AttemptID] = true
	if cached, ok := m.counts[id]; ok {
		for _, c := range counts {
			cur := cached[c.Category]
			cur.Category = c.Category
			cur.Missed += c.Missed
			cur.Total += c.Total
			cached[c.Category] = cur
		}
	}
	if list, ok := m.recent[id]; ok {
		m.recent[id] = append([]RecentResult{recent}, list...)
	}
	m.active[id] = true
	return true, nil
}

func (m *memAggregates) Totals(_ context.Context, id uuid.UUID) ([]CategoryCount, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	cached, ok := m.counts[id]
	if !ok {
		return nil, false, nil
	}
	out := []CategoryCount{}
	for _, c := range question.Categories {
		if cc, ok := cached[c]; ok {
			out = append(out, cc)
		}
	}
	return out, true, nil
}

func (m *memAggregates) StoreTotals(_ context.Context, id uuid.UUID, counts []CategoryCount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cached := map[question.Category]CategoryCount{}
	for _, c := range counts {
		cached[c.Category] = c
	}
	m.counts[id] = cached
	return nil
}

func (m *memAggregates) Recent(_ context.Context, id uuid.UUID, limit int) ([]RecentResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	out, ok := m.recent[id]
	if !ok {
		return nil, false, nil
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, true, nil
}

func (m *memAggregates) StoreRecent(_ context.Context, id uuid.UUID, recent []RecentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if len(recent) > 0 {
		m.recent[id] = append([]RecentResult(nil), recent...)
	}
	return nil
}

func (m *memAggregates) DrainActive(_ context.Context, limit int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for id := range m.active {
		if len(out) == limit {
			break
		}
		out = append(out, id)
		delete(m.active, id)
	}
	return out, nil
}

// evict drops a learner's cached entries the way an expiry or flush would.
func (m *memAggregates) evict(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, id)
	delete(m.recent, id)
}

type mockResultStore struct {
	mock.Mock
}

func (m *mockResultStore) Create(ctx context.Context, params sqlcgen.InsertAttemptResultParams, categories []sqlcgen.InsertAttemptCategoryResultParams) (sqlcgen.AttemptResult, error) {
	args := m.Called(ctx, params, categories)
	return args.Get(0).(sqlcgen.AttemptResult), args.Error(1)
}

func (m *mockResultStore) ListRecent(ctx context.Context, learnerID uuid.UUID, limit int32) ([]sqlcgen.AttemptResult, error) {
	args := m.Called(ctx, learnerID, limit)
	return args.Get(0).([]sqlcgen.AttemptResult), args.Error(1)
}

func (m *mockResultStore) RebuildProgress(ctx context.Context, learnerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, learnerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockResultStore) ListProgress(ctx context.Context, learnerID uuid.UUID) ([]sqlcgen.CategoryProgress, error) {
	args := m.Called(ctx, learnerID)
	return args.Get(0).([]sqlcgen.CategoryProgress), args.Error(1)
}

type categoryRowKey struct {
	result   uuid.UUID
	category string
}

// memResults applies the same write rules as the results queries: one row
// per attempt and category, and lifetime counters bumped only for new rows.
type memResults struct {
	mu         sync.Mutex
	results    []sqlcgen.AttemptResult
	categories map[categoryRowKey]sqlcgen.InsertAttemptCategoryResultParams
	progress   map[uuid.UUID]map[string]sqlcgen.CategoryProgress
}

func newMemResults() *memResults {
	return &memResults{
		categories: map[categoryRowKey]sqlcgen.InsertAttemptCategoryResultParams{},
		progress:   map[uuid.UUID]map[string]sqlcgen.CategoryProgress{},
	}
}

func (m *memResults) Create(_ context.Context, params sqlcgen.InsertAttemptResultParams, categories []sqlcgen.InsertAttemptCategoryResultParams) (sqlcgen.AttemptResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resultID := uuid.UUID(params.ResultID.Bytes)
	learnerID := uuid.UUID(params.LearnerID.Bytes)

	var row sqlcgen.AttemptResult
	found := false
	for _, r := range m.results {
		if uuid.UUID(r.ResultID.Bytes) == resultID {
			row, found = r, true
		}
	}
	if !found {
		row = sqlcgen.AttemptResult{
			ResultID:           params.ResultID,
			LearnerID:          params.LearnerID,
			Mode:               params.Mode,
			SelectedDifficulty: params.SelectedDifficulty,
			CategoryDrill:      params.CategoryDrill,
			ConfidenceMode:     params.ConfidenceMode,
			Total:              params.Total,
			Correct:            params.Correct,
			Percentage:         params.Percentage,
			Passed:             params.Passed,
			CompletedAt:        pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
		}
		m.results = append(m.results, row)
	}

	for _, c := range categories {
		key := categoryRowKey{result: resultID, category: c.Category}
		if _, ok := m.categories[key]; ok {
			continue
		}
		m.categories[key] = c
		if m.progress[learnerID] == nil {
			m.progress[learnerID] = map[string]sqlcgen.CategoryProgress{}
		}
		cur := m.progress[learnerID][c.Category]
		cur.LearnerID = params.LearnerID
		cur.Category = c.Category
		cur.Missed += c.Missed
		cur.Total += c.Total
		m.progress[learnerID][c.Category] = cur
	}
	return row, nil
}

func (m *memResults) ListRecent(_ context.Context, learnerID uuid.UUID, limit int32) ([]sqlcgen.AttemptResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sqlcgen.AttemptResult
	for i := len(m.results) - 1; i >= 0 && len(out) < int(limit); i-- {
		if uuid.UUID(m.results[i].LearnerID.Bytes) == learnerID {
			out = append(out, m.results[i])
		}
	}
	return out, nil
}

func (m *memResults) RebuildProgress(_ context.Context, learnerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owned := map[uuid.UUID]bool{}
	for _, r := range m.results {
		if uuid.UUID(r.LearnerID.Bytes) == learnerID {
			owned[uuid.UUID(r.ResultID.Bytes)] = true
		}
	}
	rebuilt := map[string]sqlcgen.CategoryProgress{}
	for key, c := range m.categories {
		if !owned[key.result] {
			continue
		}
		cur := rebuilt[c.Category]
		cur.LearnerID = pgtype.UUID{Bytes: learnerID, Valid: true}
		cur.Category = c.Category
		cur.Missed += c.Missed
		cur.Total += c.Total
		rebuilt[c.Category] = cur
	}
	m.progress[learnerID] = rebuilt
	return int64(len(rebuilt)), nil
}

func (m *memResults) ListProgress(_ context.Context, learnerID uuid.UUID) ([]sqlcgen.CategoryProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sqlcgen.CategoryProgress, 0, len(m.progress[learnerID]))
	for _, row := range m.progress[learnerID] {
		out = append(out, row)
	}
	return out, nil
}

func (m *memResults) totals(learnerID uuid.UUID, category question.Category) (int32, int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.progress[learnerID][string(category)]
	return row.Missed, row.Total
}

func finishedAttempt(drill *question.Category) (*attempt.Attempt, scoring.Report) {
	a := &attempt.Attempt{
		ID:                 uuid.New(),
		Mode:               attempt.ModeExam,
		ConfidenceMode:     true,
		SelectedDifficulty: question.Mix,
		CategoryDrill:      drill,
	}
	report := scoring.Report{
		Result: scoring.Result{Total: 10, Correct: 7, Wrong: 3, Percentage: 70, PassingCorrect: 9},
		Weaknesses: []scoring.Weakness{
			{WeaknessResult: scoring.WeaknessResult{Category: question.CategoryParking, Missed: 2, Total: 4, MissRate: 0.5}},
			{WeaknessResult: scoring.WeaknessResult{Category: question.CategoryRightOfWay, Missed: 1, Total: 6, MissRate: 1.0 / 6}},
		},
	}
	return a, report
}

func TestServiceRecord(t *testing.T) {
	aggregates := newMemAggregates()
	results := new(mockResultStore)
	svc := NewService(aggregates, results, ServiceOptions{}, zerolog.Nop())
	learner := uuid.New()
	drill := question.CategoryParking
	a, report := finishedAttempt(&drill)

	results.On("Create", mock.Anything, mock.MatchedBy(func(p sqlcgen.InsertAttemptResultParams) bool {
		return uuid.UUID(p.ResultID.Bytes) == a.ID && p.Total == 10 && p.Correct == 7 && !p.Passed &&
			p.ConfidenceMode && p.CategoryDrill == pgtype.Text{String: "Parking", Valid: true}
	}), mock.MatchedBy(func(c []sqlcgen.InsertAttemptCategoryResultParams) bool {
		return len(c) == 2 && c[0].Category == "Parking" && c[0].Missed == 2
	})).Return(sqlcgen.AttemptResult{}, nil)

	require.NoError(t, svc.Record(context.Background(), learner, a, report))
	results.AssertExpectations(t)

	// nothing was cached, so nothing is half-filled
	_, cached, err := aggregates.Totals(context.Background(), learner)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.True(t, aggregates.active[learner])
}

func TestServiceRecordPostgresFailure(t *testing.T) {
	aggregates := newMemAggregates()
	results := new(mockResultStore)
	results.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(sqlcgen.AttemptResult{}, errors.New("conn refused"))
	svc := NewService(aggregates, results, ServiceOptions{}, zerolog.Nop())
	learner := uuid.New()
	require.NoError(t, aggregates.StoreTotals(context.Background(), learner, nil))
	a, report := finishedAttempt(nil)

	err := svc.Record(context.Background(), learner, a, report)
	assert.ErrorContains(t, err, "conn refused")

	totals, _, _ := aggregates.Totals(context.Background(), learner)
	assert.Empty(t, totals, "redis must not count an attempt postgres rejected")
	assert.False(t, aggregates.active[learner])
}

func TestServiceRecordRedisFailureIsLogged(t *testing.T) {
	aggregates := newMemAggregates()
	aggregates.err = errors.New("redis down")
	results := new(mockResultStore)
	results.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(sqlcgen.AttemptResult{}, nil)
	svc := NewService(aggregates, results, ServiceOptions{}, zerolog.Nop())

	a, report := finishedAttempt(nil)
	assert.NoError(t, svc.Record(context.Background(), uuid.New(), a, report))
}

func TestServiceWeaknessesAccumulate(t *testing.T) {
	svc := NewService(newMemAggregates(), newMemResults(), ServiceOptions{}, zerolog.Nop())
	learner := uuid.New()
	ctx := context.Background()

	a, report := finishedAttempt(nil)
	require.NoError(t, svc.Record(ctx, learner, a, report))

	_, source, err := svc.Weaknesses(ctx, learner)
	require.NoError(t, err)
	assert.Equal(t, "postgres", source)

	b, _ := finishedAttempt(nil)
	report.Weaknesses = []scoring.Weakness{
		{WeaknessResult: scoring.WeaknessResult{Category: question.CategoryRightOfWay, Missed: 5, Total: 6}},
	}
	require.NoError(t, svc.Record(ctx, learner, b, report))

	weaknesses, source, err := svc.Weaknesses(ctx, learner)
	require.NoError(t, err)
	assert.Equal(t, "redis", source)
	require.Len(t, weaknesses, 2)
	// right of way 6/12 ties parking 2/4 on rate and wins on missed count
	assert.Equal(t, question.CategoryRightOfWay, weaknesses[0].Category)
	assert.Equal(t, 6, weaknesses[0].Missed)
	assert.Equal(t, 12, weaknesses[0].Total)
	assert.Equal(t, "Right Of Way", weaknesses[0].Label)
	assert.NotEmpty(t, weaknesses[0].Bullets)
	assert.Equal(t, question.CategoryParking, weaknesses[1].Category)
}

func TestServiceLifetimeTotalsSurviveCacheLoss(t *testing.T) {
	aggregates := newMemAggregates()
	results := newMemResults()
	svc := NewService(aggregates, results, ServiceOptions{}, zerolog.Nop())
	worker := NewReconcileWorker(svc, time.Minute, 10, zerolog.Nop())
	learner := uuid.New()
	ctx := context.Background()

	record := func(missed, total int) {
		a, report := finishedAttempt(nil)
		report.Weaknesses = []scoring.Weakness{
			{WeaknessResult: scoring.WeaknessResult{Category: question.CategoryParking, Missed: missed, Total: total}},
		}
		require.NoError(t, svc.Record(ctx, learner, a, report))
	}

	record(30, 40)
	_, _, err := svc.Weaknesses(ctx, learner)
	require.NoError(t, err)
	worker.tick(ctx)

	aggregates.evict(learner)
	record(1, 10)
	worker.tick(ctx)

	missed, total := results.totals(learner, question.CategoryParking)
	assert.Equal(t, int32(31), missed)
	assert.Equal(t, int32(50), total)

	weaknesses, source, err := svc.Weaknesses(ctx, learner)
	require.NoError(t, err)
	assert.Equal(t, "redis", source)
	require.Len(t, weaknesses, 1)
	assert.Equal(t, 31, weaknesses[0].Missed)
	assert.Equal(t, 50, weaknesses[0].Total)
}

func TestServiceRecordRetryCountsOnce(t *testing.T) {
	aggregates := newMemAggregates()
	results := newMemResults()
	svc := NewService(aggregates, results, ServiceOptions{}, zerolog.Nop())
	learner := uuid.New()
	ctx := context.Background()

	_, _, err := svc.Weaknesses(ctx, learner)
	require.NoError(t, err)
	_, err = svc.Recent(ctx, learner, 0)
	require.NoError(t, err)

	a, report := finishedAttempt(nil)
	require.NoError(t, svc.Record(ctx, learner, a, report))
	require.NoError(t, svc.Record(ctx, learner, a, report))

	missed, total := results.totals(learner, question.CategoryParking)
	assert.Equal(t, int32(2), missed)
	assert.Equal(t, int32(4), total)

	weaknesses, source, err := svc.Weaknesses(ctx, learner)
	require.NoError(t, err)
	assert.Equal(t, "redis", source)
	require.Len(t, weaknesses, 2)
	assert.Equal(t, question.CategoryParking, weaknesses[0].Category)
	assert.Equal(t, 4, weaknesses[0].Total)

	recent, err := svc.Recent(ctx, learner, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestServiceWeaknessesPostgresFallback(t *testing.T) {
	aggregates := newMemAggregates()
	results := new(mockResultStore)
	learner := uuid.New()
	results.On("ListProgress", mock.Anything, learner).Return([]sqlcgen.CategoryProgress{
		{Category: "Parking", Missed: 1, Total: 10},
		{Category: "FreewayDriving", Missed: 3, Total: 10},
		{Category: "SharingTheRoad", Missed: 0, Total: 0},
	}, nil).Once()
	svc := NewService(aggregates, results, ServiceOptions{}, zerolog.Nop())

	weaknesses, source, err := svc.Weaknesses(context.Background(), learner)
	require.NoError(t, err)
	assert.Equal(t, "postgres", source)
	require.Len(t, weaknesses, 2)
	assert.Equal(t, question.CategoryFreewayDriving, weaknesses[0].Category)
	assert.InDelta(t, 0.3, weaknesses[0].MissRate, 1e-9)

	// the fill serves the next read
	again, source, err := svc.Weaknesses(context.Background(), learner)
	require.NoError(t, err)
	assert.Equal(t, "redis", source)
	assert.Equal(t, weaknesses, again)
	results.AssertExpectations(t)
}

func TestServiceWeaknessesRedisDown(t *testing.T) {
	aggregates := newMemAggregates()
	aggregates.err = errors.New("redis down")
	results := new(mockResultStore)
	learner := uuid.New()
	results.On("ListProgress", mock.Anything, learner).Return([]sqlcgen.CategoryProgress{
		{Category: "Parking", Missed: 1, Total: 10},
	}, nil)
	svc := NewService(aggregates, results, ServiceOptions{}, zerolog.Nop())

	weaknesses, source, err := svc.Weaknesses(context.Background(), learner)
	require.NoError(t, err)
	assert.Equal(t, "postgres", source)
	assert.Len(t, weaknesses, 1)
}

func TestServiceRecentFallsBackToPostgres(t *testing.T) {
	results := new(mockResultStore)
	learner := uuid.New()
	attemptID := uuid.New()
	completed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	results.On("ListRecent", mock.Anything, learner, int32(10)).Return([]sqlcgen.AttemptResult{{
		ResultID:           pgtype.UUID{Bytes: attemptID, Valid: true},
		Mode:               "practice",
		SelectedDifficulty: "mix",
		CategoryDrill:      pgtype.Text{String: "Parking", Valid: true},
		Total:              10,
		Correct:            9,
		Percentage:         90,
		Passed:             true,
		CompletedAt:        pgtype.Timestamptz{Time: completed, Valid: true},
	}}, nil).Once()
	svc := NewService(newMemAggregates(), results, ServiceOptions{}, zerolog.Nop())

	recent, err := svc.Recent(context.Background(), learner, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, attemptID, recent[0].AttemptID)
	require.NotNil(t, recent[0].CategoryDrill)
	assert.Equal(t, question.CategoryParking, *recent[0].CategoryDrill)
	assert.Equal(t, completed, recent[0].CompletedAt)

	cached, err := svc.Recent(context.Background(), learner, 3)
	require.NoError(t, err)
	assert.Equal(t, recent, cached)
	results.AssertExpectations(t)
}

func TestReconcileWorkerTick(t *testing.T) {
	aggregates := newMemAggregates()
	results := new(mockResultStore)
	learner := uuid.New()
	results.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(sqlcgen.AttemptResult{}, nil)
	results.On("RebuildProgress", mock.Anything, learner).Return(int64(2), nil)
	results.On("ListProgress", mock.Anything, learner).Return([]sqlcgen.CategoryProgress{
		{Category: "Parking", Missed: 2, Total: 4},
		{Category: "RightOfWay", Missed: 1, Total: 6},
	}, nil)
	svc := NewService(aggregates, results, ServiceOptions{}, zerolog.Nop())

	// a stale fill that raced the record below
	require.NoError(t, aggregates.StoreTotals(context.Background(), learner, nil))
	a, report := finishedAttempt(nil)
	aggregates.counted[a.ID] = true
	require.NoError(t, svc.Record(context.Background(), learner, a, report))
	aggregates.active[learner] = true

	worker := NewReconcileWorker(svc, time.Minute, 10, zerolog.Nop())
	worker.tick(context.Background())

	results.AssertNumberOfCalls(t, "RebuildProgress", 1)
	totals, cached, err := aggregates.Totals(context.Background(), learner)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, []CategoryCount{
		{Category: question.CategoryRightOfWay, Missed: 1, Total: 6},
		{Category: question.CategoryParking, Missed: 2, Total: 4},
	}, totals)

	// drained learners are not rebuilt again
	worker.tick(context.Background())
	results.AssertNumberOfCalls(t, "RebuildProgress", 1)
}

func TestReconcileWorkerStopsOnCancel(t *testing.T) {
	svc := NewService(newMemAggregates(), new(mockResultStore), ServiceOptions{}, zerolog.Nop())
	worker := NewReconcileWorker(svc, time.Hour, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, worker.Run(ctx), context.Canceled)
}

func TestHTTPHandlerGet(t *testing.T) {
	svc := NewService(newMemAggregates(), newMemResults(), ServiceOptions{}, zerolog.Nop())
	learner := uuid.New()
	a, report := finishedAttempt(nil)
	require.NoError(t, svc.Record(context.Background(), learner, a, report))

	h := NewHTTPHandler(svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleGet(rec, httptest.NewRequest(http.MethodGet, "/v1/progress", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	get := func() (string, int, int) {
		req := httptest.NewRequest(http.MethodGet, "/v1/progress?limit=5", nil)
		req = req.WithContext(auth.WithClaims(req.Context(), &jwt.Claims{LearnerID: learner}))
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Weaknesses []scoring.Weakness `json:"weaknesses"`
			Recent     []RecentResult     `json:"recent"`
			Source     string             `json:"source"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		return body.Source, len(body.Weaknesses), len(body.Recent)
	}

	source, weaknesses, recent := get()
	assert.Equal(t, "postgres", source)
	assert.Equal(t, 2, weaknesses)
	assert.Equal(t, 1, recent)

	source, weaknesses, recent = get()
	assert.Equal(t, "redis", source)
	assert.Equal(t, 2, weaknesses)
	assert.Equal(t, 1, recent)
}
