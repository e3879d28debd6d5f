package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// CategoryCount is a missed/total pair for one category.
type CategoryCount struct {
	Category question.Category `json:"category"`
	Missed   int               `json:"missed"`
	Total    int               `json:"total"`
}

// RecentResult is a compact summary of a finished attempt.
type RecentResult struct {
	AttemptID          uuid.UUID                   `json:"attempt_id"`
	Mode               string                      `json:"mode"`
	SelectedDifficulty question.SelectedDifficulty `json:"selected_difficulty"`
	CategoryDrill      *question.Category          `json:"category_drill,omitempty"`
	Total              int                         `json:"total"`
	Correct            int                         `json:"correct"`
	Percentage         float64                     `json:"percentage"`
	Passed             bool                        `json:"passed"`
	CompletedAt        time.Time                   `json:"completed_at"`
}

// Aggregates caches per-learner counters in front of Postgres.
type Aggregates interface {
	// Add folds a finished attempt into the cached counters once per attempt
	// id and reports whether it was counted. Absent cache entries stay absent
	// so the next read reloads them whole.
	Add(ctx context.Context, learnerID uuid.UUID, counts []CategoryCount, recent RecentResult) (bool, error)
	// Totals reports false when nothing is cached for the learner.
	Totals(ctx context.Context, learnerID uuid.UUID) ([]CategoryCount, bool, error)
	StoreTotals(ctx context.Context, learnerID uuid.UUID, counts []CategoryCount) error
	Recent(ctx context.Context, learnerID uuid.UUID, limit int) ([]RecentResult, bool, error)
	StoreRecent(ctx context.Context, learnerID uuid.UUID, recent []RecentResult) error
	// DrainActive returns and forgets the learners updated since the last drain.
	DrainActive(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// RedisAggregates keeps counters in Redis hashes and lists.
type RedisAggregates struct {
	redis     *redis.Client
	prefix    string
	recentCap int
	entryTTL  time.Duration
	logger    zerolog.Logger
}

var _ Aggregates = (*RedisAggregates)(nil)

// RedisAggregatesOptions configures key layout and retention.
type RedisAggregatesOptions struct {
	RedisKeyPrefix string
	RecentCap      int
	EntryTTL       time.Duration
}

// countedTTL outlives the attempt slot so a retried finish is still seen.
const countedTTL = 8 * 24 * time.Hour

// loadedField marks a totals hash filled from Postgres, even an empty one.
const loadedField = "loaded"

// KEYS: counted marker, totals hash, recent list, active set.
// ARGV: learner id, marker ttl, entry ttl, recent cap, recent json, then
// field/increment pairs.
var addScript = redis.NewScript(`
if not redis.call("SET", KEYS[1], "1", "NX", "EX", ARGV[2]) then
	return 0
end
local ttl = tonumber(ARGV[3])
if redis.call("EXISTS", KEYS[2]) == 1 then
	for i = 6, #ARGV, 2 do
		redis.call("HINCRBY", KEYS[2], ARGV[i], ARGV[i + 1])
	end
	if ttl > 0 then
		redis.call("EXPIRE", KEYS[2], ttl)
	end
end
if redis.call("EXISTS", KEYS[3]) == 1 then
	redis.call("LPUSH", KEYS[3], ARGV[5])
	redis.call("LTRIM", KEYS[3], 0, tonumber(ARGV[4]) - 1)
	if ttl > 0 then
		redis.call("EXPIRE", KEYS[3], ttl)
	end
end
redis.call("SADD", KEYS[4], ARGV[1])
return 1
`)

// NewRedisAggregates constructs the Redis-backed aggregates store.
func NewRedisAggregates(client *redis.Client, opts RedisAggregatesOptions, logger zerolog.Logger) *RedisAggregates {
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "progress"
	}
	recentCap := opts.RecentCap
	if recentCap <= 0 {
		recentCap = 20
	}
	return &RedisAggregates{
		redis:     client,
		prefix:    prefix,
		recentCap: recentCap,
		entryTTL:  opts.EntryTTL,
		logger:    logger.With().Str("component", "progress_aggregates").Logger(),
	}
}

// Add runs atomically in Redis: it sets the per-attempt marker, increments
// cached totals and pushes the recent result when those are cached, and marks
// the learner active for the reconcile worker.
func (a *RedisAggregates) Add(ctx context.Context, learnerID uuid.UUID, counts []CategoryCount, recent RecentResult) (bool, error) {
	data, err := json.Marshal(recent)
	if err != nil {
		return false, fmt.Errorf("marshal recent result: %w", err)
	}

	keys := []string{
		a.countedKey(learnerID, recent.AttemptID),
		a.categoriesKey(learnerID),
		a.recentKey(learnerID),
		a.activeKey(),
	}
	args := []interface{}{
		learnerID.String(),
		int64(countedTTL / time.Second),
		int64(a.entryTTL / time.Second),
		a.recentCap,
		string(data),
	}
	for _, c := range counts {
		args = append(args, missedField(c.Category), c.Missed, totalField(c.Category), c.Total)
	}

	added, err := addScript.Run(ctx, a.redis, keys, args...).Int()
	if err != nil {
		return false, fmt.Errorf("update progress aggregates: %w", err)
	}
	return added == 1, nil
}

// Totals reads cached lifetime counters in handbook category order.
func (a *RedisAggregates) Totals(ctx context.Context, learnerID uuid.UUID) ([]CategoryCount, bool, error) {
	data, err := a.redis.HGetAll(ctx, a.categoriesKey(learnerID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("fetch progress counters: %w", err)
	}
	if len(data) == 0 {
		return nil, false, nil
	}

	counts := make([]CategoryCount, 0, len(question.Categories))
	for _, c := range question.Categories {
		total := parseInt(data[totalField(c)])
		if total == 0 {
			continue
		}
		counts = append(counts, CategoryCount{
			Category: c,
			Missed:   parseInt(data[missedField(c)]),
			Total:    total,
		})
	}
	return counts, true, nil
}

// StoreTotals replaces the cached counters with authoritative ones.
func (a *RedisAggregates) StoreTotals(ctx context.Context, learnerID uuid.UUID, counts []CategoryCount) error {
	key := a.categoriesKey(learnerID)
	fields := []interface{}{loadedField, 1}
	for _, c := range counts {
		fields = append(fields, missedField(c.Category), c.Missed, totalField(c.Category), c.Total)
	}

	pipe := a.redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields...)
	if a.entryTTL > 0 {
		pipe.Expire(ctx, key, a.entryTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store progress counters: %w", err)
	}
	return nil
}

// Recent returns up to limit cached results, newest first.
func (a *RedisAggregates) Recent(ctx context.Context, learnerID uuid.UUID, limit int) ([]RecentResult, bool, error) {
	if limit <= 0 || limit > a.recentCap {
		limit = a.recentCap
	}
	raw, err := a.redis.LRange(ctx, a.recentKey(learnerID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("fetch recent results: %w", err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}

	out := make([]RecentResult, 0, len(raw))
	for _, item := range raw {
		var r RecentResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			a.logger.Warn().Err(err).Msg("skipping unreadable recent result")
			continue
		}
		out = append(out, r)
	}
	return out, true, nil
}

// StoreRecent replaces the cached list; recent must be newest first.
func (a *RedisAggregates) StoreRecent(ctx context.Context, learnerID uuid.UUID, recent []RecentResult) error {
	if len(recent) == 0 {
		return nil
	}
	items := make([]interface{}, 0, len(recent))
	for _, r := range recent {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal recent result: %w", err)
		}
		items = append(items, data)
	}

	key := a.recentKey(learnerID)
	pipe := a.redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, items...)
	pipe.LTrim(ctx, key, 0, int64(a.recentCap-1))
	if a.entryTTL > 0 {
		pipe.Expire(ctx, key, a.entryTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store recent results: %w", err)
	}
	return nil
}

// DrainActive pops up to limit learners from the active set.
func (a *RedisAggregates) DrainActive(ctx context.Context, limit int) ([]uuid.UUID, error) {
	members, err := a.redis.SPopN(ctx, a.activeKey(), int64(limit)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("drain active learners: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *RedisAggregates) categoriesKey(learnerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:categories", a.prefix, learnerID.String())
}

func (a *RedisAggregates) recentKey(learnerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:recent", a.prefix, learnerID.String())
}

func (a *RedisAggregates) countedKey(learnerID, attemptID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:counted:%s", a.prefix, learnerID.String(), attemptID.String())
}

func (a *RedisAggregates) activeKey() string {
	return a.prefix + ":active"
}

func missedField(c question.Category) string { return string(c) + ":missed" }
func totalField(c question.Category) string  { return string(c) + ":total" }

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0
	}
	return i
}
