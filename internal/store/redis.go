package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/tracking"
)

// registerScript inserts a link iff its key is absent and indexes it by creation sequence.
// KEYS: link key, index zset, sequence counter. ARGV: encoded link, token.
var registerScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, ARGV[2])
return 1
`)

// appendScript assigns the next event id and stores the event in one atomic step.
// KEYS: id counter, event zset. ARGV: encoded event without id.
var appendScript = redis.NewScript(`
local id = redis.call('INCR', KEYS[1])
redis.call('ZADD', KEYS[2], id, id .. ':' .. ARGV[1])
return id
`)

type redisLink struct {
	Token       string    `json:"token"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RedisRegistry is a Redis implementation of tracking.Registry.
type RedisRegistry struct {
	client   *redis.Client
	prefix   string // "link:" for token -> encoded link
	indexKey string // "links" zset of tokens scored by creation sequence
	seqKey   string
}

// NewRedisRegistry creates a new Redis-backed link registry.
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{
		client:   client,
		prefix:   "link:",
		indexKey: "links",
		seqKey:   "links:seq",
	}
}

func (r *RedisRegistry) Register(ctx context.Context, link *tracking.TrackedLink) error {
	payload, err := json.Marshal(redisLink{
		Token:       string(link.Token),
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
	})
	if err != nil {
		return err
	}

	keys := []string{r.prefix + string(link.Token), r.indexKey, r.seqKey}

	inserted, err := registerScript.Run(ctx, r.client, keys, payload, string(link.Token)).Int64()
	if err != nil {
		return err
	}

	if inserted == 0 {
		return tracking.ErrDuplicateToken
	}

	return nil
}

func (r *RedisRegistry) Resolve(ctx context.Context, token tracking.Token) (*tracking.TrackedLink, error) {
	raw, err := r.client.Get(ctx, r.prefix+string(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, tracking.ErrNotFound
		}

		return nil, err
	}

	return decodeRedisLink(raw)
}

func (r *RedisRegistry) List(ctx context.Context) ([]*tracking.TrackedLink, error) {
	tokens, err := r.client.ZRevRange(ctx, r.indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(tokens) == 0 {
		return []*tracking.TrackedLink{}, nil
	}

	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = r.prefix + token
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*tracking.TrackedLink, 0, len(values))

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}

		link, err := decodeRedisLink([]byte(s))
		if err != nil {
			return nil, err
		}

		result = append(result, link)
	}

	return result, nil
}

func decodeRedisLink(raw []byte) (*tracking.TrackedLink, error) {
	var stored redisLink
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}

	return &tracking.TrackedLink{
		Token:       tracking.Token(stored.Token),
		OriginalURL: stored.OriginalURL,
		CreatedAt:   stored.CreatedAt,
	}, nil
}

// RedisEventLog is a Redis implementation of activity.Log. Events live in a
// sorted set scored by id; the id counter is a separate key that Clear keeps.
type RedisEventLog struct {
	client    *redis.Client
	counter   string
	eventsKey string
	now       func() time.Time
}

// NewRedisEventLog creates a new Redis-backed event log.
func NewRedisEventLog(client *redis.Client) *RedisEventLog {
	return &RedisEventLog{
		client:    client,
		counter:   "activity:last_id",
		eventsKey: "activity:events",
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *RedisEventLog) Append(ctx context.Context, event *activity.Event) (activity.EventID, error) {
	if err := event.Validate(); err != nil {
		return 0, err
	}

	stored := event.Clone()
	stored.ID = 0

	if stored.Timestamp.IsZero() {
		stored.Timestamp = r.now()
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return 0, err
	}

	id, err := appendScript.Run(ctx, r.client, []string{r.counter, r.eventsKey}, payload).Int64()
	if err != nil {
		return 0, err
	}

	return activity.EventID(id), nil
}

func (r *RedisEventLog) Snapshot(ctx context.Context) ([]*activity.Event, error) {
	members, err := r.client.ZRevRange(ctx, r.eventsKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*activity.Event, 0, len(members))

	for _, member := range members {
		event, err := decodeEventMember(member)
		if err != nil {
			return nil, err
		}

		result = append(result, event)
	}

	return result, nil
}

// Clear drops stored events; the id counter survives so ids are never reused.
func (r *RedisEventLog) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.eventsKey).Err()
}

func decodeEventMember(member string) (*activity.Event, error) {
	idPart, payload, ok := strings.Cut(member, ":")
	if !ok {
		return nil, fmt.Errorf("decode event: missing id prefix")
	}

	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode event id: %w", err)
	}

	var event activity.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	event.ID = activity.EventID(id)

	return &event, nil
}

// Compile-time checks.
var (
	_ tracking.Registry = (*RedisRegistry)(nil)
	_ activity.Log      = (*RedisEventLog)(nil)
)
