// Package redis stores execution traces in Redis.
//
// Each subject's transitions live in a list, appended with RPUSH. A sorted
// set scored by subject ID indexes the subjects and a hash keeps their
// types.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/epa/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Recorder implements ports.TraceStore using Redis.
type Recorder struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Recorder)

// WithTTL sets the expiration of each subject trace, refreshed on every
// transition.
func WithTTL(ttl time.Duration) Option {
	return func(r *Recorder) {
		r.ttl = ttl
	}
}

// WithPrefix sets the key prefix, which lets several runs share a server.
func WithPrefix(prefix string) Option {
	return func(r *Recorder) {
		r.prefix = prefix
	}
}

// New creates a new Redis recorder with options.
func New(address, password string, db int, opts ...Option) *Recorder {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis recorder from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Recorder {
	r := &Recorder{
		client: client,
		prefix: "epa:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) traceKey(id domain.SubjectID) string {
	return r.prefix + "trace:" + strconv.FormatUint(uint64(id), 10)
}

func (r *Recorder) indexKey() string { return r.prefix + "subjects" }

func (r *Recorder) typesKey() string { return r.prefix + "types" }

// Record appends t to the subject's list and indexes the subject.
func (r *Recorder) Record(ctx context.Context, subject domain.Subject, t domain.Transition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	member := strconv.FormatUint(uint64(subject.ID), 10)
	key := r.traceKey(subject.ID)

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	pipe.ZAdd(ctx, r.indexKey(), backend.Z{Score: float64(subject.ID), Member: member})
	pipe.HSet(ctx, r.typesKey(), member, subject.Type)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record to redis: %w", err)
	}
	return nil
}

// Subjects lists indexed subjects ordered by ID. With a TTL, subjects whose
// trace expired are pruned from the index.
func (r *Recorder) Subjects(ctx context.Context) ([]domain.Subject, error) {
	members, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	if len(members) == 0 {
		return []domain.Subject{}, nil
	}

	types, err := r.client.HMGet(ctx, r.typesKey(), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read subject types: %w", err)
	}

	subjects := make([]domain.Subject, 0, len(members))
	for i, member := range members {
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt subject index entry %q: %w", member, err)
		}
		if r.ttl > 0 {
			n, err := r.client.Exists(ctx, r.traceKey(domain.SubjectID(id))).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to check trace: %w", err)
			}
			if n == 0 {
				r.forget(ctx, member)
				continue
			}
		}
		typ, _ := types[i].(string)
		subjects = append(subjects, domain.Subject{ID: domain.SubjectID(id), Type: typ})
	}
	return subjects, nil
}

// forget drops an expired subject from the index. Failures are ignored:
// the next listing retries.
func (r *Recorder) forget(ctx context.Context, member string) {
	pipe := r.client.Pipeline()
	pipe.ZRem(ctx, r.indexKey(), member)
	pipe.HDel(ctx, r.typesKey(), member)
	_, _ = pipe.Exec(ctx)
}

// Transitions returns the subject's list in recording order.
func (r *Recorder) Transitions(ctx context.Context, id domain.SubjectID) ([]domain.Transition, error) {
	items, err := r.client.LRange(ctx, r.traceKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read trace from redis: %w", err)
	}
	if len(items) == 0 {
		return nil, domain.ErrSubjectNotFound
	}

	out := make([]domain.Transition, 0, len(items))
	for _, item := range items {
		var t domain.Transition
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transition: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Clear deletes every trace under the prefix.
func (r *Recorder) Clear(ctx context.Context) error {
	members, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list subjects: %w", err)
	}

	keys := []string{r.indexKey(), r.typesKey()}
	for _, member := range members {
		keys = append(keys, r.prefix+"trace:"+member)
	}
	return r.client.Del(ctx, keys...).Err()
}

// Close closes the redis client.
func (r *Recorder) Close() error {
	return r.client.Close()
}
