package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/epa/pkg/adapters/redis"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRecorder_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunTraceStoreContract(t, redis.NewFromClient(client))
}

func TestRedisRecorder_Prefix(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()

	a := redis.NewFromClient(client, redis.WithPrefix("run-a:"))
	b := redis.NewFromClient(client, redis.WithPrefix("run-b:"))

	subject := domain.Subject{ID: 1, Type: "File"}
	require.NoError(t, a.Record(ctx, subject, domain.Transition{From: "Closed", Action: "open", To: "Open"}))

	assert.True(t, mr.Exists("run-a:trace:1"))
	_, err := b.Transitions(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
}

func TestRedisRecorder_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()

	recorder := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	subject := domain.Subject{ID: 1, Type: "File"}
	require.NoError(t, recorder.Record(ctx, subject, domain.Transition{From: "Closed", Action: "open", To: "Open"}))

	subjects, err := recorder.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Subject{subject}, subjects)

	mr.FastForward(2 * time.Second)

	subjects, err = recorder.Subjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, subjects, "expired traces should be pruned from the index")
	assert.Equal(t, int64(0), client.ZCard(ctx, "epa:subjects").Val())
}

func TestRedisRecorder_Clear(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()

	recorder := redis.NewFromClient(client)
	require.NoError(t, recorder.Record(ctx, domain.Subject{ID: 3, Type: "File"}, domain.Transition{From: "Closed", Action: "open"}))
	require.NoError(t, recorder.Clear(ctx))

	assert.Empty(t, mr.Keys())
}
