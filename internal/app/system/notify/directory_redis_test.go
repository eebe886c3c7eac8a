package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Runs only when REDDINAMICA_TEST_REDIS_ADDR points at a disposable server.
func TestDirectory_SharedThroughRedis(t *testing.T) {
	addr := os.Getenv("REDDINAMICA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REDDINAMICA_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	rdb.Del(ctx, StaffKey)
	defer rdb.Del(ctx, StaffKey)

	staffID := primitive.NewObjectID()
	first := &countingSource{ids: []primitive.ObjectID{staffID}}
	second := &countingSource{}

	if _, err := NewDirectory(first, time.Minute, rdb, nil).Staff(ctx); err != nil {
		t.Fatalf("first Staff: %v", err)
	}
	ids, err := NewDirectory(second, time.Minute, rdb, nil).Staff(ctx)
	if err != nil {
		t.Fatalf("second Staff: %v", err)
	}
	if second.calls != 0 {
		t.Error("second directory should read the shared cache")
	}
	if len(ids) != 1 || ids[0] != staffID {
		t.Errorf("shared ids: got %v", ids)
	}
}
