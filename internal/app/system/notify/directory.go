package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/reddinamica/reddinamica/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// StaffKey is the Redis key holding the cached staff recipient list.
const StaffKey = "notify:staff"

// StaffSource lists active users holding any of the given roles.
type StaffSource interface {
	IDsByRoles(ctx context.Context, roles []string) ([]primitive.ObjectID, error)
}

// Directory resolves the platform staff who receive lifecycle broadcasts
// (admin, delegated_admin, lesson_manager). The list is cached in memory
// for ttl and, when a Redis client is configured, shared across processes
// under StaffKey.
type Directory struct {
	src   StaffSource
	ttl   time.Duration
	cache redis.Cmdable
	log   *zap.Logger

	mu      sync.Mutex
	staff   []primitive.ObjectID
	expires time.Time
	now     func() time.Time
}

// NewDirectory creates a Directory. cache may be nil.
func NewDirectory(src StaffSource, ttl time.Duration, cache redis.Cmdable, log *zap.Logger) *Directory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{src: src, ttl: ttl, cache: cache, log: log, now: time.Now}
}

// Staff returns the staff recipient ids.
func (d *Directory) Staff(ctx context.Context) ([]primitive.ObjectID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.staff != nil && d.now().Before(d.expires) {
		return d.staff, nil
	}

	if ids, ok := d.fromRedis(ctx); ok {
		d.store(ids)
		return ids, nil
	}

	ids, err := d.src.IDsByRoles(ctx, models.StaffRoles)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	d.store(ids)
	d.toRedis(ctx, ids)
	return ids, nil
}

// Invalidate drops the cached list in memory and in Redis.
func (d *Directory) Invalidate(ctx context.Context) {
	d.mu.Lock()
	d.staff = nil
	d.mu.Unlock()

	if d.cache != nil {
		if err := d.cache.Del(ctx, StaffKey).Err(); err != nil {
			d.log.Warn("staff directory: redis delete failed", zap.Error(err))
		}
	}
}

func (d *Directory) store(ids []primitive.ObjectID) {
	d.staff = ids
	d.expires = d.now().Add(d.ttl)
}

func (d *Directory) fromRedis(ctx context.Context) ([]primitive.ObjectID, bool) {
	if d.cache == nil {
		return nil, false
	}
	raw, err := d.cache.Get(ctx, StaffKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		d.log.Warn("staff directory: redis read failed", zap.Error(err))
		return nil, false
	}
	var hexes []string
	if err := json.Unmarshal(raw, &hexes); err != nil {
		d.log.Warn("staff directory: bad cached value", zap.Error(err))
		return nil, false
	}
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func (d *Directory) toRedis(ctx context.Context, ids []primitive.ObjectID) {
	if d.cache == nil {
		return
	}
	hexes := make([]string, len(ids))
	for i, id := range ids {
		hexes[i] = id.Hex()
	}
	raw, err := json.Marshal(hexes)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, StaffKey, raw, d.ttl).Err(); err != nil {
		d.log.Warn("staff directory: redis write failed", zap.Error(err))
	}
}
