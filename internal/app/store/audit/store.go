// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAcademic = "academic"
	CategoryAdmin    = "admin"
)

// Academic event types
const (
	EventLessonCreated       = "lesson_created"
	EventLessonTransition    = "lesson_transition"
	EventLessonDeleted       = "lesson_deleted"
	EventLeaderTransferred   = "lesson_leader_transferred"
	EventGroupCreated        = "academic_group_created"
	EventGroupUpdated        = "academic_group_updated"
	EventGroupPermissions    = "academic_group_permissions_updated"
	EventGroupDeleted        = "academic_group_deleted"
	EventStudentAddedToGroup = "student_added_to_group"
	EventStudentRemoved      = "student_removed_from_group"
)

// Admin event types
const (
	EventLessonExported      = "lesson_exported"
	EventLessonExportFailed  = "lesson_export_failed"
	EventStatisticsRecompute = "group_statistics_recomputed"
)

// Event is one audit record.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	ActorID    *primitive.ObjectID `bson:"actor_id,omitempty"`
	ResourceID *primitive.ObjectID `bson:"resource_id,omitempty"` // lesson or group
	GroupID    *primitive.ObjectID `bson:"group_id,omitempty"`

	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter selects audit events. Zero fields are ignored.
type QueryFilter struct {
	Category   string
	EventType  string
	ActorID    *primitive.ObjectID
	ResourceID *primitive.ObjectID
	Since      *time.Time
	Limit      int64
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns matching events, newest first. Limit defaults to 100.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, error) {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.ActorID != nil {
		q["actor_id"] = *f.ActorID
	}
	if f.ResourceID != nil {
		q["resource_id"] = *f.ResourceID
	}
	if f.Since != nil {
		q["timestamp"] = bson.M{"$gte": *f.Since}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	cur, err := s.c.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
