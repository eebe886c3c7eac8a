// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called from the EnsureSchema hook. Every ensure* function is
idempotent; problems are aggregated so one bad collection does not hide the
others and startup fails with the full list.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, c := range []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"academic_groups", ensureAcademicGroups},
		{"academic_lessons", ensureAcademicLessons},
		{"lessons", ensureLessons},
		{"knowledge_areas", ensureKnowledgeAreas},
		{"notifications", ensureNotifications},
		{"audit_events", ensureAuditEvents},
	} {
		if err := c.fn(ctx, db); err != nil {
			problems = append(problems, c.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collections                                                                */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_users_email").SetUnique(true).SetSparse(true),
		},
		{
			// staff directory lookup
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_users_role_status"),
		},
	})
}

func ensureAcademicGroups(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("academic_groups"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "teacher", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_academic_groups_teacher_nameci"),
		},
		{
			Keys:    bson.D{{Key: "students", Value: 1}},
			Options: options.Index().SetName("idx_academic_groups_students"),
		},
	})
}

func ensureAcademicLessons(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("academic_lessons"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "academicGroup", Value: 1}, {Key: "state", Value: 1}},
			Options: options.Index().SetName("idx_academic_lessons_group_state"),
		},
		{
			Keys:    bson.D{{Key: "author", Value: 1}},
			Options: options.Index().SetName("idx_academic_lessons_author"),
		},
		{
			Keys:    bson.D{{Key: "leader", Value: 1}},
			Options: options.Index().SetName("idx_academic_lessons_leader"),
		},
		{
			Keys:    bson.D{{Key: "development_group.user", Value: 1}},
			Options: options.Index().SetName("idx_academic_lessons_team_user"),
		},
		{
			// pending-export recovery scan
			Keys:    bson.D{{Key: "export.status", Value: 1}, {Key: "export.startedAt", Value: 1}},
			Options: options.Index().SetName("idx_academic_lessons_export_status_started").SetSparse(true),
		},
	})
}

func ensureLessons(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("lessons"), []mongo.IndexModel{
		{
			// one catalog entry per exported academic lesson
			Keys:    bson.D{{Key: "academicLessonId", Value: 1}},
			Options: options.Index().SetName("uniq_lessons_academic_lesson").SetUnique(true).SetSparse(true),
		},
	})
}

func ensureKnowledgeAreas(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("knowledge_areas"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_knowledge_areas_nameci"),
		},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("notifications"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notifications_user_created"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_events_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_events_category_type_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "resource_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_events_resource_timestamp"),
		},
	})
}

/* -------------------------------------------------------------------------- */
/* Reconcile desired indexes for one collection                               */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// collection may not exist yet
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// ensureIndexSet makes each model exist with the desired name and
// uniqueness. An index with the same keys but a different name or unique
// flag is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	existing := listExisting(ctx, coll)

	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if boolVal(ex.Unique) == boolVal(unique) && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
			zap.L().Info("dropped index for recreation",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && boolVal(unique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", boolVal(unique)),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}
