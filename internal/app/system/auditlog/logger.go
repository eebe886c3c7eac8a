// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/reddinamica/reddinamica/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config selects the destination per category.
// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off".
type Config struct {
	Academic string
	Admin    string
}

// Logger writes audit events to the audit store and/or zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ResourceID != nil {
		fields = append(fields, zap.String("resource_id", event.ResourceID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to the category's setting. A nil Logger is a
// no-op so handlers built in tests may leave it unset.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := "all"
	switch event.Category {
	case audit.CategoryAcademic:
		setting = l.config.Academic
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

// --- Academic events ---

func (l *Logger) LessonCreated(ctx context.Context, r *http.Request, actor, lessonID, groupID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAcademic,
		EventType:  audit.EventLessonCreated,
		ActorID:    &actor,
		ResourceID: &lessonID,
		GroupID:    &groupID,
		IP:         clientIP(r),
		Success:    true,
	})
}

// LessonTransition records a lifecycle move.
func (l *Logger) LessonTransition(ctx context.Context, r *http.Request, actor, lessonID primitive.ObjectID, op, from, to string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAcademic,
		EventType:  audit.EventLessonTransition,
		ActorID:    &actor,
		ResourceID: &lessonID,
		IP:         clientIP(r),
		Success:    true,
		Details:    map[string]string{"op": op, "from": from, "to": to},
	})
}

func (l *Logger) LessonDeleted(ctx context.Context, r *http.Request, actor, lessonID, groupID primitive.ObjectID, title string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAcademic,
		EventType:  audit.EventLessonDeleted,
		ActorID:    &actor,
		ResourceID: &lessonID,
		GroupID:    &groupID,
		IP:         clientIP(r),
		Success:    true,
		Details:    map[string]string{"title": title},
	})
}

func (l *Logger) LeaderTransferred(ctx context.Context, r *http.Request, actor, lessonID, from, to primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAcademic,
		EventType:  audit.EventLeaderTransferred,
		ActorID:    &actor,
		ResourceID: &lessonID,
		IP:         clientIP(r),
		Success:    true,
		Details:    map[string]string{"from": from.Hex(), "to": to.Hex()},
	})
}

// GroupEvent covers create/update/permissions/delete of an academic group.
func (l *Logger) GroupEvent(ctx context.Context, r *http.Request, eventType string, actor, groupID primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAcademic,
		EventType:  eventType,
		ActorID:    &actor,
		ResourceID: &groupID,
		GroupID:    &groupID,
		IP:         clientIP(r),
		Success:    true,
		Details:    details,
	})
}

// GroupMembership records a student being added to or removed from a group.
func (l *Logger) GroupMembership(ctx context.Context, r *http.Request, added bool, actor, groupID, studentID primitive.ObjectID) {
	eventType := audit.EventStudentRemoved
	if added {
		eventType = audit.EventStudentAddedToGroup
	}
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAcademic,
		EventType:  eventType,
		ActorID:    &actor,
		ResourceID: &groupID,
		GroupID:    &groupID,
		IP:         clientIP(r),
		Success:    true,
		Details:    map[string]string{"student_id": studentID.Hex()},
	})
}

// --- Admin events ---

// LessonExported records the outcome of an export. actor is nil when the
// export was finished by the recovery task.
func (l *Logger) LessonExported(ctx context.Context, r *http.Request, actor *primitive.ObjectID, lessonID, catalogID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventLessonExported,
		ActorID:    actor,
		ResourceID: &lessonID,
		IP:         clientIP(r),
		Success:    true,
		Details:    map[string]string{"catalog_lesson_id": catalogID.Hex()},
	})
}

func (l *Logger) LessonExportFailed(ctx context.Context, r *http.Request, actor *primitive.ObjectID, lessonID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAdmin,
		EventType:     audit.EventLessonExportFailed,
		ActorID:       actor,
		ResourceID:    &lessonID,
		IP:            clientIP(r),
		Success:       false,
		FailureReason: reason,
	})
}

// StatisticsRecomputed records a manual statistics recompute.
func (l *Logger) StatisticsRecomputed(ctx context.Context, r *http.Request, actor, groupID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventStatisticsRecompute,
		ActorID:    &actor,
		ResourceID: &groupID,
		GroupID:    &groupID,
		IP:         clientIP(r),
		Success:    true,
	})
}
