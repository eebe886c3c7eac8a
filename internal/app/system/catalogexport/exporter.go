// Package catalogexport promotes academic lessons that are ready for
// migration into the public lesson catalog.
//
// An export is a claim/insert/commit sequence. The claim stores a
// pre-allocated catalog id on the academic lesson, so an interrupted export
// is finished later with the same id (by a retry or by RecoverPending) and
// never produces a second catalog entry.
package catalogexport

import (
	"context"
	"errors"
	"fmt"
	"time"

	academiclessonstore "github.com/reddinamica/reddinamica/internal/app/store/academiclessons"
	knowledgeareastore "github.com/reddinamica/reddinamica/internal/app/store/knowledgeareas"
	lessonstore "github.com/reddinamica/reddinamica/internal/app/store/lessons"
	"github.com/reddinamica/reddinamica/internal/app/system/auditlog"
	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/metrics"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrAlreadyExported = academiclessonstore.ErrAlreadyExported
	ErrNotReady        = academiclessonstore.ErrNotReadyForExport
	ErrConflict        = academiclessonstore.ErrExportConflict
)

// Result describes a finished export.
type Result struct {
	Lesson models.Lesson
	// Resumed is true when an earlier, interrupted claim was completed.
	Resumed bool
}

type Exporter struct {
	lessons *academiclessonstore.Store
	catalog *lessonstore.Store
	areas   *knowledgeareastore.Store
	bus     events.Publisher
	audit   *auditlog.Logger
	metrics *metrics.Recorder
	log     *zap.Logger
	now     func() time.Time
}

// New wires an Exporter over db. bus, audit and m may be nil.
func New(db *mongo.Database, bus events.Publisher, audit *auditlog.Logger, m *metrics.Recorder, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		lessons: academiclessonstore.New(db),
		catalog: lessonstore.New(db),
		areas:   knowledgeareastore.New(db),
		bus:     bus,
		audit:   audit,
		metrics: m,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Export promotes the academic lesson to the catalog. actor is the staff
// member requesting it; permission checks are the caller's job.
func (x *Exporter) Export(ctx context.Context, lessonID, actor primitive.ObjectID) (Result, error) {
	candidate := primitive.NewObjectID()
	catalogID, err := x.lessons.ClaimExport(ctx, lessonID, candidate)
	if err != nil {
		x.fail(ctx, lessonID, &actor, err)
		return Result{}, err
	}

	l, err := x.lessons.GetByID(ctx, lessonID)
	if err != nil {
		x.fail(ctx, lessonID, &actor, err)
		return Result{}, err
	}

	res, err := x.finish(ctx, l, catalogID, &actor)
	if err != nil {
		x.fail(ctx, lessonID, &actor, err)
		return Result{}, err
	}
	res.Resumed = catalogID != candidate
	if res.Resumed {
		x.metrics.Export(metrics.ExportResumed)
	} else {
		x.metrics.Export(metrics.ExportSucceeded)
	}
	return res, nil
}

// RecoverPending finishes exports whose claim is older than grace. It
// returns how many were completed; failures are logged and joined into the
// returned error.
func (x *Exporter) RecoverPending(ctx context.Context, grace time.Duration) (int, error) {
	pending, err := x.lessons.PendingExports(ctx, x.now().Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("list pending exports: %w", err)
	}

	var done int
	var errs []error
	for _, l := range pending {
		if _, err := x.finish(ctx, l, l.Export.LessonID, nil); err != nil {
			x.fail(ctx, l.ID, nil, err)
			errs = append(errs, fmt.Errorf("lesson %s: %w", l.ID.Hex(), err))
			continue
		}
		x.metrics.Export(metrics.ExportResumed)
		done++
	}
	return done, errors.Join(errs...)
}

// finish inserts the catalog entry under catalogID and commits the claim.
func (x *Exporter) finish(ctx context.Context, l models.AcademicLesson, catalogID primitive.ObjectID, actor *primitive.ObjectID) (Result, error) {
	areas, err := ResolveKnowledgeAreas(ctx, x.areas, l.KnowledgeAreas)
	if err != nil {
		return Result{}, fmt.Errorf("resolve knowledge areas: %w", err)
	}

	entry := BuildCatalogLesson(l, catalogID, areas, x.now())
	inserted, err := x.catalog.Insert(ctx, entry)
	switch {
	case errors.Is(err, lessonstore.ErrDuplicate):
		inserted, err = x.catalog.GetByAcademicLessonID(ctx, l.ID)
		if err != nil {
			return Result{}, fmt.Errorf("load existing catalog lesson: %w", err)
		}
		if inserted.ID != catalogID {
			return Result{}, ErrConflict
		}
	case err != nil:
		return Result{}, fmt.Errorf("insert catalog lesson: %w", err)
	}

	if err := x.lessons.CommitExport(ctx, l.ID, catalogID); err != nil {
		return Result{}, fmt.Errorf("commit export: %w", err)
	}

	l.IsExported = true
	l.ExportedLesson = &catalogID
	x.log.Info("lesson exported to catalog",
		zap.String("lesson_id", l.ID.Hex()),
		zap.String("catalog_id", catalogID.Hex()))
	x.audit.LessonExported(ctx, nil, actor, l.ID, catalogID)

	if x.bus != nil {
		var by primitive.ObjectID
		if actor != nil {
			by = *actor
		}
		if err := x.bus.Publish(ctx, events.NewLessonExported(l, catalogID, by)); err != nil {
			x.log.Warn("publish lesson exported", zap.String("lesson_id", l.ID.Hex()), zap.Error(err))
		}
	}
	return Result{Lesson: inserted}, nil
}

func (x *Exporter) fail(ctx context.Context, lessonID primitive.ObjectID, actor *primitive.ObjectID, err error) {
	x.metrics.Export(metrics.ExportFailed)
	x.audit.LessonExportFailed(ctx, nil, actor, lessonID, err.Error())
	if errors.Is(err, ErrAlreadyExported) || errors.Is(err, ErrNotReady) || errors.Is(err, mongo.ErrNoDocuments) {
		return
	}
	x.log.Error("catalog export failed", zap.String("lesson_id", lessonID.Hex()), zap.Error(err))
}
