// Package notify turns domain events into in-app notification records.
//
// The Dispatcher is a subscriber of the event bus. Failures are logged and
// counted; they never reach the operation that produced the event.
package notify

import (
	"context"
	"fmt"

	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/metrics"
	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Writer persists notification batches.
type Writer interface {
	InsertMany(ctx context.Context, ns []models.Notification) error
}

// Staff resolves platform staff recipients.
type Staff interface {
	Staff(ctx context.Context) ([]primitive.ObjectID, error)
}

type Dispatcher struct {
	w       Writer
	staff   Staff
	metrics *metrics.Recorder
	log     *zap.Logger
}

func NewDispatcher(w Writer, staff Staff, m *metrics.Recorder, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{w: w, staff: staff, metrics: m, log: log}
}

// Register subscribes the dispatcher to every event type on bus.
func (d *Dispatcher) Register(bus *events.Bus) error {
	return bus.Subscribe(d.Handle, events.AllTypes...)
}

// LessonLink is the in-app path of an academic lesson.
func LessonLink(id primitive.ObjectID) string {
	return "/academia/lessons/" + id.Hex()
}

// GroupLink is the in-app path of an academic group.
func GroupLink(id primitive.ObjectID) string {
	return "/academia/groups/" + id.Hex()
}

// CatalogLink is the public path of an exported catalog lesson.
func CatalogLink(id primitive.ObjectID) string {
	return "/lecciones/" + id.Hex()
}

// Handle builds and writes the notifications for one event.
func (d *Dispatcher) Handle(ctx context.Context, e events.Event) error {
	tmpl, recipients, err := d.plan(ctx, e)
	if err != nil {
		d.metrics.Notifications(tmpl.Type, metrics.NotifyFailed, 1)
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	batch := make([]models.Notification, 0, len(recipients))
	for _, uid := range recipients {
		n := tmpl
		n.User = uid
		batch = append(batch, n)
	}

	if err := d.w.InsertMany(ctx, batch); err != nil {
		d.metrics.Notifications(tmpl.Type, metrics.NotifyFailed, len(batch))
		return fmt.Errorf("write %d notifications: %w", len(batch), err)
	}
	d.metrics.Notifications(tmpl.Type, metrics.NotifyDelivered, len(batch))
	d.log.Debug("notifications written",
		zap.String("event_id", e.ID),
		zap.String("type", tmpl.Type),
		zap.Int("count", len(batch)))
	return nil
}

// plan returns the notification template and its recipients for e.
func (d *Dispatcher) plan(ctx context.Context, e events.Event) (models.Notification, []primitive.ObjectID, error) {
	n := models.Notification{Data: map[string]string{"eventId": e.ID}}
	var to recipients

	if e.Lesson == nil && e.Type != events.GroupStudentAdded && e.Type != events.GroupStudentRemoved {
		return n, nil, fmt.Errorf("event %s (%s) carries no lesson", e.ID, e.Type)
	}

	var title string
	if e.Lesson != nil {
		title = e.Lesson.Title
		n.Link = LessonLink(e.Lesson.ID)
		n.Data["lessonId"] = e.Lesson.ID.Hex()
	}
	if !e.GroupID.IsZero() {
		n.Data["groupId"] = e.GroupID.Hex()
	}

	switch e.Type {
	case events.LessonCreated:
		n.Type = models.NotifyLessonCreated
		n.Title = "Nueva lección académica"
		n.Message = fmt.Sprintf("Se creó la lección %q en tu grupo", title)
		to.add(e.Lesson.Teacher)

	case events.LessonStateChanged:
		n.Type, n.Title, n.Message = stateMessage(e.From, e.To, title, e.Feedback)
		n.Data["from"] = string(e.From)
		n.Data["to"] = string(e.To)
		to.add(e.Lesson.Participants()...)
		if e.To == lifecycle.Completed || e.To == lifecycle.ReadyForMigration {
			staff, err := d.staff.Staff(ctx)
			if err != nil {
				return n, nil, fmt.Errorf("resolve staff recipients: %w", err)
			}
			to.add(staff...)
		}

	case events.LessonExported:
		n.Type = models.NotifyLessonExported
		n.Title = "Lección publicada"
		n.Message = fmt.Sprintf("La lección %q ya está disponible en RedDinámica", title)
		n.Link = CatalogLink(e.CatalogID)
		n.Data["catalogId"] = e.CatalogID.Hex()
		to.add(e.Lesson.Participants()...)
		// Every participant is told, the exporting actor included.
		return n, to.ids, nil

	case events.LessonMemberInvited:
		n.Type = models.NotifyMemberInvited
		n.Title = "Invitación a lección"
		n.Message = fmt.Sprintf("Te invitaron a colaborar en la lección %q", title)
		to.add(e.Subject)

	case events.LessonDeleted:
		n.Type = models.NotifyLessonDeleted
		n.Title = "Lección eliminada"
		n.Message = fmt.Sprintf("La lección %q fue eliminada", title)
		n.Link = GroupLink(e.GroupID)
		to.add(e.Lesson.Participants()...)

	case events.GroupStudentAdded:
		n.Type = models.NotifyGroupJoined
		n.Title = "Nuevo grupo académico"
		n.Message = fmt.Sprintf("Fuiste agregado al grupo %q", e.GroupName)
		n.Link = GroupLink(e.GroupID)
		to.add(e.Subject)

	case events.GroupStudentRemoved:
		n.Type = models.NotifyGroupLeft
		n.Title = "Grupo académico"
		n.Message = fmt.Sprintf("Ya no formas parte del grupo %q", e.GroupName)
		n.Link = GroupLink(e.GroupID)
		to.add(e.Subject)

	default:
		return n, nil, nil
	}

	return n, to.without(e.Actor), nil
}

func stateMessage(from, to lifecycle.State, title, feedback string) (typ, heading, msg string) {
	switch {
	case to == lifecycle.Proposed:
		return models.NotifyLessonProposed, "Lección propuesta",
			fmt.Sprintf("La lección %q fue propuesta para revisión", title)
	case from == lifecycle.Proposed && to == lifecycle.InDevelopment:
		msg = fmt.Sprintf("La lección %q fue aprobada", title)
		if feedback != "" {
			msg += ": " + feedback
		}
		return models.NotifyLessonApproved, "Lección aprobada", msg
	case from == lifecycle.Proposed && (to == lifecycle.Draft || to == lifecycle.Rejected):
		msg = fmt.Sprintf("La lección %q fue devuelta a borrador", title)
		if feedback != "" {
			msg += ": " + feedback
		}
		return models.NotifyLessonRejected, "Lección rechazada", msg
	case to == lifecycle.Completed:
		return models.NotifyLessonCompleted, "Lección completada",
			fmt.Sprintf("La lección %q fue marcada como completada", title)
	case to == lifecycle.Graded:
		return models.NotifyLessonGraded, "Lección calificada",
			fmt.Sprintf("La lección %q fue calificada", title)
	case to == lifecycle.ReadyForMigration:
		return models.NotifyExportRequested, "Solicitud de exportación",
			fmt.Sprintf("La lección %q está lista para migrar a RedDinámica", title)
	}
	return models.NotifyLessonStateChanged, "Cambio de estado",
		fmt.Sprintf("La lección %q pasó de %s a %s", title, from, to)
}

// recipients is an insertion-ordered set of user ids.
type recipients struct {
	ids  []primitive.ObjectID
	seen map[primitive.ObjectID]bool
}

func (r *recipients) add(ids ...primitive.ObjectID) {
	if r.seen == nil {
		r.seen = make(map[primitive.ObjectID]bool)
	}
	for _, id := range ids {
		if id.IsZero() || r.seen[id] {
			continue
		}
		r.seen[id] = true
		r.ids = append(r.ids, id)
	}
}

func (r *recipients) without(id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(r.ids))
	for _, x := range r.ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
