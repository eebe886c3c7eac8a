// internal/app/store/academiclessons/lessonstore.go
package academiclessonstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrStateChanged is returned by conditional writes when the lesson is
	// no longer in the expected state.
	ErrStateChanged = errors.New("la lección cambió de estado mientras se procesaba la solicitud")

	ErrAlreadyMember     = errors.New("el usuario ya forma parte del equipo de desarrollo")
	ErrNotMember         = errors.New("el usuario no forma parte del equipo de desarrollo")
	ErrAlreadyExported   = errors.New("la lección ya fue exportada")
	ErrNotReadyForExport = errors.New("la lección no está lista para migración")
	ErrExportConflict    = errors.New("la exportación en curso no coincide con la lección del catálogo")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("academic_lessons")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.AcademicLesson, error) {
	var l models.AcademicLesson
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return models.AcademicLesson{}, err
	}
	return l, nil
}

// Create inserts a new lesson in draft. The caller supplies group, author,
// teacher and content; Create fills ids, the leader seat, the display
// status and empty collections.
func (s *Store) Create(ctx context.Context, l models.AcademicLesson) (models.AcademicLesson, error) {
	now := time.Now().UTC()
	l.ID = primitive.NewObjectID()
	l.Title = strings.TrimSpace(l.Title)
	l.TitleCI = text.Fold(l.Title)
	if l.Leader.IsZero() {
		l.Leader = l.Author
	}
	l.State = lifecycle.Draft
	l.Status = lifecycle.DisplayStatus(l.State)
	l.IsExported = false
	l.ExportedLesson = nil
	l.Export = nil
	if l.DevelopmentGroup == nil {
		l.DevelopmentGroup = []models.DevelopmentMember{}
	}
	if _, ok := l.Member(l.Leader); !ok {
		l.DevelopmentGroup = append(l.DevelopmentGroup, models.DevelopmentMember{
			User:     l.Leader,
			Role:     models.MemberRoleLeader,
			Status:   models.MemberStatusAccepted,
			JoinedAt: now,
		})
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	if l.KnowledgeAreas == nil {
		l.KnowledgeAreas = []string{}
	}
	if l.Level == nil {
		l.Level = []string{}
	}
	if l.Files == nil {
		l.Files = []models.LessonFile{}
	}
	l.Messages = []models.ChatMessage{}
	l.Conversations = []models.Conversation{}
	if l.Comments == nil {
		l.Comments = []models.LessonComment{}
	}
	l.CreatedAt = now
	l.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.AcademicLesson{}, err
	}
	return l, nil
}

// ContentUpdate carries editable lesson content. Nil fields are left
// unchanged.
type ContentUpdate struct {
	Title          *string
	Resume         *string
	References     *string
	Justification  *models.Justification
	Tags           []string
	KnowledgeAreas []string
}

func (s *Store) UpdateContent(ctx context.Context, id primitive.ObjectID, upd ContentUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) != "" {
		set["title"] = strings.TrimSpace(*upd.Title)
		set["title_ci"] = text.Fold(*upd.Title)
	}
	if upd.Resume != nil {
		set["resume"] = *upd.Resume
	}
	if upd.References != nil {
		set["references"] = *upd.References
	}
	if upd.Justification != nil {
		set["justification"] = *upd.Justification
	}
	if upd.Tags != nil {
		set["tags"] = upd.Tags
	}
	if upd.KnowledgeAreas != nil {
		set["knowledge_areas"] = upd.KnowledgeAreas
	}
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// Transition moves the lesson from one state to another in a single
// conditional write. The display status is always written with the state.
// extra is merged into $set; comment, when non-nil, is appended in the same
// update. ErrStateChanged means another writer moved the lesson first.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from, to lifecycle.State, extra bson.M, comment *models.LessonComment) (models.AcademicLesson, error) {
	set := bson.M{
		"state":      to,
		"status":     lifecycle.DisplayStatus(to),
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		set[k] = v
	}
	update := bson.M{"$set": set}
	if comment != nil {
		update["$push"] = bson.M{"comments": *comment}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.AcademicLesson
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id, "state": from}, update, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return models.AcademicLesson{}, gerr
		}
		return models.AcademicLesson{}, ErrStateChanged
	}
	if err != nil {
		return models.AcademicLesson{}, err
	}
	return out, nil
}

// AppendComment pushes a comment and returns the updated lesson.
func (s *Store) AppendComment(ctx context.Context, id primitive.ObjectID, c models.LessonComment) (models.AcademicLesson, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.AcademicLesson
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"comments": c},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}, opts).Decode(&out)
	if err != nil {
		return models.AcademicLesson{}, err
	}
	return out, nil
}

func (s *Store) EditComment(ctx context.Context, id, commentID primitive.ObjectID, content string) error {
	now := time.Now().UTC()
	return s.updateFiltered(ctx, bson.M{"_id": id, "comments._id": commentID}, bson.M{"$set": bson.M{
		"comments.$[c].content":  content,
		"comments.$[c].edited":   true,
		"comments.$[c].editedAt": now,
		"updated_at":             now,
	}}, bson.M{"c._id": commentID})
}

func (s *Store) DeleteComment(ctx context.Context, id, commentID primitive.ObjectID) error {
	return s.updateOne(ctx, bson.M{"_id": id, "comments._id": commentID}, bson.M{
		"$pull": bson.M{"comments": bson.M{"_id": commentID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// AppendMessage adds a message to the flat lesson chat.
func (s *Store) AppendMessage(ctx context.Context, id primitive.ObjectID, m models.ChatMessage) error {
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"messages": m},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *Store) EditMessage(ctx context.Context, id, messageID primitive.ObjectID, content string) error {
	now := time.Now().UTC()
	return s.updateFiltered(ctx, bson.M{"_id": id, "messages._id": messageID}, bson.M{"$set": bson.M{
		"messages.$[m].content":  content,
		"messages.$[m].edited":   true,
		"messages.$[m].editedAt": now,
		"updated_at":             now,
	}}, bson.M{"m._id": messageID})
}

func (s *Store) DeleteMessage(ctx context.Context, id, messageID primitive.ObjectID) error {
	return s.updateOne(ctx, bson.M{"_id": id, "messages._id": messageID}, bson.M{
		"$pull": bson.M{"messages": bson.M{"_id": messageID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *Store) AddConversation(ctx context.Context, id primitive.ObjectID, c models.Conversation) error {
	if c.Messages == nil {
		c.Messages = []models.ChatMessage{}
	}
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"conversations": c},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *Store) AppendConversationMessage(ctx context.Context, id, conversationID primitive.ObjectID, m models.ChatMessage) error {
	return s.updateFiltered(ctx, bson.M{"_id": id, "conversations._id": conversationID}, bson.M{
		"$push": bson.M{"conversations.$[c].messages": m},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}, bson.M{"c._id": conversationID})
}

func (s *Store) EditConversationMessage(ctx context.Context, id, conversationID, messageID primitive.ObjectID, content string) error {
	now := time.Now().UTC()
	return s.updateFiltered(ctx, bson.M{"_id": id, "conversations._id": conversationID}, bson.M{"$set": bson.M{
		"conversations.$[c].messages.$[m].content":  content,
		"conversations.$[c].messages.$[m].edited":   true,
		"conversations.$[c].messages.$[m].editedAt": now,
		"updated_at":                                now,
	}}, bson.M{"c._id": conversationID}, bson.M{"m._id": messageID})
}

func (s *Store) DeleteConversationMessage(ctx context.Context, id, conversationID, messageID primitive.ObjectID) error {
	return s.updateFiltered(ctx, bson.M{"_id": id, "conversations._id": conversationID}, bson.M{
		"$pull": bson.M{"conversations.$[c].messages": bson.M{"_id": messageID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}, bson.M{"c._id": conversationID})
}

// AddMember seats userID on the team with the given role and status. A user
// already on the team (in any status) yields ErrAlreadyMember, except a
// previously rejected invitation which is reopened.
func (s *Store) AddMember(ctx context.Context, id primitive.ObjectID, m models.DevelopmentMember) error {
	now := time.Now().UTC()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "development_group.user": bson.M{"$ne": m.User}},
		bson.M{
			"$push": bson.M{"development_group": m},
			"$set":  bson.M{"updated_at": now},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	l, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	existing, _ := l.Member(m.User)
	if existing.Status != models.MemberStatusRejected {
		return ErrAlreadyMember
	}
	return s.SetMemberStatus(ctx, id, m.User, m.Status)
}

// SetMemberStatus updates the status of an existing team seat.
func (s *Store) SetMemberStatus(ctx context.Context, id, userID primitive.ObjectID, status string) error {
	now := time.Now().UTC()
	err := s.updateFiltered(ctx, bson.M{"_id": id, "development_group.user": userID}, bson.M{"$set": bson.M{
		"development_group.$[u].status":   status,
		"development_group.$[u].joinedAt": now,
		"updated_at":                      now,
	}}, bson.M{"u.user": userID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return s.notMemberOrMissing(ctx, id)
	}
	return err
}

// RemoveMember removes a non-leader seat from the team.
func (s *Store) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "leader": bson.M{"$ne": userID}, "development_group.user": userID},
		bson.M{
			"$pull": bson.M{"development_group": bson.M{"user": userID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return s.notMemberOrMissing(ctx, id)
}

// TransferLeader hands the leader seat from the current leader to an
// accepted team member. The old leader stays on the team as collaborator.
func (s *Store) TransferLeader(ctx context.Context, id, from, to primitive.ObjectID) error {
	filter := bson.M{
		"_id":    id,
		"leader": from,
		"development_group": bson.M{"$elemMatch": bson.M{
			"user":   to,
			"status": models.MemberStatusAccepted,
		}},
	}
	update := bson.M{"$set": bson.M{
		"leader":                        to,
		"development_group.$[old].role": models.MemberRoleCollaborator,
		"development_group.$[new].role": models.MemberRoleLeader,
		"updated_at":                    time.Now().UTC(),
	}}
	err := s.updateFiltered(ctx, filter, update, bson.M{"old.user": from}, bson.M{"new.user": to})
	if errors.Is(err, mongo.ErrNoDocuments) {
		l, gerr := s.GetByID(ctx, id)
		if gerr != nil {
			return gerr
		}
		if l.Leader != from {
			return ErrStateChanged
		}
		return ErrNotMember
	}
	return err
}

// RemoveFile drops a file's metadata. The stored object is not touched.
func (s *Store) RemoveFile(ctx context.Context, id, fileID primitive.ObjectID) error {
	return s.updateOne(ctx, bson.M{"_id": id, "files._id": fileID}, bson.M{
		"$pull": bson.M{"files": bson.M{"_id": fileID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// ClaimExport reserves catalogID as the catalog id for the lesson's export.
// If a pending claim already exists its id is returned instead, so retries
// converge on one catalog entry.
func (s *Store) ClaimExport(ctx context.Context, id, catalogID primitive.ObjectID) (primitive.ObjectID, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":        id,
		"state":      lifecycle.ReadyForMigration,
		"isExported": false,
		"export":     bson.M{"$exists": false},
	}, bson.M{"$set": bson.M{
		"export": models.ExportClaim{
			Status:    models.ExportPending,
			LessonID:  catalogID,
			StartedAt: now,
		},
		"updated_at": now,
	}})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if res.MatchedCount == 1 {
		return catalogID, nil
	}

	l, err := s.GetByID(ctx, id)
	if err != nil {
		return primitive.NilObjectID, err
	}
	switch {
	case l.IsExported:
		return primitive.NilObjectID, ErrAlreadyExported
	case l.State != lifecycle.ReadyForMigration:
		return primitive.NilObjectID, ErrNotReadyForExport
	case l.Export != nil && l.Export.Status == models.ExportPending:
		return l.Export.LessonID, nil
	}
	return primitive.NilObjectID, ErrExportConflict
}

// CommitExport marks the lesson exported to catalogID. Committing the same
// catalog id twice is a no-op.
func (s *Store) CommitExport(ctx context.Context, id, catalogID primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":             id,
		"isExported":      false,
		"export.lessonId": catalogID,
	}, bson.M{"$set": bson.M{
		"isExported":         true,
		"exportedLesson":     catalogID,
		"export.status":      models.ExportCommitted,
		"export.committedAt": now,
		"updated_at":         now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	l, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if l.IsExported && l.ExportedLesson != nil && *l.ExportedLesson == catalogID {
		return nil
	}
	return ErrExportConflict
}

// PendingExports returns lessons whose export claim is still pending and
// was taken before olderThan.
func (s *Store) PendingExports(ctx context.Context, olderThan time.Time) ([]models.AcademicLesson, error) {
	return s.find(ctx, bson.M{
		"export.status":    models.ExportPending,
		"export.startedAt": bson.M{"$lt": olderThan},
	}, options.Find().SetSort(bson.D{{Key: "export.startedAt", Value: 1}}))
}

// ListByGroup returns the group's lessons, newest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.AcademicLesson, error) {
	return s.find(ctx, bson.M{"academicGroup": groupID}, newestFirst())
}

// ListByGroupForUser returns only the group's lessons userID authors,
// leads or sits on the team of.
func (s *Store) ListByGroupForUser(ctx context.Context, groupID, userID primitive.ObjectID) ([]models.AcademicLesson, error) {
	return s.find(ctx, bson.M{
		"academicGroup": groupID,
		"$or": bson.A{
			bson.M{"author": userID},
			bson.M{"leader": userID},
			bson.M{"development_group.user": userID},
		},
	}, newestFirst())
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByGroup removes every lesson of a group. Used by the group cascade.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"academicGroup": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.AcademicLesson, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.AcademicLesson{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) updateFiltered(ctx context.Context, filter, update bson.M, arrayFilters ...interface{}) error {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: arrayFilters})
	res, err := s.c.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) notMemberOrMissing(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrNotMember
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}
