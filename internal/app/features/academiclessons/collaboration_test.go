package academiclessons_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/ratelimit"
	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
	"github.com/reddinamica/reddinamica/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTeam_InviteRespondTransfer(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := newCast(ctx, e)
	l := e.fixtures.CreateLesson(ctx, "Equipo", c.group, c.leader.ID)
	base := "/" + l.ID.Hex()

	invites := []struct {
		name  string
		as    models.User
		email string
		want  int
	}{
		{"collaborator cannot invite", c.member, "sara@rd.co", http.StatusForbidden},
		{"malformed email", c.leader, "sara@", http.StatusBadRequest},
		{"unknown email", c.leader, "nadie@rd.co", http.StatusNotFound},
		{"outside the group", c.leader, "pedro@rd.co", http.StatusBadRequest},
		{"leader invites classmate", c.leader, "SARA@rd.co", http.StatusCreated},
		{"already invited", c.leader, "sara@rd.co", http.StatusBadRequest},
	}
	for _, tt := range invites {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, base+"/members/invite", map[string]string{"email": tt.email}, tt.as)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}

	if m, ok := e.lesson(t, l.ID).Member(c.classmate.ID); !ok || m.Status != models.MemberStatusInvited {
		t.Fatalf("classmate seat: %+v ok=%v", m, ok)
	}
	if got := e.events.ofType(events.LessonMemberInvited); len(got) != 1 || got[0].Subject != c.classmate.ID {
		t.Errorf("member_invited events: got %+v", got)
	}
	if ns := e.notifications(t, c.classmate.ID); len(ns) != 1 || ns[0].Type != models.NotifyMemberInvited {
		t.Errorf("invitee notifications: got %+v", ns)
	}

	// Only the invitee can answer.
	rec := e.do(t, http.MethodPost, base+"/members/respond", map[string]bool{"accept": true}, c.member)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	// Leadership can only go to an accepted member.
	rec = e.do(t, http.MethodPut, base+"/leader", map[string]string{"userId": c.classmate.ID.Hex()}, c.leader)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	rec = e.do(t, http.MethodPost, base+"/members/respond", map[string]bool{"accept": true}, c.classmate)
	testutil.AssertStatus(t, rec, http.StatusOK)

	rec = e.do(t, http.MethodPut, base+"/leader", map[string]string{"userId": c.classmate.ID.Hex()}, c.member)
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	rec = e.do(t, http.MethodPut, base+"/leader", map[string]string{"userId": c.classmate.ID.Hex()}, c.leader)
	testutil.AssertStatus(t, rec, http.StatusOK)

	got := e.lesson(t, l.ID)
	if got.Leader != c.classmate.ID {
		t.Fatalf("leader: got %v, want %v", got.Leader, c.classmate.ID)
	}
	if m, _ := got.Member(c.leader.ID); m.Role != models.MemberRoleCollaborator {
		t.Errorf("previous leader role: got %q", m.Role)
	}
	if m, _ := got.Member(c.classmate.ID); m.Role != models.MemberRoleLeader {
		t.Errorf("new leader role: got %q", m.Role)
	}

	// The old leader may now leave; the new one may not.
	rec = e.do(t, http.MethodPost, base+"/leave", nil, c.classmate)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
	rec = e.do(t, http.MethodPost, base+"/leave", nil, c.leader)
	testutil.AssertStatus(t, rec, http.StatusOK)
	if _, ok := e.lesson(t, l.ID).Member(c.leader.ID); ok {
		t.Error("previous leader still on the team after leaving")
	}
}

func TestTeam_RemoveMember(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := newCast(ctx, e)
	l := e.fixtures.CreateLesson(ctx, "Equipo", c.group, c.leader.ID, testutil.WithCollaborator(c.member.ID))
	base := "/" + l.ID.Hex() + "/members/"

	tests := []struct {
		name string
		as   models.User
		user primitive.ObjectID
		want int
	}{
		{"collaborator cannot remove", c.member, c.leader.ID, http.StatusForbidden},
		{"leader seat is protected", c.admin, c.leader.ID, http.StatusBadRequest},
		{"not on the team", c.leader, c.classmate.ID, http.StatusBadRequest},
		{"leader removes collaborator", c.leader, c.member.ID, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodDelete, base+tt.user.Hex(), nil, tt.as)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
}

func TestDeleteFile(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := newCast(ctx, e)
	fileID := primitive.NewObjectID()
	withFile := testutil.WithLessonMutator(func(l *models.AcademicLesson) {
		l.Files = []models.LessonFile{{ID: fileID, Name: "guia.pdf", UploadedBy: l.Author, UploadedAt: time.Now().UTC()}}
	})
	l := e.fixtures.CreateLesson(ctx, "Archivos", c.group, c.leader.ID, withFile, testutil.WithCollaborator(c.member.ID))
	exported := e.fixtures.CreateLesson(ctx, "Exportada", c.group, c.leader.ID, withFile,
		testutil.WithState(lifecycle.ReadyForMigration),
		testutil.WithLessonMutator(func(l *models.AcademicLesson) { l.IsExported = true }))

	tests := []struct {
		name   string
		as     models.User
		lesson primitive.ObjectID
		file   primitive.ObjectID
		want   int
	}{
		{"collaborator", c.member, l.ID, fileID, http.StatusForbidden},
		{"exported lesson", c.leader, exported.ID, fileID, http.StatusForbidden},
		{"missing file", c.leader, l.ID, primitive.NewObjectID(), http.StatusNotFound},
		{"leader", c.leader, l.ID, fileID, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodDelete, "/"+tt.lesson.Hex()+"/files/"+tt.file.Hex(), nil, tt.as)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
	if got := e.lesson(t, l.ID); len(got.Files) != 0 {
		t.Errorf("files: got %d, want 0", len(got.Files))
	}
}

func TestChat(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := newCast(ctx, e)
	l := e.fixtures.CreateLesson(ctx, "Chat", c.group, c.leader.ID)
	base := "/" + l.ID.Hex() + "/chat"

	rec := e.do(t, http.MethodPost, base, map[string]string{"content": "<b>Hola</b> equipo"}, c.classmate)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var msg models.ChatMessage
	testutil.DecodeEnvelope(t, rec, &msg)
	if msg.Content != "Hola equipo" || msg.Author != c.classmate.ID {
		t.Errorf("message: got %+v", msg)
	}

	posts := []struct {
		name string
		as   models.User
		body any
		want int
	}{
		{"outsider", c.outsider, map[string]string{"content": "Hola"}, http.StatusForbidden},
		{"blank after stripping markup", c.leader, map[string]string{"content": "<i> </i>"}, http.StatusBadRequest},
		{"too long", c.leader, map[string]string{"content": strings.Repeat("a", 4001)}, http.StatusBadRequest},
		{"empty body", c.leader, nil, http.StatusBadRequest},
	}
	for _, tt := range posts {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, base, tt.body, tt.as)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}

	rec = e.do(t, http.MethodGet, base, nil, c.teacher)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var msgs []models.ChatMessage
	testutil.DecodeEnvelope(t, rec, &msgs)
	if len(msgs) != 1 {
		t.Errorf("chat: got %d messages, want 1", len(msgs))
	}
}

func TestChat_EditWindow(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := newCast(ctx, e)
	now := time.Now().UTC()
	recent := models.ChatMessage{ID: primitive.NewObjectID(), Content: "Hace poco", Author: c.member.ID, Timestamp: now.Add(-29 * time.Minute)}
	old := models.ChatMessage{ID: primitive.NewObjectID(), Content: "Hace rato", Author: c.member.ID, Timestamp: now.Add(-31 * time.Minute)}
	l := e.fixtures.CreateLesson(ctx, "Chat", c.group, c.leader.ID, testutil.WithCollaborator(c.member.ID),
		testutil.WithLessonMutator(func(l *models.AcademicLesson) { l.Messages = []models.ChatMessage{recent, old} }))
	base := "/" + l.ID.Hex() + "/chat/"

	tests := []struct {
		name   string
		method string
		as     models.User
		msg    primitive.ObjectID
		want   int
	}{
		{"edit within 29 minutes", http.MethodPut, c.member, recent.ID, http.StatusOK},
		{"edit after 31 minutes", http.MethodPut, c.member, old.ID, http.StatusForbidden},
		{"someone else's message", http.MethodPut, c.leader, recent.ID, http.StatusForbidden},
		{"admin is not the author", http.MethodDelete, c.admin, recent.ID, http.StatusForbidden},
		{"delete after 31 minutes", http.MethodDelete, c.member, old.ID, http.StatusForbidden},
		{"missing message", http.MethodDelete, c.member, primitive.NewObjectID(), http.StatusNotFound},
		{"delete within window", http.MethodDelete, c.member, recent.ID, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, base+tt.msg.Hex(), map[string]string{"content": "Editado"}, tt.as)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}

	got := e.lesson(t, l.ID)
	if len(got.Messages) != 1 || got.Messages[0].ID != old.ID || got.Messages[0].Edited {
		t.Errorf("messages after edits: got %+v", got.Messages)
	}
}

func TestConversations(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := newCast(ctx, e)
	l := e.fixtures.CreateLesson(ctx, "Hilos", c.group, c.leader.ID, testutil.WithCollaborator(c.member.ID))
	base := "/" + l.ID.Hex() + "/conversations"

	rec := e.do(t, http.MethodPost, base, map[string]any{
		"name":         "Diseño",
		"participants": []string{c.member.ID.Hex(), c.member.ID.Hex()},
	}, c.leader)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var conv models.Conversation
	testutil.DecodeEnvelope(t, rec, &conv)
	if len(conv.Participants) != 2 || conv.Participants[0] != c.leader.ID {
		t.Fatalf("participants: got %v", conv.Participants)
	}

	rec = e.do(t, http.MethodPost, base, map[string]any{"name": "Externo", "participants": []string{c.outsider.ID.Hex()}}, c.leader)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	msgs := base + "/" + conv.ID.Hex() + "/messages"
	rec = e.do(t, http.MethodPost, msgs, map[string]string{"content": "Propongo un mapa"}, c.classmate)
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	rec = e.do(t, http.MethodPost, msgs, map[string]string{"content": "Propongo un mapa"}, c.member)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var msg models.ChatMessage
	testutil.DecodeEnvelope(t, rec, &msg)

	rec = e.do(t, http.MethodPut, msgs+"/"+msg.ID.Hex(), map[string]string{"content": "Propongo dos mapas"}, c.member)
	testutil.AssertStatus(t, rec, http.StatusOK)
	rec = e.do(t, http.MethodDelete, msgs+"/"+msg.ID.Hex(), nil, c.leader)
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	rec = e.do(t, http.MethodPost, base+"/"+primitive.NewObjectID().Hex()+"/messages", map[string]string{"content": "?"}, c.member)
	testutil.AssertStatus(t, rec, http.StatusNotFound)

	listFor := func(u models.User) int {
		rec := e.do(t, http.MethodGet, base, nil, u)
		testutil.AssertStatus(t, rec, http.StatusOK)
		var out []models.Conversation
		testutil.DecodeEnvelope(t, rec, &out)
		return len(out)
	}
	if n := listFor(c.classmate); n != 0 {
		t.Errorf("classmate sees %d conversations, want 0", n)
	}
	if n := listFor(c.teacher); n != 1 {
		t.Errorf("teacher sees %d conversations, want 1", n)
	}

	got, _ := e.lesson(t, l.ID).FindConversation(conv.ID)
	if len(got.Messages) != 1 || got.Messages[0].Content != "Propongo dos mapas" || !got.Messages[0].Edited {
		t.Errorf("conversation messages: got %+v", got.Messages)
	}
}

func TestComments(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := newCast(ctx, e)
	l := e.fixtures.CreateLesson(ctx, "Comentarios", c.group, c.leader.ID)
	base := "/" + l.ID.Hex() + "/comments"

	tests := []struct {
		name        string
		as          models.User
		kind        string
		want        int
		wantType    string
		fromTeacher bool
	}{
		{"student general", c.classmate, "", http.StatusCreated, models.CommentTypeGeneral, false},
		{"student asking for feedback type", c.leader, "feedback", http.StatusCreated, models.CommentTypeGeneral, false},
		{"teacher feedback", c.teacher, "feedback", http.StatusCreated, models.CommentTypeFeedback, true},
		{"system type is not accepted", c.teacher, "system", http.StatusBadRequest, "", false},
		{"outsider", c.outsider, "", http.StatusForbidden, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, base, map[string]string{"content": "Revisen la bibliografía", "type": tt.kind}, tt.as)
			testutil.AssertStatus(t, rec, tt.want)
			if tt.want != http.StatusCreated {
				return
			}
			var cm models.LessonComment
			testutil.DecodeEnvelope(t, rec, &cm)
			if cm.Type != tt.wantType || cm.IsFromTeacher != tt.fromTeacher {
				t.Errorf("comment: got type=%q fromTeacher=%v", cm.Type, cm.IsFromTeacher)
			}
		})
	}

	got := e.lesson(t, l.ID)
	if len(got.Comments) != 3 {
		t.Fatalf("comments: got %d, want 3", len(got.Comments))
	}
	first := got.Comments[0]

	rec := e.do(t, http.MethodPut, base+"/"+first.ID.Hex(), map[string]string{"content": "Corrijo"}, c.teacher)
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	rec = e.do(t, http.MethodPut, base+"/"+first.ID.Hex(), map[string]string{"content": "Corrijo"}, c.classmate)
	testutil.AssertStatus(t, rec, http.StatusOK)
	rec = e.do(t, http.MethodDelete, base+"/"+first.ID.Hex(), nil, c.classmate)
	testutil.AssertStatus(t, rec, http.StatusOK)

	if got := e.lesson(t, l.ID); len(got.Comments) != 2 {
		t.Errorf("comments after delete: got %d, want 2", len(got.Comments))
	}
}

func TestPosting_RateLimited(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	limiter := ratelimit.New(2, time.Minute)
	t.Cleanup(limiter.Stop)
	e.handler.Posting = limiter

	c := newCast(ctx, e)
	l := e.fixtures.CreateLesson(ctx, "Ráfaga", c.group, c.leader.ID)
	base := "/" + l.ID.Hex()

	for i := 0; i < 2; i++ {
		rec := e.do(t, http.MethodPost, base+"/chat", map[string]string{"content": "Hola"}, c.leader)
		testutil.AssertStatus(t, rec, http.StatusCreated)
	}
	rec := e.do(t, http.MethodPost, base+"/comments", map[string]string{"content": "Hola"}, c.leader)
	testutil.AssertStatus(t, rec, http.StatusTooManyRequests)

	// Limits are per user.
	rec = e.do(t, http.MethodPost, base+"/chat", map[string]string{"content": "Hola"}, c.member)
	testutil.AssertStatus(t, rec, http.StatusCreated)

	// Reads are never limited.
	rec = e.do(t, http.MethodGet, base+"/chat", nil, c.leader)
	testutil.AssertStatus(t, rec, http.StatusOK)
}
