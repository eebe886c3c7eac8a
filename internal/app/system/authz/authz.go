// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/reddinamica/reddinamica/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, ObjectID and a found
// flag. A missing user or a malformed id yields "guest", "", NilObjectID,
// false, so ok=true always means a usable ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "guest", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return "guest", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// Actor is the identity policies evaluate against.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

// IsAdmin reports admin or delegated_admin.
func (a Actor) IsAdmin() bool {
	return a.Role == "admin" || a.Role == "delegated_admin"
}

// IsStaff reports admin, delegated_admin or lesson_manager.
func (a Actor) IsStaff() bool {
	return a.IsAdmin() || a.Role == "lesson_manager"
}

// CurrentActor returns the signed-in actor. ok is false for anonymous
// requests.
func CurrentActor(r *http.Request) (Actor, bool) {
	role, _, id, ok := UserCtx(r)
	if !ok {
		return Actor{Role: role}, false
	}
	return Actor{ID: id, Role: role}, true
}
