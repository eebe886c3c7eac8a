package academicgroups

import (
	"context"
	"net/http"
	"strconv"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/grouppolicy"
	academiclessonstore "github.com/reddinamica/reddinamica/internal/app/store/academiclessons"
	"github.com/reddinamica/reddinamica/internal/app/store/audit"
	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	userstore "github.com/reddinamica/reddinamica/internal/app/store/users"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/reddinamica/reddinamica/internal/app/system/txn"
	"go.uber.org/zap"
)

// HandleDelete removes a group together with its academic lessons and the
// group references held by users. Catalog lessons exported from the group
// are kept.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	if d := grouppolicy.CanManageGroup(a, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	var lessonsDeleted int64
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		n, err := academiclessonstore.New(h.DB).DeleteByGroup(ctx, g.ID)
		if err != nil {
			return err
		}
		lessonsDeleted = n
		if err := userstore.New(h.DB).PullGroupEverywhere(ctx, g.ID); err != nil {
			return err
		}
		_, err = groupstore.New(h.DB).Delete(ctx, g.ID)
		return err
	})
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al eliminar el grupo académico", err, zap.String("group_id", g.ID.Hex()))
		return
	}

	h.Audit.GroupEvent(ctx, r, audit.EventGroupDeleted, a.ID, g.ID, map[string]string{
		"name":            g.Name,
		"lessons_deleted": strconv.FormatInt(lessonsDeleted, 10),
	})
	h.Log.Info("academic group deleted",
		zap.String("group_id", g.ID.Hex()),
		zap.Int64("lessons_deleted", lessonsDeleted),
		zap.String("actor_id", a.ID.Hex()))

	apierr.Success(w, http.StatusOK, "Grupo académico eliminado", map[string]int64{"lessonsDeleted": lessonsDeleted})
}
