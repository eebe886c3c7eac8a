package academicgroups

import (
	"context"
	"net/http"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/policy/grouppolicy"
	"github.com/reddinamica/reddinamica/internal/app/store/queries/groupstats"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
)

// HandleRecomputeStatistics rebuilds the group's statistics on demand.
func (h *Handler) HandleRecomputeStatistics(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, ok := h.loadGroup(ctx, w, r)
	if !ok {
		return
	}
	if d := grouppolicy.CanManageGroup(a, g); !d.Allowed {
		apierr.Forbidden(w, d.Reason)
		return
	}

	st, err := groupstats.Recompute(ctx, h.DB, g.ID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "Error al recalcular las estadísticas", err)
		return
	}
	h.Audit.StatisticsRecomputed(ctx, r, a.ID, g.ID)
	apierr.Success(w, http.StatusOK, "Estadísticas actualizadas", st)
}
