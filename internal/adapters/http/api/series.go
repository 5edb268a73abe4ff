package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/okian/zeroflops/internal/domain/types"
	"github.com/okian/zeroflops/pkg/logger"
)

// SeriesHandler serves smoothed score history.
type SeriesHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewSeriesHandler creates a new series handler.
func NewSeriesHandler(deps Dependencies, log logger.Logger) *SeriesHandler {
	return &SeriesHandler{deps: deps, log: log}
}

type seriesResponse struct {
	ListID string              `json:"list_id"`
	ItemID string              `json:"item_id"`
	Points []types.SeriesPoint `json:"points"`
}

// HandleSeries handles GET /lists/{id}/items/{item}/series?half_life=
// requests. half_life
// is a Go duration ("12h", "90m"); "0" returns raw samples and omitting it
// uses the configured default.
func (h *SeriesHandler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	listID, itemID := r.PathValue("id"), r.PathValue("item")

	var (
		points []types.SeriesPoint
		err    error
	)
	if raw := r.URL.Query().Get("half_life"); raw != "" {
		halfLife, perr := time.ParseDuration(raw)
		if perr != nil || halfLife < 0 {
			fail(r.Context(), h.log, w, fmt.Errorf("%w: invalid half_life %q", ErrBadRequest, raw))
			return
		}
		points, err = h.deps.SeriesWithHalfLife(r.Context(), listID, itemID, halfLife)
	} else {
		points, err = h.deps.Series(r.Context(), listID, itemID)
	}
	if err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	if points == nil {
		points = []types.SeriesPoint{}
	}
	writeJSON(w, http.StatusOK, seriesResponse{ListID: listID, ItemID: itemID, Points: points})
}
