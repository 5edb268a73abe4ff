package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/internal/domain/types"
	"github.com/okian/zeroflops/pkg/logger"
)

// TournamentHandler handles bracket lifecycle requests.
type TournamentHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewTournamentHandler creates a new tournament handler.
func NewTournamentHandler(deps Dependencies, log logger.Logger) *TournamentHandler {
	return &TournamentHandler{deps: deps, log: log}
}

type tournamentResponse struct {
	Tournament model.Tournament `json:"tournament"`
	Pending    []model.Match    `json:"pending"`
	Standings  []types.Standing `json:"standings,omitempty"`
}

type submitRequest struct {
	Winner string `json:"winner"`
}

type submitResponse struct {
	Match      model.Match      `json:"match"`
	Changed    bool             `json:"changed"`
	Tournament model.Tournament `json:"tournament"`
	Pending    []model.Match    `json:"pending"`
	Standings  []types.Standing `json:"standings,omitempty"`
}

func pending(t model.Tournament) []model.Match {
	p := t.Pending()
	if p == nil {
		return []model.Match{}
	}
	return p
}

// HandleStart handles POST /lists/{id}/tournament requests.
func (h *TournamentHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	t, err := h.deps.StartTournament(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	resp := tournamentResponse{Tournament: t, Pending: pending(t)}
	if t.State == model.TournamentComplete {
		resp.Standings, err = h.deps.Standings(r.Context(), t.ListID)
		if err != nil {
			fail(r.Context(), h.log, w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleGet handles GET /lists/{id}/tournament requests.
func (h *TournamentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.deps.Tournament(r.Context(), id)
	if err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	standings, err := h.deps.Standings(r.Context(), id)
	if err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, tournamentResponse{Tournament: t, Pending: pending(t), Standings: standings})
}

// HandleSubmit handles POST /lists/{id}/tournament/matches/{match} requests.
func (h *TournamentHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decode(w, r, &req); err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	if strings.TrimSpace(req.Winner) == "" {
		fail(r.Context(), h.log, w, fmt.Errorf("%w: missing winner", ErrBadRequest))
		return
	}

	id, matchID := r.PathValue("id"), r.PathValue("match")
	step, err := h.deps.SubmitResult(r.Context(), id, matchID, req.Winner)
	if err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	resp := submitResponse{
		Match:      step.Match,
		Changed:    step.Changed,
		Tournament: step.Tournament,
		Pending:    pending(step.Tournament),
	}
	if step.Tournament.State == model.TournamentComplete {
		resp.Standings, err = h.deps.Standings(r.Context(), id)
		if err != nil {
			fail(r.Context(), h.log, w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
