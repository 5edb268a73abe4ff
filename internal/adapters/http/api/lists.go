package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/zeroflops/internal/adapters/source"
	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/pkg/logger"
)

// ListsHandler handles list creation, reads, queries and imports.
type ListsHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewListsHandler creates a new lists handler.
func NewListsHandler(deps Dependencies, log logger.Logger) *ListsHandler {
	return &ListsHandler{deps: deps, log: log}
}

type createListRequest struct {
	ID    string       `json:"id"`
	Owner string       `json:"owner"`
	Name  string       `json:"name"`
	Mode  model.Mode   `json:"mode"`
	Query string       `json:"query"`
	Items []model.Item `json:"items"`
}

func (c createListRequest) validate() error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return fmt.Errorf("%w: missing id", ErrBadRequest)
	case c.Mode != "" && c.Mode != model.ModeSort && c.Mode != model.ModeTournament:
		return fmt.Errorf("%w: mode must be %q or %q", ErrBadRequest, model.ModeSort, model.ModeTournament)
	}
	return nil
}

type itemsResponse struct {
	ListID string       `json:"list_id"`
	Query  string       `json:"query"`
	Items  []model.Item `json:"items"`
}

type importRequest struct {
	Entries []source.Entry `json:"entries"`
}

type importResponse struct {
	List   model.List    `json:"list"`
	Result source.Result `json:"result"`
}

// HandleCreate handles POST /lists requests.
func (h *ListsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if err := decode(w, r, &req); err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	if err := req.validate(); err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	list, err := h.deps.CreateList(r.Context(), model.List{
		ID:    req.ID,
		Owner: req.Owner,
		Name:  req.Name,
		Mode:  req.Mode,
		Query: req.Query,
		Items: req.Items,
	})
	if err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// HandleGet handles GET /lists/{id} requests.
func (h *ListsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.GetList(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleItems handles GET /lists/{id}/items?q= requests. Without q the
// list's stored query applies.
func (h *ListsHandler) HandleItems(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	text := r.URL.Query().Get("q")
	items, err := h.deps.Evaluate(r.Context(), id, text)
	if err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, itemsResponse{ListID: id, Query: text, Items: items})
}

// HandleImport handles POST /lists/{id}/import requests.
func (h *ListsHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decode(w, r, &req); err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	list, res, err := h.deps.Import(r.Context(), r.PathValue("id"), req.Entries)
	if err != nil {
		fail(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{List: list, Result: res})
}
