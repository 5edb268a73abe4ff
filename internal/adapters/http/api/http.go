// Package api exposes the ranking service over JSON HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/zeroflops/internal/adapters/repository"
	"github.com/okian/zeroflops/internal/adapters/source"
	service "github.com/okian/zeroflops/internal/app"
	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/internal/domain/query"
	"github.com/okian/zeroflops/internal/domain/tournament"
	"github.com/okian/zeroflops/internal/domain/types"
	"github.com/okian/zeroflops/pkg/logger"
	"github.com/okian/zeroflops/pkg/metrics"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	CreateList(ctx context.Context, list model.List) (model.List, error)
	GetList(ctx context.Context, listID string) (model.List, error)
	Evaluate(ctx context.Context, listID, text string) ([]model.Item, error)
	Import(ctx context.Context, listID string, entries []source.Entry) (model.List, source.Result, error)

	StartTournament(ctx context.Context, listID string) (model.Tournament, error)
	Tournament(ctx context.Context, listID string) (model.Tournament, error)
	Standings(ctx context.Context, listID string) ([]types.Standing, error)
	SubmitResult(ctx context.Context, listID, matchID, winnerID string) (tournament.Step, error)

	Series(ctx context.Context, listID, itemID string) ([]types.SeriesPoint, error)
	SeriesWithHalfLife(ctx context.Context, listID, itemID string, halfLife time.Duration) ([]types.SeriesPoint, error)
}

var _ Dependencies = (*service.Service)(nil)

// Server wires HTTP routes for the ranking API.
type Server struct {
	healthHandler     *HealthHandler
	listsHandler      *ListsHandler
	tournamentHandler *TournamentHandler
	seriesHandler     *SeriesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	log := logger.Named("http")
	return &Server{
		healthHandler:     NewHealthHandler(metrics.GetRegistry()),
		listsHandler:      NewListsHandler(deps, log),
		tournamentHandler: NewTournamentHandler(deps, log),
		seriesHandler:     NewSeriesHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))

	mux.HandleFunc("POST /lists", MetricsMiddleware(s.listsHandler.HandleCreate, "lists"))
	mux.HandleFunc("GET /lists/{id}", MetricsMiddleware(s.listsHandler.HandleGet, "list"))
	mux.HandleFunc("GET /lists/{id}/items", MetricsMiddleware(s.listsHandler.HandleItems, "items"))
	mux.HandleFunc("POST /lists/{id}/import", MetricsMiddleware(s.listsHandler.HandleImport, "import"))

	mux.HandleFunc("POST /lists/{id}/tournament", MetricsMiddleware(s.tournamentHandler.HandleStart, "tournament"))
	mux.HandleFunc("GET /lists/{id}/tournament", MetricsMiddleware(s.tournamentHandler.HandleGet, "tournament"))
	mux.HandleFunc("POST /lists/{id}/tournament/matches/{match}",
		MetricsMiddleware(s.tournamentHandler.HandleSubmit, "match"))

	mux.HandleFunc("GET /lists/{id}/items/{item}/series", MetricsMiddleware(s.seriesHandler.HandleSeries, "series"))
}

type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Position   *int   `json:"position,omitempty"`
	Field      string `json:"field,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}

	var pe *query.ParseError
	var fe *query.FieldError
	switch {
	case errors.As(err, &pe):
		resp.Position = &pe.Pos
	case errors.As(err, &fe):
		resp.Position = &fe.Pos
		resp.Field = fe.Field
		resp.Suggestion = fe.Suggestion
	}
	writeJSON(w, status, resp)
}

// fail maps err to a status and writes it. Unexpected errors are logged.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}

// classify maps domain and store errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, query.ErrParse):
		return http.StatusBadRequest, "parse_error"
	case errors.Is(err, query.ErrUnknownField):
		return http.StatusBadRequest, "unknown_field"
	case errors.Is(err, query.ErrTypeMismatch):
		return http.StatusBadRequest, "type_mismatch"
	case errors.Is(err, model.ErrInvalidItem),
		errors.Is(err, model.ErrDuplicateItem),
		errors.Is(err, source.ErrInvalidEntry):
		return http.StatusBadRequest, "invalid_item"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, tournament.ErrUnknownMatch):
		return http.StatusNotFound, "unknown_match"
	case errors.Is(err, tournament.ErrComplete):
		return http.StatusConflict, "tournament_complete"
	case errors.Is(err, tournament.ErrAlreadyResolved):
		return http.StatusConflict, "already_resolved"
	case errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict, "version_conflict"
	case errors.Is(err, tournament.ErrInvalidWinner):
		return http.StatusUnprocessableEntity, "invalid_winner"
	case errors.Is(err, tournament.ErrBracketSize):
		return http.StatusUnprocessableEntity, "nothing_to_seed"
	case errors.Is(err, tournament.ErrMissingItem):
		return http.StatusUnprocessableEntity, "missing_item"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
