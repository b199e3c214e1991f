// Package handler provides HTTP request handlers for swissd.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/converter"
	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
	"github.com/devrev/swissmatch/internal/service"
)

// TournamentAPI is the tournament service surface used by the handlers
type TournamentAPI interface {
	CreateTournament(ctx context.Context, req *service.CreateTournamentRequest) (*model.TournamentInfo, error)
	ListTournaments(ctx context.Context) []model.TournamentInfo
	Status(ctx context.Context, id string) (*model.TournamentInfo, error)
	DeleteTournament(ctx context.Context, id string) error
	Checkout(ctx context.Context, id string) (*model.MatchView, error)
	Commit(ctx context.Context, id string, req *service.CommitRequest) (*service.CommitResponse, error)
	CheckedOutMatches(ctx context.Context, id string) ([]model.MatchView, error)
	TableByScore(ctx context.Context, id string) (*model.Table, error)
	TableByCriteria(ctx context.Context, id string, criteria []string) (*model.Table, error)
	Winner(ctx context.Context, id string, criteria []string) (*model.Winner, error)
	RepeatedMatchCount(ctx context.Context, id string) (int, error)
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	tournaments   TournamentAPI
	httpToService *converter.HTTPToService
	serviceToHTTP *converter.ServiceToHTTP
	errorHandler  *apperrors.Handler
	logger        *zap.Logger
	timeout       time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	tournaments TournamentAPI,
	errorHandler *apperrors.Handler,
	logger *zap.Logger,
	timeout time.Duration,
) *Handlers {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handlers{
		tournaments:   tournaments,
		httpToService: converter.NewHTTPToService(),
		serviceToHTTP: converter.NewServiceToHTTP(),
		errorHandler:  errorHandler,
		logger:        logger,
		timeout:       timeout,
	}
}

// CreateTournament handles POST /v1/tournaments requests.
func (h *Handlers) CreateTournament(w http.ResponseWriter, r *http.Request) {
	req, err := h.httpToService.CreateTournamentRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	info, err := h.tournaments.CreateTournament(ctx, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/tournaments/"+info.ID)
	h.writeJSONResponse(w, http.StatusCreated, h.serviceToHTTP.TournamentResponse(info))
}

// ListTournaments handles GET /v1/tournaments requests.
func (h *Handlers) ListTournaments(w http.ResponseWriter, r *http.Request) {
	infos := h.tournaments.ListTournaments(r.Context())
	h.writeJSONResponse(w, http.StatusOK, h.serviceToHTTP.TournamentListResponse(infos))
}

// GetTournament handles GET /v1/tournaments/{id} requests.
func (h *Handlers) GetTournament(w http.ResponseWriter, r *http.Request) {
	id, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	info, err := h.tournaments.Status(ctx, id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, h.serviceToHTTP.TournamentResponse(info))
}

// DeleteTournament handles DELETE /v1/tournaments/{id} requests.
func (h *Handlers) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	if err := h.tournaments.DeleteTournament(ctx, id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, h.serviceToHTTP.DeleteResponse(id))
}

// Checkout handles POST /v1/tournaments/{id}/checkout requests.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	match, err := h.tournaments.Checkout(ctx, id)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeMatchesPendingCommit) {
			w.Header().Set("Retry-After", "1")
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, h.serviceToHTTP.MatchResponse(id, match))
}

// Commit handles POST /v1/tournaments/{id}/commit requests.
func (h *Handlers) Commit(w http.ResponseWriter, r *http.Request) {
	id, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	req, err := h.httpToService.CommitRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.tournaments.Commit(ctx, id, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, h.serviceToHTTP.CommitResponse(resp))
}

// CheckedOutMatches handles GET /v1/tournaments/{id}/checked-out requests.
func (h *Handlers) CheckedOutMatches(w http.ResponseWriter, r *http.Request) {
	id, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	matches, err := h.tournaments.CheckedOutMatches(ctx, id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, h.serviceToHTTP.MatchListResponse(id, matches))
}

// Table handles GET /v1/tournaments/{id}/table requests.
func (h *Handlers) Table(w http.ResponseWriter, r *http.Request) {
	id, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	req, err := h.httpToService.TableRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var table *model.Table
	if req.Order == converter.OrderCriteria {
		table, err = h.tournaments.TableByCriteria(ctx, id, req.Criteria)
	} else {
		table, err = h.tournaments.TableByScore(ctx, id)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, h.serviceToHTTP.TableResponse(id, req.Order, table))
}

// Winner handles GET /v1/tournaments/{id}/winner requests.
func (h *Handlers) Winner(w http.ResponseWriter, r *http.Request) {
	id, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	winner, err := h.tournaments.Winner(ctx, id, h.httpToService.Criteria(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, h.serviceToHTTP.WinnerResponse(id, winner))
}

// RepeatedMatches handles GET /v1/tournaments/{id}/repeated-matches requests.
func (h *Handlers) RepeatedMatches(w http.ResponseWriter, r *http.Request) {
	id, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	count, err := h.tournaments.RepeatedMatchCount(ctx, id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, h.serviceToHTTP.RepeatedMatchesResponse(id, count))
}

// begin extracts the tournament id and derives the call context. It writes
// the error response itself and reports false when the id is missing.
func (h *Handlers) begin(w http.ResponseWriter, r *http.Request) (string, context.Context, context.CancelFunc, bool) {
	id, err := h.httpToService.TournamentID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return "", nil, nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	return id, ctx, cancel, true
}

// writeJSONResponse writes a JSON response to the HTTP response writer.
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
