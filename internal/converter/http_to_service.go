// Package converter translates between HTTP payloads and service calls.
package converter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
	"github.com/devrev/swissmatch/internal/service"
)

// IdempotencyKeyHeader carries the client supplied commit key
const IdempotencyKeyHeader = "Idempotency-Key"

// Table orderings accepted by the table endpoint
const (
	OrderScore    = "score"
	OrderCriteria = "criteria"
)

const maxBodyBytes = 1 << 20

// HTTPToService handles conversion of HTTP requests to service requests.
type HTTPToService struct{}

// NewHTTPToService creates a new HTTPToService converter.
func NewHTTPToService() *HTTPToService {
	return &HTTPToService{}
}

// CreateTournamentHTTPRequest represents the HTTP request body for CreateTournament.
type CreateTournamentHTTPRequest struct {
	Name             string   `json:"name,omitempty"`
	Players          []string `json:"players"`
	AdditionalRounds *int     `json:"additional_rounds,omitempty"`
	AllowRepeats     *bool    `json:"allow_repeats,omitempty"`
	Criteria         []string `json:"criteria,omitempty"`
}

// CommitHTTPRequest represents the HTTP request body for Commit. Result is
// 0 for a draw, 1 when player1 won and 2 when player2 won.
type CommitHTTPRequest struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Result  *int   `json:"result"`
}

// TableHTTPRequest represents the query parameters of the table endpoint
type TableHTTPRequest struct {
	Order    string
	Criteria []string
}

// TournamentID extracts the {id} route variable
func (c *HTTPToService) TournamentID(r *http.Request) (string, error) {
	id := mux.Vars(r)["id"]
	if id == "" {
		return "", apperrors.InvalidArgument("tournament id is required", nil)
	}
	return id, nil
}

// CreateTournamentRequest converts an HTTP request to a CreateTournamentRequest.
func (c *HTTPToService) CreateTournamentRequest(r *http.Request) (*service.CreateTournamentRequest, error) {
	var httpReq CreateTournamentHTTPRequest
	if err := decodeBody(r, &httpReq); err != nil {
		return nil, err
	}

	if httpReq.Players == nil {
		return nil, apperrors.InvalidArgument("players is required", nil)
	}
	if httpReq.AdditionalRounds != nil && *httpReq.AdditionalRounds < 0 {
		return nil, apperrors.InvalidArgument("additional_rounds must not be negative", nil)
	}

	return &service.CreateTournamentRequest{
		Name:             strings.TrimSpace(httpReq.Name),
		PlayerIDs:        httpReq.Players,
		AdditionalRounds: httpReq.AdditionalRounds,
		AllowRepeats:     httpReq.AllowRepeats,
		Criteria:         httpReq.Criteria,
	}, nil
}

// CommitRequest converts an HTTP request to a CommitRequest.
func (c *HTTPToService) CommitRequest(r *http.Request) (*service.CommitRequest, error) {
	var httpReq CommitHTTPRequest
	if err := decodeBody(r, &httpReq); err != nil {
		return nil, err
	}

	if httpReq.Player1 == "" || httpReq.Player2 == "" {
		return nil, apperrors.InvalidArgument("player1 and player2 are required", nil)
	}
	if httpReq.Result == nil {
		return nil, apperrors.InvalidArgument("result is required", nil)
	}

	result, err := model.ResultFromCode(*httpReq.Result)
	if err != nil {
		return nil, err
	}

	idempotencyKey := r.Header.Get(IdempotencyKeyHeader)
	if idempotencyKey != "" && !service.ValidateIdempotencyKey(idempotencyKey) {
		return nil, apperrors.InvalidArgument(
			fmt.Sprintf("%s must be 1 to %d printable characters", IdempotencyKeyHeader, service.MaxIdempotencyKeyLength), nil)
	}

	return &service.CommitRequest{
		Player1:        httpReq.Player1,
		Player2:        httpReq.Player2,
		Result:         result,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// TableRequest reads ?order=score|criteria&criteria=a,b
func (c *HTTPToService) TableRequest(r *http.Request) (*TableHTTPRequest, error) {
	query := r.URL.Query()

	order := query.Get("order")
	if order == "" {
		order = OrderScore
	}
	if order != OrderScore && order != OrderCriteria {
		return nil, apperrors.InvalidArgument(
			fmt.Sprintf("invalid order: %s (must be %s or %s)", order, OrderScore, OrderCriteria), nil)
	}

	return &TableHTTPRequest{
		Order:    order,
		Criteria: c.Criteria(r),
	}, nil
}

// Criteria reads the comma separated ?criteria= list
func (c *HTTPToService) Criteria(r *http.Request) []string {
	raw := r.URL.Query().Get("criteria")
	if raw == "" {
		return nil
	}

	var names []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.InvalidArgument("failed to read request body", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.InvalidArgument("failed to parse request body", err)
	}
	return nil
}
