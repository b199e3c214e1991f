package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/converter"
	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
	"github.com/devrev/swissmatch/internal/service"
)

// MockTournamentAPI is a mock implementation of TournamentAPI
type MockTournamentAPI struct {
	mock.Mock
}

func (m *MockTournamentAPI) CreateTournament(ctx context.Context, req *service.CreateTournamentRequest) (*model.TournamentInfo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TournamentInfo), args.Error(1)
}

func (m *MockTournamentAPI) ListTournaments(ctx context.Context) []model.TournamentInfo {
	args := m.Called(ctx)
	return args.Get(0).([]model.TournamentInfo)
}

func (m *MockTournamentAPI) Status(ctx context.Context, id string) (*model.TournamentInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TournamentInfo), args.Error(1)
}

func (m *MockTournamentAPI) DeleteTournament(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTournamentAPI) Checkout(ctx context.Context, id string) (*model.MatchView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MatchView), args.Error(1)
}

func (m *MockTournamentAPI) Commit(ctx context.Context, id string, req *service.CommitRequest) (*service.CommitResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CommitResponse), args.Error(1)
}

func (m *MockTournamentAPI) CheckedOutMatches(ctx context.Context, id string) ([]model.MatchView, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]model.MatchView), args.Error(1)
}

func (m *MockTournamentAPI) TableByScore(ctx context.Context, id string) (*model.Table, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Table), args.Error(1)
}

func (m *MockTournamentAPI) TableByCriteria(ctx context.Context, id string, criteria []string) (*model.Table, error) {
	args := m.Called(ctx, id, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Table), args.Error(1)
}

func (m *MockTournamentAPI) Winner(ctx context.Context, id string, criteria []string) (*model.Winner, error) {
	args := m.Called(ctx, id, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Winner), args.Error(1)
}

func (m *MockTournamentAPI) RepeatedMatchCount(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func newTestHandlers() (*Handlers, *MockTournamentAPI) {
	api := new(MockTournamentAPI)
	logger := zap.NewNop()
	return NewHandlers(api, apperrors.NewHandler(logger), logger, time.Second), api
}

func withID(r *http.Request, id string) *http.Request {
	return mux.SetURLVars(r, map[string]string{"id": id})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandlers_CreateTournament(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("CreateTournament", mock.Anything, mock.MatchedBy(func(req *service.CreateTournamentRequest) bool {
			return len(req.PlayerIDs) == 2 && req.Name == "Open"
		})).Return(&model.TournamentInfo{ID: "open-1234abcd", Players: 2, RoundsRequired: 1}, nil)

		body := `{"name":"Open","players":["a","b"]}`
		w := httptest.NewRecorder()
		h.CreateTournament(w, httptest.NewRequest(http.MethodPost, "/v1/tournaments", bytes.NewBufferString(body)))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "/v1/tournaments/open-1234abcd", w.Header().Get("Location"))

		var resp converter.TournamentHTTPResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "open-1234abcd", resp.Tournament.ID)
		api.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		h, api := newTestHandlers()
		w := httptest.NewRecorder()
		h.CreateTournament(w, httptest.NewRequest(http.MethodPost, "/v1/tournaments", bytes.NewBufferString(`{invalid}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		api.AssertNotCalled(t, "CreateTournament", mock.Anything, mock.Anything)
	})

	t.Run("repeated ids", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("CreateTournament", mock.Anything, mock.Anything).Return(nil, apperrors.RepeatedPlayerIDs([]string{"a"}))

		w := httptest.NewRecorder()
		h.CreateTournament(w, httptest.NewRequest(http.MethodPost, "/v1/tournaments", bytes.NewBufferString(`{"players":["a","a"]}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, apperrors.HTTPErrorCode("REPEATED_PLAYER_IDS"), resp.ErrorCode)
		assert.Equal(t, int(apperrors.ErrCodeRepeatedPlayerIDs), resp.FaultCode)
	})
}

func TestHandlers_Checkout(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("Checkout", mock.Anything, "t1").Return(&model.MatchView{Player1: "a", Player2: "b", Round: 0, Result: "pending"}, nil)

		w := httptest.NewRecorder()
		h.Checkout(w, withID(httptest.NewRequest(http.MethodPost, "/v1/tournaments/t1/checkout", nil), "t1"))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp converter.MatchHTTPResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, model.PlayerID("a"), resp.Match.Player1)
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantFault  apperrors.ErrorCode
	}{
		{"pending commit", apperrors.MatchesPendingCommit(1), http.StatusServiceUnavailable, apperrors.ErrCodeMatchesPendingCommit},
		{"end of tournament", apperrors.EndOfTournament(), http.StatusBadRequest, apperrors.ErrCodeEndOfTournament},
		{"pairing exhausted", apperrors.MaxRearranges(2, 8), http.StatusConflict, apperrors.ErrCodeMaxRearranges},
		{"unknown tournament", apperrors.TournamentNotFound("t1"), http.StatusNotFound, apperrors.ErrCodeTournamentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, api := newTestHandlers()
			api.On("Checkout", mock.Anything, "t1").Return(nil, tt.err)

			w := httptest.NewRecorder()
			h.Checkout(w, withID(httptest.NewRequest(http.MethodPost, "/", nil), "t1"))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, int(tt.wantFault), decodeError(t, w).FaultCode)
		})
	}

	t.Run("retry hint while matches are pending", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("Checkout", mock.Anything, "t1").Return(nil, apperrors.MatchesPendingCommit(3))

		w := httptest.NewRecorder()
		h.Checkout(w, withID(httptest.NewRequest(http.MethodPost, "/", nil), "t1"))
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})
}

func TestHandlers_Commit(t *testing.T) {
	t.Run("committed", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("Commit", mock.Anything, "t1", &service.CommitRequest{
			Player1:        "b",
			Player2:        "a",
			Result:         model.ResultPlayer1Wins,
			IdempotencyKey: "k1",
		}).Return(&service.CommitResponse{
			TournamentID: "t1",
			Match:        model.MatchView{Player1: "a", Player2: "b", Result: "player2_wins"},
			CommittedAt:  time.Now(),
		}, nil)

		req := withID(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"player1":"b","player2":"a","result":1}`)), "t1")
		req.Header.Set(converter.IdempotencyKeyHeader, "k1")
		w := httptest.NewRecorder()
		h.Commit(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp converter.CommitHTTPResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "player2_wins", resp.Match.Result)
		api.AssertExpectations(t)
	})

	t.Run("not checked out", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("Commit", mock.Anything, "t1", mock.Anything).Return(nil, apperrors.MatchNotCheckedOut("a", "b"))

		w := httptest.NewRecorder()
		h.Commit(w, withID(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"player1":"a","player2":"b","result":0}`)), "t1"))

		assert.Equal(t, http.StatusPreconditionFailed, w.Code)
		assert.Equal(t, int(apperrors.ErrCodeMatchNotCheckedOut), decodeError(t, w).FaultCode)
	})

	t.Run("already committed", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("Commit", mock.Anything, "t1", mock.Anything).Return(nil, apperrors.MatchExists("a", "b"))

		w := httptest.NewRecorder()
		h.Commit(w, withID(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"player1":"a","player2":"b","result":2}`)), "t1"))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid result code", func(t *testing.T) {
		h, api := newTestHandlers()
		w := httptest.NewRecorder()
		h.Commit(w, withID(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"player1":"a","player2":"b","result":9}`)), "t1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		api.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandlers_Table(t *testing.T) {
	table := &model.Table{
		Criteria: []string{"score"},
		Rows:     []model.TableRow{{PlayerID: "a", MatchesPlayed: 1, Values: []float64{1}}},
	}

	t.Run("by score", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("TableByScore", mock.Anything, "t1").Return(table, nil)

		w := httptest.NewRecorder()
		h.Table(w, withID(httptest.NewRequest(http.MethodGet, "/v1/tournaments/t1/table", nil), "t1"))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp converter.TableHTTPResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, converter.OrderScore, resp.Order)
		assert.Len(t, resp.Rows, 1)
	})

	t.Run("by criteria", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("TableByCriteria", mock.Anything, "t1", []string{"wins", "score"}).Return(table, nil)

		w := httptest.NewRecorder()
		h.Table(w, withID(httptest.NewRequest(http.MethodGet, "/v1/tournaments/t1/table?order=criteria&criteria=wins,score", nil), "t1"))

		assert.Equal(t, http.StatusOK, w.Code)
		api.AssertExpectations(t)
	})

	t.Run("unknown criterion", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("TableByCriteria", mock.Anything, "t1", []string{"elo"}).Return(nil, apperrors.InvalidArgument(`unknown criterion "elo"`, nil))

		w := httptest.NewRecorder()
		h.Table(w, withID(httptest.NewRequest(http.MethodGet, "/?order=criteria&criteria=elo", nil), "t1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandlers_Winner(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("Winner", mock.Anything, "t1", []string(nil)).Return(&model.Winner{PlayerID: "a", Criterion: "buchholz_score"}, nil)

		w := httptest.NewRecorder()
		h.Winner(w, withID(httptest.NewRequest(http.MethodGet, "/", nil), "t1"))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp converter.WinnerHTTPResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, model.PlayerID("a"), resp.PlayerID)
		assert.Equal(t, "buchholz_score", resp.Criterion)
	})

	t.Run("still running", func(t *testing.T) {
		h, api := newTestHandlers()
		api.On("Winner", mock.Anything, "t1", mock.Anything).Return(nil, apperrors.StillRunning(1, 3))

		w := httptest.NewRecorder()
		h.Winner(w, withID(httptest.NewRequest(http.MethodGet, "/", nil), "t1"))

		assert.Equal(t, http.StatusPreconditionFailed, w.Code)
		assert.Equal(t, int(apperrors.ErrCodeStillRunning), decodeError(t, w).FaultCode)
	})
}

func TestHandlers_Lifecycle(t *testing.T) {
	h, api := newTestHandlers()
	api.On("ListTournaments", mock.Anything).Return([]model.TournamentInfo{{ID: "t1"}, {ID: "t2"}})
	api.On("Status", mock.Anything, "t1").Return(&model.TournamentInfo{ID: "t1", Round: 2}, nil)
	api.On("CheckedOutMatches", mock.Anything, "t1").Return([]model.MatchView(nil), nil)
	api.On("RepeatedMatchCount", mock.Anything, "t1").Return(1, nil)
	api.On("DeleteTournament", mock.Anything, "t1").Return(nil)
	api.On("DeleteTournament", mock.Anything, "t2").Return(apperrors.TournamentNotFound("t2"))

	w := httptest.NewRecorder()
	h.ListTournaments(w, httptest.NewRequest(http.MethodGet, "/v1/tournaments", nil))
	var list converter.TournamentListHTTPResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	w = httptest.NewRecorder()
	h.GetTournament(w, withID(httptest.NewRequest(http.MethodGet, "/", nil), "t1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.CheckedOutMatches(w, withID(httptest.NewRequest(http.MethodGet, "/", nil), "t1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matches":[]`)

	w = httptest.NewRecorder()
	h.RepeatedMatches(w, withID(httptest.NewRequest(http.MethodGet, "/", nil), "t1"))
	var repeated converter.RepeatedMatchesHTTPResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &repeated))
	assert.Equal(t, 1, repeated.RepeatedMatchCount)

	w = httptest.NewRecorder()
	h.DeleteTournament(w, withID(httptest.NewRequest(http.MethodDelete, "/", nil), "t1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.DeleteTournament(w, withID(httptest.NewRequest(http.MethodDelete, "/", nil), "t2"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	api.AssertExpectations(t)
}

func TestHandlers_MissingID(t *testing.T) {
	h, api := newTestHandlers()

	w := httptest.NewRecorder()
	h.Checkout(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	api.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
}
