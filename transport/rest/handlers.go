package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-solo/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
	"github.com/rocketscienceinc/tictactoe-solo/internal/usecase"
)

const maxBodyBytes = 1 << 10

var errBadRequest = errors.New("malformed request")

type Handlers interface {
	Register(mux *http.ServeMux)
}

type sessionStore interface {
	Create() (string, *usecase.GameManager)
	Get(id string) (*usecase.GameManager, error)
	Delete(id string) error
}

type historyService interface {
	Recent(ctx context.Context, limit int) ([]*entity.GameRecord, error)
}

type handlers struct {
	logger *slog.Logger

	sessions     sessionStore
	history      historyService
	historyLimit int
}

func NewHandlers(logger *slog.Logger, sessions sessionStore, history historyService, historyLimit int) Handlers {
	return &handlers{
		logger:       logger.With("component", "rest"),
		sessions:     sessions,
		history:      history,
		historyLimit: historyLimit,
	}
}

type moveRequest struct {
	Cell *int `json:"cell"`
	Row  *int `json:"row"`
	Col  *int `json:"col"`
}

type gameResponse struct {
	SessionID string       `json:"session_id"`
	State     entity.State `json:"state"`
	CPUMove   *int         `json:"cpu_move,omitempty"`
}

type reflectionResponse struct {
	SessionID  string `json:"session_id"`
	Reflection string `json:"reflection"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ping", that.Ping)

	mux.HandleFunc("POST /games", that.CreateGame)
	mux.HandleFunc("GET /games/{id}", that.GetGame)
	mux.HandleFunc("DELETE /games/{id}", that.DeleteGame)
	mux.HandleFunc("POST /games/{id}/start", that.StartGame)
	mux.HandleFunc("POST /games/{id}/moves", that.MakeMove)
	mux.HandleFunc("POST /games/{id}/cpu", that.CPUMove)
	mux.HandleFunc("POST /games/{id}/reset", that.ResetGame)
	mux.HandleFunc("GET /games/{id}/reflection", that.Reflection)

	mux.HandleFunc("GET /history", that.History)
}

func (that *handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Error("failed to write pong", "error", err)
	}
}

func (that *handlers) CreateGame(w http.ResponseWriter, _ *http.Request) {
	id, game := that.sessions.Create()

	that.writeJSON(w, http.StatusCreated, gameResponse{SessionID: id, State: game.CurrentState()})
}

func (that *handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	game, err := that.sessions.Get(id)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, gameResponse{SessionID: id, State: game.CurrentState()})
}

func (that *handlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := that.sessions.Delete(r.PathValue("id")); err != nil {
		that.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StartGame starts the game and plays the CPU's opening when it moves first.
func (that *handlers) StartGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	game, err := that.sessions.Get(id)
	if err != nil {
		that.writeError(w, err)
		return
	}

	if err = game.Start(r.Context()); err != nil {
		that.writeError(w, err)
		return
	}

	cpuMove := that.replyIfCPUTurn(r.Context(), id, game)

	that.writeJSON(w, http.StatusOK, gameResponse{SessionID: id, State: game.CurrentState(), CPUMove: cpuMove})
}

// MakeMove plays the human's cell and the CPU's answer.
func (that *handlers) MakeMove(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "MakeMove")
	id := r.PathValue("id")

	game, err := that.sessions.Get(id)
	if err != nil {
		that.writeError(w, err)
		return
	}

	cell, err := decodeCell(w, r)
	if err != nil {
		log.Debug("bad move request", "sessionID", id, "error", err)
		that.writeError(w, err)
		return
	}

	if err = game.SubmitMove(cell); err != nil {
		that.writeError(w, err)
		return
	}

	cpuMove := that.replyIfCPUTurn(r.Context(), id, game)

	that.writeJSON(w, http.StatusOK, gameResponse{SessionID: id, State: game.CurrentState(), CPUMove: cpuMove})
}

// CPUMove retries the CPU's turn after a failed reply.
func (that *handlers) CPUMove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	game, err := that.sessions.Get(id)
	if err != nil {
		that.writeError(w, err)
		return
	}

	cell, err := game.TakeCPUTurn(r.Context())
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, gameResponse{SessionID: id, State: game.CurrentState(), CPUMove: &cell})
}

func (that *handlers) ResetGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	game, err := that.sessions.Get(id)
	if err != nil {
		that.writeError(w, err)
		return
	}

	game.Reset()

	that.writeJSON(w, http.StatusOK, gameResponse{SessionID: id, State: game.CurrentState()})
}

func (that *handlers) Reflection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	game, err := that.sessions.Get(id)
	if err != nil {
		that.writeError(w, err)
		return
	}

	comment, err := game.Reflect(r.Context())
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, reflectionResponse{SessionID: id, Reflection: comment})
}

func (that *handlers) History(w http.ResponseWriter, r *http.Request) {
	limit := that.historyLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			that.writeError(w, errBadRequest)
			return
		}
		limit = parsed
	}

	records, err := that.history.Recent(r.Context(), limit)
	if err != nil {
		that.writeError(w, err)
		return
	}

	if records == nil {
		records = []*entity.GameRecord{}
	}

	that.writeJSON(w, http.StatusOK, records)
}

// replyIfCPUTurn plays the CPU when it is due. A failure leaves the turn with the CPU
// for POST /games/{id}/cpu; the caller still answers with the current state.
func (that *handlers) replyIfCPUTurn(ctx context.Context, id string, game *usecase.GameManager) *int {
	state := game.CurrentState()
	if !state.IsCPUTurn() {
		return nil
	}

	cell, err := game.TakeCPUTurn(ctx)
	if err != nil {
		that.logger.Error("cpu reply failed", "sessionID", id, "gameID", state.GameID, "error", err)
		return nil
	}

	return &cell
}

// decodeCell accepts {"cell": n} or {"row": r, "col": c}.
func decodeCell(w http.ResponseWriter, r *http.Request) (int, error) {
	var req moveRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return 0, errBadRequest
	}

	switch {
	case req.Cell != nil:
		return *req.Cell, nil
	case req.Row != nil && req.Col != nil:
		return entity.IndexOf(*req.Row, *req.Col)
	default:
		return 0, errBadRequest
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, apperror.ErrInvalidIndex),
		errors.Is(err, apperror.ErrInvalidMark):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrSessionNotFound),
		errors.Is(err, apperror.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrOccupiedCell),
		errors.Is(err, apperror.ErrOutOfTurn),
		errors.Is(err, apperror.ErrGameInProgress),
		errors.Is(err, apperror.ErrGameNotFinished):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (that *handlers) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "error", err)
		message = "Internal Server Error"
	}

	that.writeJSON(w, status, errorResponse{Error: message})
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
