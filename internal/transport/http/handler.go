// Package http exposes the session operations over JSON REST plus a
// websocket room watcher.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/quizgen"
)

type Handler struct {
	service *app.RoomService
}

func NewHandler(service *app.RoomService) *Handler {
	return &Handler{service: service}
}

// Register mounts all REST routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.createRoom)
	mux.HandleFunc("POST /api/rooms/{code}/join", h.joinRoom)
	mux.HandleFunc("POST /api/rooms/{code}/questions", h.loadQuestions)
	mux.HandleFunc("POST /api/rooms/{code}/quiz", h.loadArchivedQuiz)
	mux.HandleFunc("POST /api/rooms/{code}/start", h.startGame)
	mux.HandleFunc("GET /api/rooms/{code}/view", h.currentView)
	mux.HandleFunc("POST /api/rooms/{code}/answers", h.submitAnswer)
	mux.HandleFunc("GET /api/rooms/{code}/results", h.results)
	mux.HandleFunc("GET /api/quizzes", h.listQuizzes)
	mux.HandleFunc("DELETE /api/quizzes/{id}", h.deleteQuiz)
}

type createRoomRequest struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
}

type createRoomResponse struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	room, err := h.service.CreateRoom(r.Context(), req.Name, domain.Visibility(req.Visibility))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{
		Code:       room.Code,
		Name:       room.Name,
		Visibility: string(room.Visibility),
	})
}

type joinRoomRequest struct {
	Player string `json:"player"`
}

type joinRoomResponse struct {
	Players []domain.Player `json:"players"`
	Scores  map[string]int  `json:"scores"`
}

func (h *Handler) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" {
		writeError(w, http.StatusBadRequest, "missing player name")
		return
	}
	room, err := h.service.JoinRoom(r.Context(), r.PathValue("code"), req.Player)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinRoomResponse{Players: room.Players, Scores: room.Scores})
}

type loadQuestionsRequest struct {
	Content     string   `json:"content"`
	Count       int      `json:"count"`
	ArchiveID   string   `json:"archiveId"`
	Mix         bool     `json:"mix"`
	MixCount    int      `json:"mixCount"`
	QuizName    string   `json:"quizName"`
	SourceFiles []string `json:"sourceFiles"`
}

type loadQuestionsResponse struct {
	QuestionCount int    `json:"questionCount"`
	ArchiveID     string `json:"archiveId"`
	ArchiveName   string `json:"archiveName"`
}

func (h *Handler) loadQuestions(w http.ResponseWriter, r *http.Request) {
	var req loadQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" && req.ArchiveID == "" {
		writeError(w, http.StatusBadRequest, "content or archiveId required")
		return
	}
	result, err := h.service.LoadQuestions(r.Context(), r.PathValue("code"), quizgen.Request{
		Content:     req.Content,
		Count:       req.Count,
		ArchiveID:   req.ArchiveID,
		Mix:         req.Mix,
		MixCount:    req.MixCount,
		QuizName:    req.QuizName,
		SourceFiles: req.SourceFiles,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loadQuestionsResponse{
		QuestionCount: len(result.Questions),
		ArchiveID:     result.QuizID,
		ArchiveName:   result.QuizName,
	})
}

type loadArchivedQuizRequest struct {
	QuizID string `json:"quizId"`
}

type loadArchivedQuizResponse struct {
	QuestionCount int    `json:"questionCount"`
	Name          string `json:"name"`
}

func (h *Handler) loadArchivedQuiz(w http.ResponseWriter, r *http.Request) {
	var req loadArchivedQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "missing quizId")
		return
	}
	result, err := h.service.LoadArchivedQuiz(r.Context(), r.PathValue("code"), req.QuizID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loadArchivedQuizResponse{
		QuestionCount: len(result.Questions),
		Name:          result.QuizName,
	})
}

func (h *Handler) startGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.StartGame(r.Context(), r.PathValue("code")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) currentView(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.CurrentView(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type submitAnswerRequest struct {
	Player string `json:"player"`
	Choice *int   `json:"choice"`
}

type submitAnswerResponse struct {
	Status     string         `json:"status"`
	Correct    bool           `json:"correct"`
	Awarded    int            `json:"awarded"`
	TotalScore int            `json:"totalScore"`
	Scores     map[string]int `json:"scores"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" || req.Choice == nil {
		writeError(w, http.StatusBadRequest, "missing player or choice")
		return
	}
	outcome, scores, err := h.service.SubmitAnswer(r.Context(), r.PathValue("code"), req.Player, *req.Choice)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := "accepted"
	if outcome.Duplicate {
		status = "duplicate"
	}
	writeJSON(w, http.StatusOK, submitAnswerResponse{
		Status:     status,
		Correct:    outcome.Correct,
		Awarded:    outcome.Awarded,
		TotalScore: outcome.TotalScore,
		Scores:     scores,
	})
}

func (h *Handler) results(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	results, err := h.service.Results(r.Context(), r.PathValue("code"), player)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type listQuizzesResponse struct {
	Quizzes []domain.QuizSummary `json:"quizzes"`
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if summaries == nil {
		summaries = []domain.QuizSummary{}
	}
	writeJSON(w, http.StatusOK, listQuizzesResponse{Quizzes: summaries})
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuiz(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrQuizNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrPlayerNameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidChoice), errors.Is(err, domain.ErrInvalidQuestion), errors.Is(err, domain.ErrInvalidRoomCode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUpstreamFailure):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
