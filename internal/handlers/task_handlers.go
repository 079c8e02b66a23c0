package handlers

import (
	"net/http"
	"time"

	"dayplanner/internal/dates"
	"dayplanner/internal/handlers/dto"
	"dayplanner/internal/logger"
	"dayplanner/internal/middleware"
	"dayplanner/internal/models/task"
	"dayplanner/internal/planner"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	Planners Planners
}

func NewTaskHandler(planners Planners) TaskHandler {
	return TaskHandler{
		Planners: planners,
	}
}

// ownerPlanner resolves the caller's planner from the request context. A
// false return means the response has already been written.
func (s *TaskHandler) ownerPlanner(w http.ResponseWriter, r *http.Request) (*planner.Planner, bool) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == uuid.Nil {
		logger.Warn("HTTP: missing owner in context",
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnauthorized, "not signed in")
		return nil, false
	}

	p, err := s.Planners.Get(r.Context(), ownerID)
	if err != nil {
		respondWithServiceError(w, err, "load planner")
		return nil, false
	}
	return p, true
}

func parseTaskID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	tasks := p.Tasks()

	logger.Info("HTTP_OUT: tasks listed",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: wrong content type",
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var request dto.CreateTaskRequest
	if err := decodeAndValidate(r, &request); err != nil {
		logger.Warn("HTTP: bad request body",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var date dates.Date
	if request.Date != "" {
		parsed, err := dates.Parse(request.Date)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, "invalid date: "+err.Error())
			return
		}
		date = parsed
	}

	priority, err := task.ParsePriority(request.Priority)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	created, err := p.Add(r.Context(), request.Text, date, priority, request.Notes)
	if err != nil {
		respondWithServiceError(w, err, "create task")
		return
	}

	// Blank text is silently ignored rather than rejected.
	if created == nil {
		logger.Info("HTTP_OUT: blank task ignored",
			zap.Duration("ms", time.Since(start)),
			zap.Int("http_status", http.StatusNoContent))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	logger.Info("HTTP_OUT: task created",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithRawJSON(w, http.StatusCreated, dto.FromTask(created))
}

func (s *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseTaskID(r)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	toggled, err := p.ToggleComplete(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "toggle task")
		return
	}

	logger.Info("HTTP_OUT: task toggled",
		zap.String("task_id", id.String()),
		zap.Bool("completed", toggled.Completed),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, dto.FromTask(toggled))
}

func (s *TaskHandler) PutTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseTaskID(r)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var request dto.EditTaskRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	priority, err := task.ParsePriority(request.Priority)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	edited, err := p.Edit(r.Context(), id, request.Text, request.Notes, priority)
	if err != nil {
		respondWithServiceError(w, err, "edit task")
		return
	}

	logger.Info("HTTP_OUT: task edited",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, dto.FromTask(edited))
}

func (s *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseTaskID(r)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var request dto.MoveTaskRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := dates.Parse(request.Date)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid date: "+err.Error())
		return
	}

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	moved, err := p.Move(r.Context(), id, date)
	if err != nil {
		respondWithServiceError(w, err, "move task")
		return
	}

	logger.Info("HTTP_OUT: task moved",
		zap.String("task_id", id.String()),
		zap.String("date", date.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, dto.FromTask(moved))
}

func (s *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseTaskID(r)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	if err := p.Remove(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "delete task")
		return
	}

	logger.Info("HTTP_OUT: task deleted",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	removed, err := p.ClearCompleted(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "clear completed")
		return
	}

	if removed == nil {
		removed = []uuid.UUID{}
	}

	logger.Info("HTTP_OUT: completed tasks cleared",
		zap.Int("count", len(removed)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("removed", removed))
}

func (s *TaskHandler) GetGrouped(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	view := p.View()

	if raw := r.URL.Query().Get("filter"); raw != "" {
		filter, err := planner.ParseFilter(raw)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		view.Filter = filter
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := dates.Parse(raw)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, "invalid date: "+err.Error())
			return
		}
		view.SelectedDate = date
	}

	groups := p.GroupedByDate(view)

	logger.Info("HTTP_OUT: grouped tasks",
		zap.String("filter", string(view.Filter)),
		zap.Int("groups", len(groups)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, dto.FromGroups(groups))
}

func (s *TaskHandler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	date := p.View().SelectedDate
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := dates.Parse(raw)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, "invalid date: "+err.Error())
			return
		}
		date = parsed
	}

	remaining := p.RemainingCount(date)

	logger.Info("HTTP_OUT: remaining count",
		zap.String("date", date.String()),
		zap.Int("remaining", remaining),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("date", date.String()),
		toPayload("remaining", remaining))
}

func (s *TaskHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	var anchor dates.Date
	if raw := r.URL.Query().Get("anchor"); raw != "" {
		parsed, err := dates.Parse(raw)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, "invalid anchor: "+err.Error())
			return
		}
		anchor = parsed
	}

	days := p.WeekStrip(anchor)

	logger.Info("HTTP_OUT: week strip",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, dto.FromWeek(days))
}

func (s *TaskHandler) GetView(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	responseWithRawJSON(w, http.StatusOK, p.View())
}

func (s *TaskHandler) PutView(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.ViewRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter, err := planner.ParseFilter(request.Filter)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, ok := s.ownerPlanner(w, r)
	if !ok {
		return
	}

	view := p.View()
	view.Filter = filter
	if request.SelectedDate != "" {
		date, err := dates.Parse(request.SelectedDate)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, "invalid date: "+err.Error())
			return
		}
		view.SelectedDate = date
	}
	if request.Draft != nil {
		draft := planner.Draft{
			Text:     request.Draft.Text,
			Priority: task.Priority(request.Draft.Priority),
			Notes:    request.Draft.Notes,
		}
		if request.Draft.Date != "" {
			date, err := dates.Parse(request.Draft.Date)
			if err != nil {
				responseWithError(w, http.StatusBadRequest, "invalid draft date: "+err.Error())
				return
			}
			draft.Date = date
		}
		view.Draft = draft
	}

	p.SetView(view)

	logger.Info("HTTP_OUT: view updated",
		zap.String("filter", string(view.Filter)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, p.View())
}
