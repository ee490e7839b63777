package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taskdeck/internal/api"
	"taskdeck/internal/task"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleList returns every task; curRow/limitRow select a window of the
// full collection, filtering is left to the client.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	req := api.ListRequest{LimitRow: api.DefaultLimitRow}
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	tasks, err := s.store.FetchAll(r.Context(), task.Filters{})
	if err != nil {
		s.fail(w, r, "list tasks", err)
		return
	}

	total := len(tasks)
	start := min(req.CurRow, total)
	end := total
	if req.LimitRow > 0 {
		end = min(start+req.LimitRow, total)
	}

	resp := api.ListResponse{Data: make([]api.Task, 0, end-start), TotalRecord: total}
	for _, t := range tasks[start:end] {
		resp.Data = append(resp.Data, api.FromTask(t))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req api.SaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	priority, err := task.ParsePriority(req.Priority)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := task.ParseStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.Add(r.Context(), task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      status,
	})
	if err != nil {
		s.fail(w, r, "save task", err)
		return
	}
	s.logger.Info("task created", "task_id", created.ID, "request_id", middleware.GetReqID(r.Context()))
	s.hub.Broadcast(api.ChangeEvent{Event: api.EventTasksChanged, Op: "create", TaskID: created.ID})
	respondJSON(w, http.StatusOK, "Task saved successfully")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	in := task.UpdateInput{ID: req.TaskID, Title: req.Title, Description: req.Description}
	if req.Priority != nil {
		p, err := task.ParsePriority(*req.Priority)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.Priority = &p
	}
	if req.Status != nil {
		st, err := task.ParseStatus(*req.Status)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.Status = &st
	}

	if err := s.store.Update(r.Context(), in); err != nil {
		s.fail(w, r, "update task", err)
		return
	}
	s.logger.Info("task updated", "task_id", in.ID, "request_id", middleware.GetReqID(r.Context()))
	s.hub.Broadcast(api.ChangeEvent{Event: api.EventTasksChanged, Op: "update", TaskID: in.ID})
	respondJSON(w, http.StatusOK, "Task updated successfully")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid task id")
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "delete task", err)
		return
	}
	s.logger.Info("task deleted", "task_id", id, "request_id", middleware.GetReqID(r.Context()))
	s.hub.Broadcast(api.ChangeEvent{Event: api.EventTasksChanged, Op: "delete", TaskID: id})
	respondJSON(w, http.StatusOK, "Task deleted successfully")
}

// fail logs err and writes the status mapped from it. Internal error text
// never reaches the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(action+" failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
	}
	respondError(w, status, safeMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, task.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func safeMessage(err error) string {
	switch {
	case errors.Is(err, task.ErrNotFound):
		return "Task not found"
	case errors.Is(err, task.ErrInvalid):
		return err.Error()
	default:
		return "An unexpected error occurred"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, api.ErrorResponse{Error: msg})
}
