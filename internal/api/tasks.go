package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tasktempo/pkg/history"
	"tasktempo/pkg/task"
)

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.GetAllTasks(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, 200, tasks)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.tasks.GetTaskByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var in task.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	created, err := s.tasks.CreateTask(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 201, created)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in task.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	in.ID = id
	updated, err := s.tasks.UpdateTask(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, updated)
}

func (s *Server) handleTaskReorder(w http.ResponseWriter, r *http.Request) {
	var order []task.ListPosition
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	updated, err := s.tasks.ReorderTasks(r.Context(), order)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, updated)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := s.tasks.DeleteTask(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, deleted)
}

func (s *Server) handleTaskDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.tasks.DeleteAllTasks(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, map[string]int64{"deleted": n})
}

func (s *Server) handleTaskSeed(w http.ResponseWriter, r *http.Request) {
	n, err := s.tasks.SeedTasks(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 201, map[string]int64{"created": n})
}

func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, 404, "activity log disabled")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	events, err := s.history.ForTask(r.Context(), id)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	writeJSON(w, 200, events)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tasks.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, stats)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, 400, "invalid task id")
		return 0, false
	}
	return id, true
}
