package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/rehberci/backupd/internal/domain"
	"github.com/rehberci/backupd/internal/usecase"
)

type jobResponse struct {
	ID          string   `json:"id"`
	CreatedAt   string   `json:"created_at"`
	Status      string   `json:"status"`
	Tables      []string `json:"tables"`
	FileName    string   `json:"file_name,omitempty"`
	FileSize    int64    `json:"file_size,omitempty"`
	Error       string   `json:"error,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
}

type scheduleDTO struct {
	Enabled        bool     `json:"enabled"`
	Frequency      string   `json:"frequency"`
	TimeOfDay      string   `json:"time_of_day"`
	DayOfWeek      int      `json:"day_of_week"`
	DayOfMonth     int      `json:"day_of_month"`
	Tables         []string `json:"tables"`
	RetentionCount int      `json:"retention_count"`
	LastRun        string   `json:"last_run,omitempty"`
	NextRun        string   `json:"next_run,omitempty"`
	Version        int64    `json:"version"`
}

func toJobResponse(job domain.BackupJob) jobResponse {
	resp := jobResponse{
		ID:        job.ID,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		Status:    string(job.Status),
		Tables:    job.Tables,
		FileName:  job.FileName,
		FileSize:  job.FileSize,
		Error:     job.Error,
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func toScheduleDTO(s domain.Schedule) scheduleDTO {
	dto := scheduleDTO{
		Enabled:        s.Enabled,
		Frequency:      string(s.Frequency),
		TimeOfDay:      s.TimeOfDay.String(),
		DayOfWeek:      s.DayOfWeek,
		DayOfMonth:     s.DayOfMonth,
		Tables:         s.Tables,
		RetentionCount: s.RetentionCount,
		Version:        s.Version,
	}
	if s.LastRun != nil {
		dto.LastRun = s.LastRun.Format(time.RFC3339)
	}
	if s.NextRun != nil {
		dto.NextRun = s.NextRun.Format(time.RFC3339)
	}
	return dto
}

func (s *Server) handleRunNow() http.HandlerFunc {
	type request struct {
		Tables []string `json:"tables"`
	}
	type response struct {
		ID string `json:"id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
				return
			}
		}

		tables := req.Tables
		if len(tables) == 0 {
			sched, err := s.schedule.Load(r.Context())
			if err != nil {
				s.writeError(w, http.StatusInternalServerError, err)
				return
			}
			tables = sched.Tables
		}

		id, err := s.executor.Execute(r.Context(), tables)
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}

		s.writeJSON(w, http.StatusAccepted, response{ID: id})
	}
}

func (s *Server) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := s.jobs.List(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}

		out := make([]jobResponse, 0, len(jobs))
		for _, job := range jobs {
			out = append(out, toJobResponse(job))
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleGetJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
		s.writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

func (s *Server) handleDeleteJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.jobs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, name, err := s.jobs.Download(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (s *Server) handleLink() http.HandlerFunc {
	type response struct {
		URL string `json:"url"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		url, err := s.jobs.Link(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
		s.writeJSON(w, http.StatusOK, response{URL: url})
	}
}

func (s *Server) handleGetSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sched, err := s.schedule.Load(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, toScheduleDTO(sched))
	}
}

// handleSaveSchedule replaces the schedule's configuration fields. The body
// carries the version the client read; a stale version is a 409. last_run is
// preserved from the stored record, next_run is recomputed here.
func (s *Server) handleSaveSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dto scheduleDTO
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}

		current, err := s.schedule.Load(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}

		tod, err := domain.ParseTimeOfDay(dto.TimeOfDay)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}

		tables, err := domain.ValidateTables(dto.Tables, s.executor.AllowedTables())
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}

		next := current
		next.Enabled = dto.Enabled
		next.Frequency = domain.Frequency(dto.Frequency)
		next.TimeOfDay = tod
		next.DayOfWeek = dto.DayOfWeek
		next.DayOfMonth = dto.DayOfMonth
		next.Tables = tables
		next.RetentionCount = dto.RetentionCount
		next.Version = dto.Version

		if err := next.Validate(); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}

		if next.Enabled {
			nr := domain.NextRun(next, s.now())
			next.NextRun = &nr
		} else {
			next.NextRun = nil
		}

		saved, err := s.schedule.Save(r.Context(), next)
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}

		s.writeJSON(w, http.StatusOK, toScheduleDTO(saved))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Errorf("request failed: %v", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrNoArtifact):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBackupInProgress), errors.Is(err, domain.ErrScheduleConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTableNotAllowed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
