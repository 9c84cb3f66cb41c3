package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/docseg/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleQA queues an upload for segmentation and Q/A generation.
func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		jsonError(w, "q/a generation is not configured", http.StatusServiceUnavailable)
		return
	}
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	job := pipeline.NewJob(filename, data)
	job.Title = r.FormValue("title")
	job.Force, _ = strconv.ParseBool(r.FormValue("force"))

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("queued q/a job", "job_id", job.ID, "doc_id", job.DocID, "filename", filename)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":   job.ID,
		"doc_id":   job.DocID,
		"status":   string(pipeline.StatusQueued),
		"poll_url": "/api/qa/" + job.ID + "/status",
	})
}

func (s *Server) handleQAStatus(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		jsonError(w, "q/a generation is not configured", http.StatusServiceUnavailable)
		return
	}
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
