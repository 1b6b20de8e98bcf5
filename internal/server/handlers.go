package server

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/code-reviewer/internal/db"
	"github.com/jonathan/code-reviewer/internal/pipeline"
	"github.com/jonathan/code-reviewer/internal/types"
)

// maxCodeBytes caps the size of a submitted artifact
const maxCodeBytes = 4 << 20

// decodeReviewRequest reads and validates a review request body.
func (s *Server) decodeReviewRequest(w http.ResponseWriter, r *http.Request) (*types.ReviewRequest, error) {
	var req types.ReviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCodeBytes)).Decode(&req); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()}
	}
	if err := req.Validate(); err != nil {
		return nil, &ErrValidation{Field: "name", Message: err.Error()}
	}
	if req.Persist {
		if s.store == nil {
			return nil, &ErrValidation{Field: "persist", Message: "server has no output directory"}
		}
		if !filepath.IsLocal(req.Name) {
			return nil, &ErrValidation{Field: "name", Message: "must be a relative path inside the output directory"}
		}
	}
	return &req, nil
}

// persist writes the final text when the request asked for it.
func (s *Server) persist(req *types.ReviewRequest, run *pipeline.Run, resp *types.ReviewResponse) error {
	if !req.Persist || run.Status != pipeline.RunStatusCompleted {
		return nil
	}
	name := s.store.DeriveName(req.Name)
	if _, err := s.store.Write(name, run.FinalText); err != nil {
		return err
	}
	resp.OutputName = name
	return nil
}

// handleReview runs the pipeline on the submitted code and returns the run summary
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeReviewRequest(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	ctrl, err := s.newController(nil)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Starting review of %s (%d bytes)", req.Name, len(req.Code))
	run, runErr := ctrl.Process(r.Context(), types.Artifact{Name: req.Name, Body: req.Code})
	resp := run.Summary()
	if runErr != nil {
		log.Printf("Review of %s failed: %v", req.Name, runErr)
		s.jsonResponse(w, HTTPStatus(runErr), resp)
		return
	}

	if err := s.persist(req, run, &resp); err != nil {
		log.Printf("Failed to persist review of %s: %v", req.Name, err)
		resp.Error = err.Error()
		s.jsonResponse(w, HTTPStatus(err), resp)
		return
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleReviewStream runs the pipeline and streams per-stage progress via SSE
func (s *Server) handleReviewStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeReviewRequest(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctrl, err := s.newController(sse)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Starting streaming review of %s", req.Name)

	// Run pipeline synchronously (blocking until complete)
	run, runErr := ctrl.Process(r.Context(), types.Artifact{Name: req.Name, Body: req.Code})
	resp := run.Summary()
	if runErr == nil {
		if err := s.persist(req, run, &resp); err != nil {
			runErr = err
			resp.Error = err.Error()
		}
	}

	sse.WriteResult(resp)
	if runErr != nil {
		log.Printf("Streaming review of %s failed: %v", req.Name, runErr)
		sse.WriteError(runErr.Error())
		sse.WriteComplete(resp.RunID, string(pipeline.RunStatusFailed))
		return
	}
	sse.WriteComplete(resp.RunID, resp.Status)
	log.Printf("Streaming review of %s completed", req.Name)
}

// handleListRuns lists ledger runs, filtered by ?artifact=, ?status= and ?limit=
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		err := &ErrLedgerUnavailable{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	q := r.URL.Query()
	filters := db.RunFilters{
		ArtifactName: q.Get("artifact"),
		Status:       q.Get("status"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 500 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		filters.Limit = limit
	}

	runs, err := s.ledger.ListRuns(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns one ledger run with its stage rows
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		err := &ErrLedgerUnavailable{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	idStr := r.PathValue("id")
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return
	}

	run, err := s.ledger.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		notFound := &ErrRunNotFound{ID: idStr}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, run)
}
