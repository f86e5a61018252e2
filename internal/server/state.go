package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/models"
	"sprintboard/internal/planner"
	"sprintboard/internal/storage/csvfile"
)

type planRequest struct {
	Issues       []models.Issue     `json:"issues"`
	TeamCapacity map[string]float64 `json:"teamCapacity"`
}

// handleGetState loads the full board from the backing export.
func (s *Server) handleGetState(c *gin.Context) {
	state, err := s.store.Load()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"state": state})
}

// handlePutState persists a caller-mutated board wholesale. A payload that
// does not decode into a State is the one caller error surfaced here; data
// quality problems inside the export never are.
func (s *Server) handlePutState(c *gin.Context) {
	var state models.State
	if err := c.ShouldBindJSON(&state); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := s.store.Save(state); err != nil {
		// Only rejected caller input is the caller's fault; failures
		// touching the backing files are ours.
		status := http.StatusInternalServerError
		if errors.Is(err, csvfile.ErrInvalidState) {
			status = http.StatusBadRequest
		}
		s.respondError(c, status, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "saved"})
}

// handlePlan runs the scheduling engine over the posted issues and returns
// the planned sequence. Nothing is persisted; the client saves explicitly.
func (s *Server) handlePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	planned := planner.Schedule(req.Issues, req.TeamCapacity)
	respondSuccess(c, http.StatusOK, gin.H{"issues": planned})
}
