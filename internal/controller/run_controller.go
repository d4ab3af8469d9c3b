// Package controller exposes the execution manager over HTTP.
package controller

import (
	"github.com/gin-gonic/gin"

	"codemanager/internal/manager"
	"codemanager/pkg/utils/response"
)

// RunController handles execution-related HTTP endpoints.
type RunController struct {
	manager *manager.CodeManager
}

// NewRunController creates a new RunController.
func NewRunController(m *manager.CodeManager) *RunController {
	return &RunController{manager: m}
}

// Health reports liveness.
func (h *RunController) Health(c *gin.Context) {
	response.Text(c, "code_manager is running")
}

// Run admits and executes one submission.
func (h *RunController) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request parameters")
		return
	}

	result, err := h.manager.Run(c.Request.Context(), toManagerRequest(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toRunResponse(result))
}

// SetMaxConcurrent changes the admission cap.
func (h *RunController) SetMaxConcurrent(c *gin.Context) {
	var req CapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request parameters")
		return
	}

	if err := h.manager.SetCapacity(req.MaxConcurrent); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"max_concurrent": req.MaxConcurrent})
}

// Metrics reports queue occupancy.
func (h *RunController) Metrics(c *gin.Context) {
	response.OK(c, h.manager.Metrics())
}
