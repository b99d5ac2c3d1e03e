// Package handler exposes the scheduling workflow over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campussched/campussched-api/internal/dto"
	"github.com/campussched/campussched-api/pkg/errors"
	"github.com/campussched/campussched-api/pkg/response"
)

// ScheduleService is the handler's view of the service layer.
type ScheduleService interface {
	Validate(payload dto.Problem) *dto.ValidateResponse
	Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error)
	GetProposal(ctx context.Context, id string) (*dto.SolveResponse, error)
	ListProposals(ctx context.Context, limit int) ([]dto.ProposalSummary, error)
	PublishProposal(ctx context.Context, id string) error
	DeleteProposal(ctx context.Context, id string) error
	Diagnostics(ctx context.Context, id string) (*dto.DiagnosticsResponse, error)
	Export(ctx context.Context, id, format string) ([]byte, string, string, error)
}

// ScheduleHandler routes schedule endpoints onto the service.
type ScheduleHandler struct {
	svc ScheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

// Register mounts the schedule routes on the router group.
func (h *ScheduleHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/schedule/validate", h.validate)
	rg.POST("/schedule/solve", h.solve)
	rg.GET("/schedule/proposals", h.list)
	rg.GET("/schedule/proposals/:id", h.get)
	rg.GET("/schedule/proposals/:id/diagnostics", h.diagnostics)
	rg.GET("/schedule/proposals/:id/export", h.export)
	rg.POST("/schedule/proposals/:id/publish", h.publish)
	rg.DELETE("/schedule/proposals/:id", h.delete)
}

func (h *ScheduleHandler) validate(c *gin.Context) {
	var payload dto.Problem
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, errors.Wrap(err, errors.ErrValidation.Code, errors.ErrValidation.Status,
			"malformed problem payload"))
		return
	}
	response.OK(c, h.svc.Validate(payload))
}

func (h *ScheduleHandler) solve(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.Wrap(err, errors.ErrValidation.Code, errors.ErrValidation.Status,
			"malformed solve payload"))
		return
	}
	resp, err := h.svc.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

func (h *ScheduleHandler) list(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
				"limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	summaries, err := h.svc.ListProposals(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summaries)
}

func (h *ScheduleHandler) get(c *gin.Context) {
	resp, err := h.svc.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

func (h *ScheduleHandler) diagnostics(c *gin.Context) {
	resp, err := h.svc.Diagnostics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

func (h *ScheduleHandler) export(c *gin.Context) {
	raw, contentType, filename, err := h.svc.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, raw)
}

func (h *ScheduleHandler) publish(c *gin.Context) {
	if err := h.svc.PublishProposal(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *ScheduleHandler) delete(c *gin.Context) {
	if err := h.svc.DeleteProposal(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
