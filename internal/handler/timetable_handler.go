package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableProposal, error)
	GetProposal(ctx context.Context, id string) (*dto.TimetableProposal, error)
	Save(ctx context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error)
	Review(ctx context.Context, scheduleID, reviewerID string, req dto.ReviewTimetableRequest) (*models.SemesterSchedule, error)
	List(ctx context.Context, query dto.SemesterScheduleQuery) ([]models.SemesterSchedule, bool, error)
	GetSlots(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error)
	Delete(ctx context.Context, scheduleID string) error
}

type timetableBatcher interface {
	Enqueue(ctx context.Context, req dto.BatchGenerateRequest) (*dto.BatchStatus, error)
	Status(ctx context.Context, batchID string) (*dto.BatchStatus, error)
}

// TimetableHandler exposes timetable generation and semester schedule endpoints.
type TimetableHandler struct {
	service timetableGenerator
	batch   timetableBatcher
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableGenerator, batch timetableBatcher) *TimetableHandler {
	return &TimetableHandler{service: svc, batch: batch}
}

// Generate godoc
// @Summary Generate a timetable proposal for one class
// @Description Runs the selected strategy (greedy, backtracking or genetic) and keeps the proposal for later saving.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate timetable payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	proposal, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, middleware.MetaSolveStrategy, proposal.Strategy)
	middleware.SetMeta(c, middleware.MetaFallback, proposal.Fallback)
	response.JSON(c, http.StatusOK, proposal, middleware.ExtractMeta(c))
}

// Proposal godoc
// @Summary Get a generated proposal
// @Tags Timetable
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/proposals/{id} [get]
func (h *TimetableHandler) Proposal(c *gin.Context) {
	proposal, err := h.service.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal)
}

// Save godoc
// @Summary Save a proposal as a semester schedule version
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.SaveTimetableRequest true "Save timetable payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/save [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	result, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Batch godoc
// @Summary Queue timetable generation for several classes
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.BatchGenerateRequest true "Batch payload"
// @Success 202 {object} response.Envelope
// @Router /timetables/batch [post]
func (h *TimetableHandler) Batch(c *gin.Context) {
	var req dto.BatchGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}
	status, err := h.batch.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, status)
}

// BatchStatus godoc
// @Summary Get batch progress
// @Tags Timetable
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/batch/{id} [get]
func (h *TimetableHandler) BatchStatus(c *gin.Context) {
	status, err := h.batch.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// List godoc
// @Summary List semester schedule versions
// @Tags Semester Schedules
// @Produce json
// @Param termId query string true "Term ID"
// @Param classId query string false "Class ID"
// @Param status query string false "DRAFT, PUBLISHED or ARCHIVED"
// @Success 200 {object} response.Envelope
// @Router /semester-schedules [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var query dto.SemesterScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, cacheHit, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// Slots godoc
// @Summary Get slots for a semester schedule
// @Tags Semester Schedules
// @Produce json
// @Param id path string true "Semester schedule ID"
// @Success 200 {object} response.Envelope
// @Router /semester-schedules/{id}/slots [get]
func (h *TimetableHandler) Slots(c *gin.Context) {
	slots, err := h.service.GetSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots)
}

// Review godoc
// @Summary Approve or reject a draft semester schedule
// @Tags Semester Schedules
// @Accept json
// @Produce json
// @Param id path string true "Semester schedule ID"
// @Param payload body dto.ReviewTimetableRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /semester-schedules/{id}/review [post]
func (h *TimetableHandler) Review(c *gin.Context) {
	var req dto.ReviewTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.Review(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Delete godoc
// @Summary Delete a draft semester schedule
// @Tags Semester Schedules
// @Param id path string true "Semester schedule ID"
// @Success 204
// @Router /semester-schedules/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
