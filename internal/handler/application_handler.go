package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careerplatform/admissions-api/internal/models"
	"github.com/careerplatform/admissions-api/internal/service"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
	"github.com/careerplatform/admissions-api/pkg/response"
)

// ApplicationHandler exposes application endpoints.
type ApplicationHandler struct {
	admissions *service.AdmissionService
	exports    *service.ExportService
	metrics    *service.MetricsService
}

// NewApplicationHandler constructs ApplicationHandler.
func NewApplicationHandler(admissions *service.AdmissionService, exports *service.ExportService, metrics *service.MetricsService) *ApplicationHandler {
	return &ApplicationHandler{admissions: admissions, exports: exports, metrics: metrics}
}

// Apply godoc
// @Summary Apply to a course
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body service.ApplyCourseRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req service.ApplyCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.admissions.Apply(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcome.Application == nil {
		// eligibility failed: a normal negative result, not an error
		h.metrics.CountApplication("ineligible")
		response.JSON(c, http.StatusUnprocessableEntity, outcome, nil)
		return
	}
	h.metrics.CountApplication("applied")
	response.Created(c, outcome)
}

// Eligibility godoc
// @Summary Check eligibility for a course without applying
// @Tags Applications
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /eligibility/{courseId} [get]
func (h *ApplicationHandler) Eligibility(c *gin.Context) {
	result, err := h.admissions.CheckEligibility(c.Request.Context(), claimsFromContext(c), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List applications visible to the caller
// @Tags Applications
// @Produce json
// @Param status query string false "Filter by status"
// @Param courseId query string false "Filter by course"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	filter := applicationFilterFromQuery(c)
	applications, pagination, err := h.admissions.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Approve godoc
// @Summary Approve a pending application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/approve [post]
func (h *ApplicationHandler) Approve(c *gin.Context) {
	h.decide(c, models.ApplicationEventApprove, "approved")
}

// Reject godoc
// @Summary Reject a pending application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/reject [post]
func (h *ApplicationHandler) Reject(c *gin.Context) {
	h.decide(c, models.ApplicationEventReject, "rejected")
}

func (h *ApplicationHandler) decide(c *gin.Context, event models.ApplicationEvent, outcome string) {
	detail, err := h.admissions.Decide(c.Request.Context(), claimsFromContext(c), c.Param("id"), event)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.CountApplication(outcome)
	response.JSON(c, http.StatusOK, detail, nil)
}

// Export godoc
// @Summary Download applications as CSV or PDF
// @Tags Applications
// @Produce text/csv
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /applications/export [get]
func (h *ApplicationHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	filter := applicationFilterFromQuery(c)
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.Applications(c.Request.Context(), claimsFromContext(c), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func applicationFilterFromQuery(c *gin.Context) models.ApplicationFilter {
	var filter models.ApplicationFilter
	filter.CourseID = c.Query("courseId")
	filter.Status = models.ApplicationStatus(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
