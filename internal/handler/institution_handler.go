package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careerplatform/admissions-api/internal/service"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
	"github.com/careerplatform/admissions-api/pkg/response"
)

// InstitutionHandler exposes institution registration and browsing endpoints.
type InstitutionHandler struct {
	institutions *service.InstitutionService
}

// NewInstitutionHandler constructs InstitutionHandler.
func NewInstitutionHandler(institutions *service.InstitutionService) *InstitutionHandler {
	return &InstitutionHandler{institutions: institutions}
}

// Register godoc
// @Summary Register an institution and its staff account
// @Tags Institutions
// @Accept json
// @Produce json
// @Param payload body service.RegisterInstitutionRequest true "Institution payload"
// @Success 201 {object} response.Envelope
// @Router /institutions/register [post]
func (h *InstitutionHandler) Register(c *gin.Context) {
	var req service.RegisterInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	institution, err := h.institutions.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, institution)
}

// List godoc
// @Summary List registered institutions
// @Tags Institutions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /institutions [get]
func (h *InstitutionHandler) List(c *gin.Context) {
	institutions, err := h.institutions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institutions, nil)
}

// Get godoc
// @Summary Fetch one institution
// @Tags Institutions
// @Produce json
// @Param id path string true "Institution ID"
// @Success 200 {object} response.Envelope
// @Router /institutions/{id} [get]
func (h *InstitutionHandler) Get(c *gin.Context) {
	institution, err := h.institutions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institution, nil)
}
