package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medagenda/citas-api/internal/dto"
	"github.com/medagenda/citas-api/internal/service"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
	"github.com/medagenda/citas-api/pkg/response"
)

// SpecialtyHandler exposes specialty catalog endpoints.
type SpecialtyHandler struct {
	specialties *service.SpecialtyService
}

// NewSpecialtyHandler constructs handler.
func NewSpecialtyHandler(specialties *service.SpecialtyService) *SpecialtyHandler {
	return &SpecialtyHandler{specialties: specialties}
}

// List godoc
// @Summary List specialties
// @Tags Specialties
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /specialties [get]
func (h *SpecialtyHandler) List(c *gin.Context) {
	specialties, err := h.specialties.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, specialties, nil)
}

// Get godoc
// @Summary Get a specialty
// @Tags Specialties
// @Produce json
// @Param id path string true "Specialty id"
// @Success 200 {object} response.Envelope
// @Router /specialties/{id} [get]
func (h *SpecialtyHandler) Get(c *gin.Context) {
	specialty, err := h.specialties.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, specialty, nil)
}

// Create godoc
// @Summary Create a specialty
// @Tags Specialties
// @Accept json
// @Produce json
// @Param payload body dto.SpecialtyRequest true "Specialty payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /specialties [post]
func (h *SpecialtyHandler) Create(c *gin.Context) {
	var req dto.SpecialtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	specialty, err := h.specialties.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, specialty)
}

// Update godoc
// @Summary Update a specialty
// @Tags Specialties
// @Accept json
// @Produce json
// @Param id path string true "Specialty id"
// @Param payload body dto.SpecialtyRequest true "Specialty payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /specialties/{id} [put]
func (h *SpecialtyHandler) Update(c *gin.Context) {
	var req dto.SpecialtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	specialty, err := h.specialties.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, specialty, nil)
}

// Delete godoc
// @Summary Delete a specialty
// @Tags Specialties
// @Param id path string true "Specialty id"
// @Security BearerAuth
// @Success 204
// @Router /specialties/{id} [delete]
func (h *SpecialtyHandler) Delete(c *gin.Context) {
	if err := h.specialties.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
