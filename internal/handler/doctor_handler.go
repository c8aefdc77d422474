package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medagenda/citas-api/internal/dto"
	"github.com/medagenda/citas-api/internal/service"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
	"github.com/medagenda/citas-api/pkg/response"
)

// DoctorHandler exposes doctor profile endpoints.
type DoctorHandler struct {
	doctors   *service.DoctorService
	schedules *service.ScheduleService
}

// NewDoctorHandler constructs handler.
func NewDoctorHandler(doctors *service.DoctorService, schedules *service.ScheduleService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, schedules: schedules}
}

// List godoc
// @Summary List doctors
// @Tags Doctors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /doctors [get]
func (h *DoctorHandler) List(c *gin.Context) {
	doctors, err := h.doctors.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, nil)
}

// Get godoc
// @Summary Get a doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor id"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id} [get]
func (h *DoctorHandler) Get(c *gin.Context) {
	doctor, err := h.doctors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Create godoc
// @Summary Create a doctor profile
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body dto.DoctorRequest true "Doctor payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /doctors [post]
func (h *DoctorHandler) Create(c *gin.Context) {
	var req dto.DoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.doctors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doctor)
}

// Update godoc
// @Summary Update a doctor profile
// @Tags Doctors
// @Accept json
// @Produce json
// @Param id path string true "Doctor id"
// @Param payload body dto.DoctorRequest true "Doctor payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /doctors/{id} [put]
func (h *DoctorHandler) Update(c *gin.Context) {
	var req dto.DoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.doctors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Delete godoc
// @Summary Delete a doctor profile
// @Tags Doctors
// @Param id path string true "Doctor id"
// @Security BearerAuth
// @Success 204
// @Router /doctors/{id} [delete]
func (h *DoctorHandler) Delete(c *gin.Context) {
	if err := h.doctors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Schedules godoc
// @Summary List a doctor's weekly availability
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor id"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id}/schedules [get]
func (h *DoctorHandler) Schedules(c *gin.Context) {
	schedules, err := h.schedules.ListByDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}
