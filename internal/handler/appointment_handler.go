package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medagenda/citas-api/internal/dto"
	"github.com/medagenda/citas-api/internal/middleware"
	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
	"github.com/medagenda/citas-api/internal/service"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
	"github.com/medagenda/citas-api/pkg/response"
)

// AppointmentHandler exposes booking and availability endpoints.
type AppointmentHandler struct {
	appointments *service.AppointmentService
	availability *service.AvailabilityService
	metrics      *service.MetricsService
}

// NewAppointmentHandler constructs handler.
func NewAppointmentHandler(appointments *service.AppointmentService, availability *service.AvailabilityService, metrics *service.MetricsService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, availability: availability, metrics: metrics}
}

// Availability godoc
// @Summary Find the first free slot for a specialty on a date
// @Tags Appointments
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param specialty_id query string true "Specialty id"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /appointments/availability [get]
func (h *AppointmentHandler) Availability(c *gin.Context) {
	var query dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	date, err := scheduling.ParseDate(query.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}
	slot, err := h.availability.FindSlot(c.Request.Context(), date, query.SpecialtyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Book an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAppointmentRequest true "Appointment payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	// Patients can only book for themselves.
	if claims := middleware.CurrentUser(c); claims != nil && claims.Role == models.RolePatient {
		req.PatientID = claims.UserID
	}

	appt, err := h.appointments.Create(c.Request.Context(), req)
	if err != nil {
		h.recordBooking(err)
		response.Error(c, err)
		return
	}
	h.recordBooking(nil)
	response.Created(c, appt)
}

// Get godoc
// @Summary Get an appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment id"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	detail, err := h.appointments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Reschedule godoc
// @Summary Reschedule an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment id"
// @Param payload body dto.RescheduleAppointmentRequest true "Fields to change"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [patch]
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appt, err := h.appointments.Reschedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Cancel godoc
// @Summary Cancel an appointment
// @Tags Appointments
// @Param id path string true "Appointment id"
// @Security BearerAuth
// @Success 204
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	if err := h.appointments.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMine godoc
// @Summary List the authenticated patient's appointments
// @Tags Appointments
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /appointments/mine [get]
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	details, pagination, err := h.appointments.ListByPatient(c.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, pagination)
}

// Orphans godoc
// @Summary List orphaned appointments
// @Tags Appointments
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /appointments/orphans [get]
func (h *AppointmentHandler) Orphans(c *gin.Context) {
	var date *scheduling.Date
	if raw := c.Query("date"); raw != "" {
		parsed, err := scheduling.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
			return
		}
		date = &parsed
	}
	details, err := h.appointments.ListOrphans(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Repair godoc
// @Summary Reassign a room to an orphaned appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment id"
// @Param payload body dto.RepairOrphanRequest true "Replacement room"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/repair [post]
func (h *AppointmentHandler) Repair(c *gin.Context) {
	var req dto.RepairOrphanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appt, err := h.appointments.RepairOrphan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// PurgeOrphans godoc
// @Summary Delete every orphaned appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /appointments/orphans [delete]
func (h *AppointmentHandler) PurgeOrphans(c *gin.Context) {
	purged, err := h.appointments.PurgeOrphans(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"purged": purged}, nil)
}

// AgendaPDF godoc
// @Summary Download a doctor's day agenda as PDF
// @Tags Appointments
// @Produce application/pdf
// @Param id path string true "Doctor id"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /doctors/{id}/agenda.pdf [get]
func (h *AppointmentHandler) AgendaPDF(c *gin.Context) {
	date, err := scheduling.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}
	payload, err := h.appointments.DayAgendaPDF(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="agenda-`+date.String()+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

func (h *AppointmentHandler) recordBooking(err error) {
	if h.metrics == nil {
		return
	}
	switch {
	case err == nil:
		h.metrics.RecordBooking("created")
	case appErrors.FromError(err).Code == appErrors.ErrConcurrencyClash.Code:
		h.metrics.RecordBooking("conflict")
	default:
		h.metrics.RecordBooking("rejected")
	}
}
