package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/medagenda/citas-api/internal/middleware"
	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	Appointments *AppointmentHandler
	Board        *BoardHandler
	Specialties  *SpecialtyHandler
	Rooms        *RoomHandler
	Doctors      *DoctorHandler
	Schedules    *ScheduleHandler
	Reports      *ReportHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix. Catalog
// reads are public; every booking operation requires authentication and the
// back-office operations require staff roles.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)

	api.GET("/specialties", h.Specialties.List)
	api.GET("/specialties/:id", h.Specialties.Get)
	api.GET("/rooms", h.Rooms.List)
	api.GET("/rooms/:id", h.Rooms.Get)
	api.GET("/doctors", h.Doctors.List)
	api.GET("/doctors/:id", h.Doctors.Get)
	api.GET("/doctors/:id/schedules", h.Doctors.Schedules)

	authed := api.Group("")
	authed.Use(middleware.JWT(auth))

	authed.GET("/auth/me", h.Auth.Me)

	anyRole := middleware.RequireRoles(models.RolePatient, models.RoleDoctor, models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin)
	admin := middleware.RequireRoles(models.RoleAdmin)

	authed.GET("/appointments/availability", anyRole, h.Appointments.Availability)
	authed.POST("/appointments", anyRole, h.Appointments.Create)
	authed.GET("/appointments/mine", anyRole, h.Appointments.ListMine)
	authed.GET("/appointments/orphans", staff, h.Appointments.Orphans)
	authed.DELETE("/appointments/orphans", admin, h.Appointments.PurgeOrphans)
	authed.GET("/appointments/:id", anyRole, h.Appointments.Get)
	authed.PATCH("/appointments/:id", anyRole, h.Appointments.Reschedule)
	authed.DELETE("/appointments/:id", anyRole, h.Appointments.Cancel)
	authed.POST("/appointments/:id/repair", staff, h.Appointments.Repair)

	authed.GET("/board", staff, h.Board.Get)
	authed.GET("/doctors/:id/agenda.pdf", staff, h.Appointments.AgendaPDF)

	authed.POST("/specialties", admin, h.Specialties.Create)
	authed.PUT("/specialties/:id", admin, h.Specialties.Update)
	authed.DELETE("/specialties/:id", admin, h.Specialties.Delete)

	authed.POST("/rooms", admin, h.Rooms.Create)
	authed.PUT("/rooms/:id", admin, h.Rooms.Update)
	authed.DELETE("/rooms/:id", admin, h.Rooms.Delete)

	authed.POST("/doctors", admin, h.Doctors.Create)
	authed.PUT("/doctors/:id", admin, h.Doctors.Update)
	authed.DELETE("/doctors/:id", admin, h.Doctors.Delete)

	authed.POST("/schedules", admin, h.Schedules.Create)
	authed.PUT("/schedules/:id", admin, h.Schedules.Update)
	authed.DELETE("/schedules/:id", admin, h.Schedules.Delete)

	if h.Reports != nil {
		// Downloads carry their own signed token, so the route stays public.
		api.GET("/reports/download/:token", h.Reports.Download)
		authed.POST("/reports", staff, h.Reports.Create)
		authed.GET("/reports/:id", staff, h.Reports.Status)
	}
}
