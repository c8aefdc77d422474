package handler

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/medagenda/citas-api/internal/middleware"
	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
	"github.com/medagenda/citas-api/internal/service"
)

func TestBoardAndCatalogRoutesIntegration(t *testing.T) {
	router := buildBoardRouter()

	t.Run("board success as admin", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/board?date=2025-03-17", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"rooms"`)
		require.Contains(t, resp.Body.String(), `"orphans"`)
	})

	t.Run("board success as doctor", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/board?date=2025-03-17", nil)
		req.Header.Set("X-Test-Role", string(models.RoleDoctor))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("board forbidden as patient", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/board?date=2025-03-17", nil)
		req.Header.Set("X-Test-Role", string(models.RolePatient))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("board unauthorized without token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/board?date=2025-03-17", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("board rejects malformed date", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/board?date=17/03/2025", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("specialties list is public", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/specialties", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"Cardiología"`)
	})

	t.Run("specialty create forbidden as doctor", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/specialties", bytes.NewBufferString(`{"name":"Pediatría","duration_minutes":30}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleDoctor))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("specialty create success as admin", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/specialties", bytes.NewBufferString(`{"name":"Pediatría","duration_minutes":30}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"Pediatría"`)
	})

	t.Run("specialty create rejects disallowed duration", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/specialties", bytes.NewBufferString(`{"name":"Neurología","duration_minutes":45}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		require.Contains(t, resp.Body.String(), "VALIDATION_ERROR")
	})
}

func buildBoardRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: "test-user",
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	boardSvc := service.NewBoardService(
		&boardRoomsIntegrationMock{},
		&boardSchedulesIntegrationMock{},
		&boardAppointmentsIntegrationMock{},
		nil, 0, nil,
	)
	boardHandler := NewBoardHandler(boardSvc)

	specialtySvc := service.NewSpecialtyService(newSpecialtyRepoIntegrationMock(), nil, nil)
	specialtyHandler := NewSpecialtyHandler(specialtySvc)

	staff := internalmiddleware.RequireRoles(models.RoleDoctor, models.RoleAdmin)
	admin := internalmiddleware.RequireRoles(models.RoleAdmin)

	router.GET("/board", staff, boardHandler.Get)
	router.GET("/specialties", specialtyHandler.List)
	router.POST("/specialties", admin, specialtyHandler.Create)

	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type boardRoomsIntegrationMock struct{}

func (boardRoomsIntegrationMock) List(ctx context.Context) ([]models.Room, error) {
	return []models.Room{{ID: "room-101", Number: 101, Type: scheduling.TypeInternal, Active: true}}, nil
}

type boardSchedulesIntegrationMock struct{}

func (boardSchedulesIntegrationMock) ListByWeekday(ctx context.Context, weekday int) ([]models.WeeklyScheduleDetail, error) {
	return nil, nil
}

type boardAppointmentsIntegrationMock struct{}

func (boardAppointmentsIntegrationMock) ListDetailsByDate(ctx context.Context, date scheduling.Date) ([]models.AppointmentDetail, error) {
	return nil, nil
}

func (boardAppointmentsIntegrationMock) ListOrphans(ctx context.Context, date *scheduling.Date) ([]models.AppointmentDetail, error) {
	return nil, nil
}

type specialtyRepoIntegrationMock struct {
	specialties map[string]*models.Specialty
	nextID      int
}

func newSpecialtyRepoIntegrationMock() *specialtyRepoIntegrationMock {
	return &specialtyRepoIntegrationMock{
		specialties: map[string]*models.Specialty{
			"spec-1": {ID: "spec-1", Name: "Cardiología", DurationMinutes: 30},
		},
		nextID: 2,
	}
}

func (m *specialtyRepoIntegrationMock) List(ctx context.Context) ([]models.Specialty, error) {
	out := make([]models.Specialty, 0, len(m.specialties))
	for _, s := range m.specialties {
		out = append(out, *s)
	}
	return out, nil
}

func (m *specialtyRepoIntegrationMock) FindByID(ctx context.Context, id string) (*models.Specialty, error) {
	if s, ok := m.specialties[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *specialtyRepoIntegrationMock) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for id, s := range m.specialties {
		if s.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *specialtyRepoIntegrationMock) InUse(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (m *specialtyRepoIntegrationMock) Create(ctx context.Context, specialty *models.Specialty) error {
	specialty.ID = fmt.Sprintf("spec-%d", m.nextID)
	m.nextID++
	copied := *specialty
	m.specialties[specialty.ID] = &copied
	return nil
}

func (m *specialtyRepoIntegrationMock) Update(ctx context.Context, specialty *models.Specialty) error {
	copied := *specialty
	m.specialties[specialty.ID] = &copied
	return nil
}

func (m *specialtyRepoIntegrationMock) Delete(ctx context.Context, id string) error {
	delete(m.specialties, id)
	return nil
}
