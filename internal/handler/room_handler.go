package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medagenda/citas-api/internal/dto"
	"github.com/medagenda/citas-api/internal/service"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
	"github.com/medagenda/citas-api/pkg/response"
)

// RoomHandler exposes room catalog endpoints.
type RoomHandler struct {
	rooms *service.RoomService
}

// NewRoomHandler constructs handler.
func NewRoomHandler(rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.rooms.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Get godoc
// @Summary Get a room
// @Tags Rooms
// @Produce json
// @Param id path string true "Room id"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.rooms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Create godoc
// @Summary Create a room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body dto.RoomRequest true "Room payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req dto.RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.rooms.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Update godoc
// @Summary Update a room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room id"
// @Param payload body dto.RoomRequest true "Room payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	var req dto.RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.rooms.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Delete godoc
// @Summary Delete a room
// @Tags Rooms
// @Param id path string true "Room id"
// @Security BearerAuth
// @Success 204
// @Router /rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	if err := h.rooms.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
