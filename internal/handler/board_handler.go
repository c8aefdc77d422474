package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medagenda/citas-api/internal/scheduling"
	"github.com/medagenda/citas-api/internal/service"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
	"github.com/medagenda/citas-api/pkg/response"
)

// BoardHandler exposes the scheduler board read-model.
type BoardHandler struct {
	board *service.BoardService
}

// NewBoardHandler constructs handler.
func NewBoardHandler(board *service.BoardService) *BoardHandler {
	return &BoardHandler{board: board}
}

// Get godoc
// @Summary Scheduler board for a date
// @Tags Board
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /board [get]
func (h *BoardHandler) Get(c *gin.Context) {
	date := scheduling.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := scheduling.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	board, err := h.board.Board(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}
