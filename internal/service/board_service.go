package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
)

type boardRoomReader interface {
	List(ctx context.Context) ([]models.Room, error)
}

type boardScheduleReader interface {
	ListByWeekday(ctx context.Context, weekday int) ([]models.WeeklyScheduleDetail, error)
}

type boardAppointmentReader interface {
	ListDetailsByDate(ctx context.Context, date scheduling.Date) ([]models.AppointmentDetail, error)
	ListOrphans(ctx context.Context, date *scheduling.Date) ([]models.AppointmentDetail, error)
}

type boardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// BoardService assembles the scheduler board read-model for one date: a lane
// per room, the weekday's doctor schedules, and orphaned appointments. The
// assembled board is cached briefly in Redis; write paths invalidate it.
type BoardService struct {
	rooms        boardRoomReader
	schedules    boardScheduleReader
	appointments boardAppointmentReader
	cache        boardCache
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewBoardService instantiates BoardService. cache may be nil when board
// caching is disabled.
func NewBoardService(
	rooms boardRoomReader,
	schedules boardScheduleReader,
	appointments boardAppointmentReader,
	cache boardCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *BoardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &BoardService{
		rooms:        rooms,
		schedules:    schedules,
		appointments: appointments,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

func boardCacheKey(date scheduling.Date) string {
	return fmt.Sprintf("board:%s", date)
}

// Board returns the scheduler board for a date, from cache when fresh.
func (s *BoardService) Board(ctx context.Context, date scheduling.Date) (*models.SchedulerBoard, error) {
	key := boardCacheKey(date)
	if s.cache != nil {
		var cached models.SchedulerBoard
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("board cache read failed", zap.Error(err))
		}
	}

	board, err := s.assemble(ctx, date)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, board, s.cacheTTL); err != nil {
			s.logger.Warn("board cache write failed", zap.Error(err))
		}
	}
	return board, nil
}

func (s *BoardService) assemble(ctx context.Context, date scheduling.Date) (*models.SchedulerBoard, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}

	appts, err := s.appointments.ListDetailsByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}

	byRoom := make(map[string][]models.AppointmentDetail, len(rooms))
	for _, a := range appts {
		if a.RoomID == nil {
			continue
		}
		byRoom[*a.RoomID] = append(byRoom[*a.RoomID], a)
	}

	lanes := make([]models.RoomLane, 0, len(rooms))
	for _, room := range rooms {
		lane := models.RoomLane{Room: room, Appointments: byRoom[room.ID]}
		if lane.Appointments == nil {
			lane.Appointments = []models.AppointmentDetail{}
		}
		lanes = append(lanes, lane)
	}

	schedules, err := s.schedules.ListByWeekday(ctx, date.Weekday())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}

	orphans, err := s.appointments.ListOrphans(ctx, &date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orphaned appointments")
	}
	if orphans == nil {
		orphans = []models.AppointmentDetail{}
	}

	return &models.SchedulerBoard{
		Date:            date,
		Rooms:           lanes,
		DoctorSchedules: schedules,
		Orphans:         orphans,
	}, nil
}
